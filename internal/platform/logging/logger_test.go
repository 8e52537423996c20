package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/trace"
)

func TestLogger_WritesKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: LevelInfo, Service: "kart-league-api", Writer: &buf})

	logger.Named("settlement").Info("settlement committed", "run_id", "run-1", "applied", 2, "error", errors.New("boom"))

	var entry map[string]any
	if err := sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v (raw=%s)", err, buf.String())
	}

	if got := entry["msg"]; got != "settlement committed" {
		t.Fatalf("unexpected msg: %v", got)
	}
	if got := entry["service"]; got != "kart-league-api" {
		t.Fatalf("unexpected service: %v", got)
	}
	if got := entry["component"]; got != "settlement" {
		t.Fatalf("unexpected component: %v", got)
	}
	if got := entry["run_id"]; got != "run-1" {
		t.Fatalf("unexpected run_id: %v", got)
	}
	if got, _ := entry["applied"].(float64); got != 2 {
		t.Fatalf("unexpected applied: %v", entry["applied"])
	}
	if got := entry["error"]; got != "boom" {
		t.Fatalf("unexpected error field: %v", got)
	}
}

func TestLogger_DropsBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: LevelWarn, Writer: &buf})

	logger.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below level, got %s", buf.String())
	}
}

func TestLogger_ContextAddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: LevelInfo, Writer: &buf})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	logger.InfoContext(ctx, "bid placed")

	var entry map[string]any
	if err := sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if got := entry["trace_id"]; got != traceID.String() {
		t.Fatalf("unexpected trace_id: %v", got)
	}
	if got := entry["span_id"]; got != spanID.String() {
		t.Fatalf("unexpected span_id: %v", got)
	}
}

func TestLogger_NilReceiverFallsBackToDefault(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	if logger.With("k", "v") == nil {
		t.Fatalf("expected non-nil logger from nil receiver")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{in: "debug", want: LevelDebug},
		{in: " WARN ", want: LevelWarn},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "", want: LevelInfo},
		{in: "verbose", want: LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q)=%v want=%v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_TypedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: LevelInfo, Writer: &buf})

	logger.Info("market rotated",
		"job_timeout", 2*time.Minute,
		"player_ids", []string{"mario", "luigi"},
		"dry_run", true,
		"dangling",
	)

	var entry map[string]any
	if err := sonic.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if got := entry["job_timeout"]; got != "2m0s" {
		t.Fatalf("unexpected duration encoding: %v", got)
	}
	if ids, _ := entry["player_ids"].([]any); len(ids) != 2 {
		t.Fatalf("unexpected player_ids: %v", entry["player_ids"])
	}
	if got := entry["dry_run"]; got != true {
		t.Fatalf("unexpected dry_run: %v", got)
	}
	if v, ok := entry["dangling"]; !ok || v != nil {
		t.Fatalf("expected dangling key logged as null, got %v (present=%v)", v, ok)
	}
}

func TestLogger_ConsoleEncoder(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: LevelWarn, Service: "leaguectl", Console: true, Writer: &buf})

	logger.Warn("settlement skipped award", "player_id", "peach")
	out := buf.String()
	if !strings.Contains(out, "settlement skipped award") || !strings.Contains(out, `"player_id": "peach"`) {
		t.Fatalf("unexpected console output: %s", out)
	}
	if sonic.Valid([]byte(strings.TrimSpace(out))) {
		t.Fatalf("expected non-JSON console output, got %s", out)
	}
}
