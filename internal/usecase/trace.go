package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
)

var usecaseTracer = otel.Tracer("kart-league/internal/usecase")
var usecaseNoopSpan = trace.SpanFromContext(context.Background())

// startUsecaseSpan only opens a child span; background calls without a parent stay untraced.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, usecaseNoopSpan
	}
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, usecaseNoopSpan
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// failSpan records err on span. Rule violations are tagged with their reason
// and leave the span status untouched since they are expected outcomes.
func failSpan(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if ledger.IsRuleViolation(err) {
		span.SetAttributes(attribute.String("league.reject_reason", string(ledger.ReasonOf(err))))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func userAttr(userID string) attribute.KeyValue {
	return attribute.String("league.user_id", userID)
}

func playerAttr(playerID string) attribute.KeyValue {
	return attribute.String("league.player_id", playerID)
}
