package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const handlerSpanPrefix = "httpapi.Handler."

var apiTracer = otel.Tracer("kart-league/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// startSpan opens handler spans under the otelhttp request span. Middleware and
// response helpers share the request span instead of adding their own.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, noopSpan
	}
	if !shouldCreateHTTPAPISpan(name) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name, trace.WithAttributes(spanAttributes(ctx, name)...))
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix) && len(name) > len(handlerSpanPrefix)
}

func spanAttributes(ctx context.Context, name string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("league.handler", strings.TrimPrefix(name, handlerSpanPrefix)),
	}
	if s, ok := sessionFromContext(ctx); ok {
		attrs = append(attrs, attribute.String("league.user_id", s.UserID))
	}
	return attrs
}
