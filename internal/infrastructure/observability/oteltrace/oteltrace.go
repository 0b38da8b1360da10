package oteltrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openstudio/payflow/internal/observability"
)

type tracer struct{ t trace.Tracer }

// New returns a Tracer backed by the globally configured OpenTelemetry
// provider. Wiring an exporter (and otel.SetTracerProvider) is the
// deployment's job; without one this degrades to no-op spans.
func New(name string) observability.Tracer {
	if name == "" {
		name = "payflow"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
