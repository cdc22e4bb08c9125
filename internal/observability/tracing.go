package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with query specific span creation methods.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartParse starts a span covering query string synthesis, parsing and compilation.
func (t *Tracer) StartParse(ctx context.Context, query string, advanced bool) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "iommi.query.parse", trace.WithAttributes(
		QueryStringAttr(query),
		attribute.Bool(AttrQueryAdvanced, advanced),
	))
}

// StartTableRender starts a span for loading and rendering a table.
func (t *Tracer) StartTableRender(ctx context.Context, table string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "iommi.table.render", trace.WithAttributes(TableAttr(table)))
}

// StartEndpoint starts a span for an AJAX endpoint dispatch.
func (t *Tracer) StartEndpoint(ctx context.Context, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "iommi.endpoint", trace.WithAttributes(PathAttr(path)))
}

// StartDBQuery starts a span for a database query.
func (t *Tracer) StartDBQuery(ctx context.Context, operation string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "db.query", trace.WithAttributes(
		attribute.String("db.operation", operation),
	))
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
