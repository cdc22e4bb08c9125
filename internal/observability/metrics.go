package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments.
type Metrics struct {
	parseDuration   metric.Float64Histogram
	queryCount      metric.Int64Counter
	errorCount      metric.Int64Counter
	resultCount     metric.Int64Histogram
	dbQueryDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Instrument creation only fails on invalid parameters; fall back to
	// bare instruments so metrics keep flowing.
	var err error

	m.parseDuration, err = meter.Float64Histogram(
		"iommi.query.parse.duration",
		metric.WithDescription("Duration of query parsing and compilation in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.parseDuration, _ = meter.Float64Histogram("iommi.query.parse.duration")
	}

	m.queryCount, err = meter.Int64Counter(
		"iommi.query.count",
		metric.WithDescription("Total number of compiled queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		m.queryCount, _ = meter.Int64Counter("iommi.query.count")
	}

	m.errorCount, err = meter.Int64Counter(
		"iommi.query.error.count",
		metric.WithDescription("Total number of rejected queries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.errorCount, _ = meter.Int64Counter("iommi.query.error.count")
	}

	m.resultCount, err = meter.Int64Histogram(
		"iommi.table.result.count",
		metric.WithDescription("Number of rows rendered by tables"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		m.resultCount, _ = meter.Int64Histogram("iommi.table.result.count")
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		"iommi.db.query.duration",
		metric.WithDescription("Duration of database queries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.dbQueryDuration, _ = meter.Float64Histogram("iommi.db.query.duration")
	}

	return m
}

// RecordParse records one parsed query. advanced is true for raw query strings.
func (m *Metrics) RecordParse(ctx context.Context, duration time.Duration, advanced bool) {
	attrs := metric.WithAttributes(attribute.Bool(AttrQueryAdvanced, advanced))
	m.parseDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.queryCount.Add(ctx, 1, attrs)
}

// RecordError records a rejected query.
func (m *Metrics) RecordError(ctx context.Context, code string) {
	m.errorCount.Add(ctx, 1, metric.WithAttributes(ErrorCodeAttr(code)))
}

// RecordResultCount records the number of rows a table rendered.
func (m *Metrics) RecordResultCount(ctx context.Context, table string, count int64) {
	m.resultCount.Record(ctx, count, metric.WithAttributes(TableAttr(table)))
}

// RecordDBQuery records metrics for a database query.
func (m *Metrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("db.operation", operation))
	m.dbQueryDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}
