package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	gormSpanKey      = "iommi:gorm:span"
	gormStartTimeKey = "iommi:gorm:start"
)

// RegisterGORMCallbacks registers read callbacks on db that record a span
// per query, the query duration metric and a "db" Server-Timing entry.
// Tables and choice lookups only read, so only query and row callbacks are
// instrumented.
func RegisterGORMCallbacks(db *gorm.DB, cfg *Config) error {
	if cfg == nil || (!cfg.EnableDetailedDBTracing && !cfg.EnableServerTiming && cfg.MeterProvider == nil) {
		return nil
	}

	tracer := cfg.Tracer()
	withSpans := cfg.EnableDetailedDBTracing && cfg.TracerProvider != nil

	if err := db.Callback().Query().Before("gorm:query").Register("iommi:before_query", before(tracer, "query", withSpans)); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("iommi:after_query", after(tracer, cfg, "query")); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("iommi:before_row", before(tracer, "row", withSpans)); err != nil {
		return err
	}
	if err := db.Callback().Row().After("gorm:row").Register("iommi:after_row", after(tracer, cfg, "row")); err != nil {
		return err
	}
	return nil
}

func before(tracer *Tracer, operation string, withSpan bool) func(*gorm.DB) {
	return func(db *gorm.DB) {
		db.InstanceSet(gormStartTimeKey, time.Now())
		if !withSpan {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, span := tracer.StartDBQuery(ctx, operation)
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		db.Statement.Context = ctx
		db.InstanceSet(gormSpanKey, span)
	}
}

func after(tracer *Tracer, cfg *Config, operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		if v, ok := db.InstanceGet(gormSpanKey); ok {
			if span, ok := v.(trace.Span); ok {
				span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
				tracer.RecordError(span, db.Error)
				span.End()
			}
		}

		v, ok := db.InstanceGet(gormStartTimeKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		d := time.Since(start)
		cfg.Metrics().RecordDBQuery(ctx, operation, d)
		if cfg.ServerTimingEnabled() {
			AddServerTiming(ctx, "db", d)
		}
	}
}
