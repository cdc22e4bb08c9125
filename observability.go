package iommi

import (
	"net/http"

	"github.com/nlstn/go-iommi/internal/observability"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ObservabilityConfig configures tracing, metrics and Server-Timing headers.
// Every feature is off unless configured.
//
// Example:
//
//	obs := iommi.NewObservability(iommi.ObservabilityConfig{
//	    TracerProvider:     otel.GetTracerProvider(),
//	    MeterProvider:      otel.GetMeterProvider(),
//	    EnableServerTiming: true,
//	})
//	q, err := iommi.NewQuery(variables, iommi.WithObservability(obs))
type ObservabilityConfig struct {
	// TracerProvider is the OpenTelemetry tracer provider. If nil, tracing is disabled.
	TracerProvider trace.TracerProvider

	// MeterProvider is the OpenTelemetry meter provider. If nil, metrics are disabled.
	MeterProvider metric.MeterProvider

	// ServiceName identifies this service in traces and metrics.
	ServiceName string

	// EnableDetailedDBTracing creates a span per database query.
	EnableDetailedDBTracing bool

	// EnableServerTiming adds the Server-Timing HTTP response header.
	EnableServerTiming bool
}

// Observability is an initialized observability configuration shared by
// queries, pages and the HTTP middleware.
type Observability struct {
	cfg *observability.Config
}

// NewObservability initializes cfg.
func NewObservability(cfg ObservabilityConfig) *Observability {
	opts := []observability.Option{
		observability.WithProviders(cfg.TracerProvider, cfg.MeterProvider),
		observability.WithServiceName(cfg.ServiceName),
	}
	if cfg.EnableDetailedDBTracing {
		opts = append(opts, observability.WithDetailedDBTracing())
	}
	if cfg.EnableServerTiming {
		opts = append(opts, observability.WithServerTiming())
	}
	return &Observability{cfg: observability.NewConfig(opts...)}
}

func (o *Observability) config() *observability.Config {
	if o == nil {
		return nil
	}
	return o.cfg
}

// Middleware wraps next with request tracing and Server-Timing headers.
func (o *Observability) Middleware(next http.Handler) http.Handler {
	return observability.HTTPMiddleware(o.config())(next)
}

// InstrumentDB registers callbacks on db that trace and time its queries.
func (o *Observability) InstrumentDB(db *gorm.DB) error {
	return observability.RegisterGORMCallbacks(db, o.config())
}
