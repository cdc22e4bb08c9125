package observability

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultServiceName = "iommi"

// Config carries the providers and feature switches for query tracing,
// metrics and Server-Timing. A nil *Config is valid and disables everything.
type Config struct {
	TracerProvider          trace.TracerProvider
	MeterProvider           metric.MeterProvider
	ServiceName             string
	EnableDetailedDBTracing bool
	EnableServerTiming      bool

	tracer  *Tracer
	metrics *Metrics
}

// Option configures a Config.
type Option func(*Config)

// WithProviders sets the tracer and meter providers. Either may be nil.
func WithProviders(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
		c.MeterProvider = mp
	}
}

// WithServiceName names the instrumentation scope. Empty names are ignored.
func WithServiceName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.ServiceName = name
		}
	}
}

// WithDetailedDBTracing starts a span for every statement GORM runs.
func WithDetailedDBTracing() Option {
	return func(c *Config) { c.EnableDetailedDBTracing = true }
}

// WithServerTiming turns on the Server-Timing response header.
func WithServerTiming() Option {
	return func(c *Config) { c.EnableServerTiming = true }
}

// NewConfig applies opts and builds the tracer and metrics, falling back to
// no-op instruments for missing providers.
func NewConfig(opts ...Option) *Config {
	c := &Config{ServiceName: defaultServiceName}
	for _, opt := range opts {
		opt(c)
	}

	c.tracer = NewNoopTracer()
	if c.TracerProvider != nil {
		c.tracer = NewTracer(c.TracerProvider, c.ServiceName)
	}
	c.metrics = NewNoopMetrics()
	if c.MeterProvider != nil {
		c.metrics = NewMetrics(c.MeterProvider)
	}
	return c
}

// Tracer never returns nil.
func (c *Config) Tracer() *Tracer {
	if c == nil || c.tracer == nil {
		return NewNoopTracer()
	}
	return c.tracer
}

// Metrics never returns nil.
func (c *Config) Metrics() *Metrics {
	if c == nil || c.metrics == nil {
		return NewNoopMetrics()
	}
	return c.metrics
}

// Enabled reports whether a tracer or meter provider is configured.
func (c *Config) Enabled() bool {
	return c != nil && (c.TracerProvider != nil || c.MeterProvider != nil)
}

func (c *Config) ServerTimingEnabled() bool {
	return c != nil && c.EnableServerTiming
}
