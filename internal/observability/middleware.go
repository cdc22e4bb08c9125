package observability

import (
	"net/http"

	servertiming "github.com/mitchellh/go-server-timing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware returns an HTTP middleware that instruments requests. Tracing
// uses otelhttp for span propagation and HTTP semantic attributes; the
// Server-Timing header is added when enabled.
func HTTPMiddleware(cfg *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := next
		if cfg.ServerTimingEnabled() {
			h = servertiming.Middleware(h, nil)
		}
		if cfg != nil && cfg.TracerProvider != nil {
			opts := []otelhttp.Option{otelhttp.WithTracerProvider(cfg.TracerProvider)}
			if cfg.MeterProvider != nil {
				opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
			}
			h = otelhttp.NewHandler(h, "iommi.http", opts...)
		}
		return h
	}
}
