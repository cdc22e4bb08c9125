package observability

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithServiceName("test-service"),
		WithDetailedDBTracing(),
		WithServerTiming(),
	)

	if cfg.ServiceName != "test-service" {
		t.Errorf("expected service name 'test-service', got '%s'", cfg.ServiceName)
	}
	if !cfg.EnableDetailedDBTracing {
		t.Error("expected detailed DB tracing to be enabled")
	}
	if !cfg.ServerTimingEnabled() {
		t.Error("expected server timing to be enabled")
	}
	if cfg.Enabled() {
		t.Error("expected observability to be disabled without providers")
	}
	if NewConfig(WithServiceName("")).ServiceName != defaultServiceName {
		t.Error("expected empty service name to keep the default")
	}
}

func TestConfigWithProviders(t *testing.T) {
	cfg := NewConfig(
		WithProviders(tracenoop.NewTracerProvider(), noop.NewMeterProvider()),
	)

	if !cfg.Enabled() {
		t.Error("expected observability to be enabled")
	}
	if cfg.Tracer() == nil || cfg.Metrics() == nil {
		t.Fatal("expected tracer and metrics to be initialized")
	}

	ctx, span := cfg.Tracer().StartParse(context.Background(), "a=1", false)
	cfg.Metrics().RecordParse(ctx, time.Millisecond, false)
	cfg.Metrics().RecordError(ctx, "syntax")
	cfg.Metrics().RecordResultCount(ctx, "cars", 3)
	span.End()
}

func TestNilConfigFallsBackToNoop(t *testing.T) {
	var cfg *Config
	if cfg.Tracer() == nil {
		t.Error("expected noop tracer")
	}
	if cfg.Metrics() == nil {
		t.Error("expected noop metrics")
	}
	if cfg.ServerTimingEnabled() {
		t.Error("expected server timing disabled")
	}
}

func TestLoggerWithTraceWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LoggerWithTrace(context.Background(), logger).Info("hello")
	if strings.Contains(buf.String(), LogFieldTraceID) {
		t.Errorf("unexpected trace id in %q", buf.String())
	}
}

func TestLoggerWithTraceWithSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	LoggerWithTrace(ctx, logger).Info("hello")
	if !strings.Contains(buf.String(), LogFieldTraceID+"="+sc.TraceID().String()) {
		t.Errorf("expected trace id in %q", buf.String())
	}
}

func TestServerTimingWithoutHeader(t *testing.T) {
	m := StartServerTiming(context.Background(), "parse")
	m.Stop()
	AddServerTiming(context.Background(), "db", time.Millisecond)
}

func TestHTTPMiddlewareServerTiming(t *testing.T) {
	cfg := NewConfig(WithServerTiming())
	handler := HTTPMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if servertiming.FromContext(r.Context()) == nil {
			t.Error("expected timing header in context")
		}
		m := StartServerTimingWithDesc(r.Context(), "parse", "query parsing")
		m.Stop()
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(rec.Header().Get("Server-Timing"), "parse") {
		t.Errorf("expected parse metric in Server-Timing header, got %q", rec.Header().Get("Server-Timing"))
	}
}

func TestHTTPMiddlewarePassthrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	HTTPMiddleware(nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("expected wrapped handler to be called")
	}
}

func TestRegisterGORMCallbacks(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	cfg := NewConfig(
		WithProviders(tracenoop.NewTracerProvider(), nil),
		WithDetailedDBTracing(),
		WithServerTiming(),
	)
	if err := RegisterGORMCallbacks(db, cfg); err != nil {
		t.Fatalf("failed to register callbacks: %v", err)
	}

	type item struct {
		ID   uint
		Name string
	}
	if err := db.AutoMigrate(&item{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	var h servertiming.Header
	ctx := servertiming.NewContext(context.Background(), &h)
	var items []item
	if err := db.WithContext(ctx).Find(&items).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}

	found := false
	for _, m := range h.Metrics {
		if m.Name == "db" {
			found = true
		}
	}
	if !found {
		t.Error("expected a db server timing metric")
	}
}

func TestRegisterGORMCallbacksDisabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := RegisterGORMCallbacks(db, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := RegisterGORMCallbacks(db, NewConfig()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResultCountAttr(t *testing.T) {
	kv := ResultCountAttr(3)
	if string(kv.Key) != AttrResultCount || kv.Value.AsInt64() != 3 {
		t.Errorf("unexpected attribute %v", kv)
	}
}
