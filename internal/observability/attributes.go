// Package observability provides OpenTelemetry-based instrumentation for queries and tables.
//
// It supports distributed tracing, metrics collection, Server-Timing headers and
// enhanced structured logging.
//
// All observability features are opt-in. When not configured, no-op implementations
// are used with zero performance overhead.
package observability

import "go.opentelemetry.io/otel/attribute"

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-iommi"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-iommi"
)

// Semantic attribute keys.
const (
	AttrQueryString   = "iommi.query.string"
	AttrQueryAdvanced = "iommi.query.advanced"
	AttrVariableCount = "iommi.query.variable_count"
	AttrTable         = "iommi.table"
	AttrPath          = "iommi.path"
	AttrResultCount   = "iommi.result.count"
	AttrErrorCode     = "iommi.error.code"
)

// Log field names used by LoggerWithTrace.
const (
	LogFieldTraceID = "trace_id"
	LogFieldSpanID  = "span_id"
)

// QueryStringAttr returns the attribute carrying a query string.
func QueryStringAttr(q string) attribute.KeyValue {
	return attribute.String(AttrQueryString, q)
}

// TableAttr returns the attribute naming a table.
func TableAttr(name string) attribute.KeyValue {
	return attribute.String(AttrTable, name)
}

// PathAttr returns the attribute carrying a bound component path.
func PathAttr(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// ResultCountAttr returns the attribute carrying the number of loaded rows.
func ResultCountAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrResultCount, n)
}

// ErrorCodeAttr returns the attribute carrying an error code.
func ErrorCodeAttr(code string) attribute.KeyValue {
	return attribute.String(AttrErrorCode, code)
}
