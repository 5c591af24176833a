// Package meta carries request metadata through context.Context.
//
// Values injected here are picked up by logger.WithContext so that every log
// line of a query execution shares the same trace id and query name.
package meta

import "context"

// ContextKey is a type for keys used in context values for metadata.
type ContextKey string

const (
	// TraceID correlates all work done for one request.
	TraceID ContextKey = "trace_id"

	// ServiceName identifies the running service.
	ServiceName ContextKey = "service_name"

	// ServiceVersion indicates the version of the running service.
	ServiceVersion ContextKey = "service_version"

	// QueryName identifies the query being executed.
	QueryName ContextKey = "query_name"

	// StoreName identifies the store owning the execution context.
	StoreName ContextKey = "store_name"
)

//nolint:gochecknoglobals // fixed set of keys extracted for logging
var allKeys = []ContextKey{TraceID, ServiceName, ServiceVersion, QueryName, StoreName}

// InjectMetaToContext adds the non-empty values of data to ctx.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext returns all known non-empty metadata values found in ctx.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range allKeys {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			data[k] = v
		}
	}
	return data
}

// Get returns the metadata value stored under key, or "".
func Get(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
