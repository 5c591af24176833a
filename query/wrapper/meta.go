package wrapper

import (
	"context"

	"github.com/rise-and-shine/persist/meta"
	"github.com/rise-and-shine/persist/query"
	"github.com/rise-and-shine/persist/tracing"
)

type MetaWrapper[R, C any] struct {
	queryName string
	next      query.Query[R, C]
}

// NewMetaWrapper injects the trace id, service info and query name into ctx metadata.
// An existing trace id is kept.
func NewMetaWrapper[R, C any](queryName string) query.WrapFunc[R, C] {
	return func(next query.Query[R, C]) query.Query[R, C] {
		return &MetaWrapper[R, C]{queryName: queryName, next: next}
	}
}

func (w *MetaWrapper[R, C]) Execute(ctx context.Context, c C) (R, error) {
	traceID := meta.Get(ctx, meta.TraceID)
	if traceID == "" {
		traceID = tracing.GetStartingTraceID(ctx)
	}

	metadata := map[meta.ContextKey]string{ //nolint:exhaustive // store name is set by the store
		meta.TraceID:        traceID,
		meta.ServiceName:    meta.GetServiceName(),
		meta.ServiceVersion: meta.GetServiceVersion(),
		meta.QueryName:      w.queryName,
	}

	return w.next.Execute(meta.InjectMetaToContext(ctx, metadata), c)
}
