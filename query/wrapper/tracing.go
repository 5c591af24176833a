package wrapper

import (
	"context"

	"github.com/rise-and-shine/persist/meta"
	"github.com/rise-and-shine/persist/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "persist/query"

type TracingWrapper[R, C any] struct {
	tracer   trace.Tracer
	spanName string
	next     query.Query[R, C]
}

// NewTracingWrapper starts a span around every execution.
//
// The span is named after the query name found in ctx metadata (see NewMetaWrapper),
// falling back to the type name of the wrapped query.
func NewTracingWrapper[R, C any]() query.WrapFunc[R, C] {
	return func(next query.Query[R, C]) query.Query[R, C] {
		return &TracingWrapper[R, C]{
			tracer:   otel.Tracer(tracerName),
			spanName: typeName(next),
			next:     next,
		}
	}
}

func (t *TracingWrapper[R, C]) Execute(ctx context.Context, c C) (R, error) {
	name := meta.Get(ctx, meta.QueryName)
	if name == "" {
		name = t.spanName
	}

	ctx, span := t.tracer.Start(ctx, name)
	defer span.End()

	if storeName := meta.Get(ctx, meta.StoreName); storeName != "" {
		span.SetAttributes(attribute.String("persist.store", storeName))
	}

	result, err := t.next.Execute(ctx, c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return result, err
}
