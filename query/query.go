// Package query defines units of work executed against a store execution context.
//
// A Query produces a result of type R inside an execution context of type C supplied by the
// store (a transaction, a pipeline, a connection). The store commits the context only when the
// query returns without error, so anything that runs inside Execute takes part in that decision.
package query

import (
	"context"

	"github.com/rise-and-shine/persist/unit"
)

// Query is a unit of work parameterized by its result type R and execution context type C.
type Query[R, C any] interface {
	// Execute runs the unit of work inside the execution context c.
	//
	// Parameters:
	//   - ctx: Context for cancellation, deadlines and request metadata.
	//   - c: The execution context owned by the store. Must not be retained after return.
	//
	// Returns the query result and error, if any.
	Execute(ctx context.Context, c C) (R, error)
}

// Func adapts an ordinary function to the Query interface.
type Func[R, C any] func(ctx context.Context, c C) (R, error)

// Execute calls f(ctx, c).
func (f Func[R, C]) Execute(ctx context.Context, c C) (R, error) {
	return f(ctx, c)
}

// FromFunction lifts a unit.Function taking the execution context into a Query.
func FromFunction[R, C any](fn unit.Function[C, R]) Query[R, C] {
	return Func[R, C](fn)
}

// WrapFunc defines a middleware function for wrapping queries.
//
// It takes a Query and returns a wrapped Query of the same shape.
type WrapFunc[R, C any] func(Query[R, C]) Query[R, C]

// Chain applies wraps to q. The first wrap becomes the outermost layer.
//
// Example:
//
//	q := query.Chain(insertOrder,
//	    wrapper.NewTracingWrapper[*Order, bun.IDB](),
//	    query.Decorate[*Order, bun.IDB](query.PreProcessing(validate), query.PostProcessing(reserveStock)),
//	)
func Chain[R, C any](q Query[R, C], wraps ...WrapFunc[R, C]) Query[R, C] {
	for i := len(wraps) - 1; i >= 0; i-- {
		q = wraps[i](q)
	}
	return q
}
