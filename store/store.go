// Package store defines the boundary between queries and the execution-context owner.
//
// A TxRunner opens an execution context (a database transaction, a MULTI/EXEC pipeline, ...),
// hands it to a function and then commits it if the function returned nil or rolls it back
// otherwise. Execute runs a query.Query inside such a scope, which is what lets a failing
// post-processing hook undo writes the query already staged.
package store

import (
	"context"

	"github.com/rise-and-shine/persist/query"
)

// TxRunner owns execution contexts of type C.
type TxRunner[C any] interface {
	// RunInTx runs fn inside a new execution context.
	//
	// The context is committed if fn returns nil and rolled back otherwise.
	// The error returned by fn is returned unchanged.
	RunInTx(ctx context.Context, fn func(ctx context.Context, c C) error) error
}

// RunnerFunc adapts an ordinary function to the TxRunner interface.
type RunnerFunc[C any] func(ctx context.Context, fn func(ctx context.Context, c C) error) error

// RunInTx calls f(ctx, fn).
func (f RunnerFunc[C]) RunInTx(ctx context.Context, fn func(ctx context.Context, c C) error) error {
	return f(ctx, fn)
}

// Execute runs q in a single execution context provided by runner.
//
// The result is returned only when the context was committed. If q fails, its error is
// returned unchanged after the runner rolled the context back.
func Execute[R, C any](ctx context.Context, runner TxRunner[C], q query.Query[R, C]) (R, error) {
	var result R

	err := runner.RunInTx(ctx, func(ctx context.Context, c C) error {
		res, err := q.Execute(ctx, c)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}

	return result, nil
}

// InTx lifts q into a query executed against the runner itself.
//
// Each execution of the returned query opens and finishes its own execution context, so
// wrappers applied to it (a retry, a timeout) see the whole transaction as one unit.
func InTx[R, C any](q query.Query[R, C]) query.Query[R, TxRunner[C]] {
	return query.Func[R, TxRunner[C]](func(ctx context.Context, runner TxRunner[C]) (R, error) {
		return Execute(ctx, runner, q)
	})
}
