package wrapper

import (
	"context"
	"time"

	"github.com/rise-and-shine/persist/query"
)

type TimeoutWrapper[R, C any] struct {
	timeout time.Duration
	next    query.Query[R, C]
}

// NewTimeoutWrapper bounds every execution by timeout.
func NewTimeoutWrapper[R, C any](timeout time.Duration) query.WrapFunc[R, C] {
	return func(next query.Query[R, C]) query.Query[R, C] {
		return &TimeoutWrapper[R, C]{timeout: timeout, next: next}
	}
}

func (w *TimeoutWrapper[R, C]) Execute(ctx context.Context, c C) (R, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	return w.next.Execute(ctx, c)
}
