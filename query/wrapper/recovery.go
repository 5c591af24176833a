package wrapper

import (
	"context"
	"fmt"
	"runtime"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/query"
)

// CodePanicRecovered is the error code returned when the wrapped query panicked.
const CodePanicRecovered = "QUERY_PANIC_RECOVERED"

const stackTraceSize = 4096

type RecoveryWrapper[R, C any] struct {
	logger    logger.Logger
	next      query.Query[R, C]
	queryName string
}

// NewRecoveryWrapper converts panics of the wrapped query into errors.
//
// Placed inside a store scope, a panicking hook then rolls the scope back through
// an ordinary error return.
func NewRecoveryWrapper[R, C any](l logger.Logger, queryName string) query.WrapFunc[R, C] {
	return func(next query.Query[R, C]) query.Query[R, C] {
		return &RecoveryWrapper[R, C]{
			logger:    l.Named("query.recovery").With("query_name", queryName),
			next:      next,
			queryName: queryName,
		}
	}
}

func (w *RecoveryWrapper[R, C]) Execute(ctx context.Context, c C) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			stackTrace := make([]byte, stackTraceSize)
			stackTrace = stackTrace[:runtime.Stack(stackTrace, false)]

			w.logger.
				WithContext(ctx).
				With("stack_trace", string(stackTrace)).
				With("panic_values", fmt.Sprintf("%v", r)).
				Error("panic recovered in recovery wrapper")

			var zero R
			result = zero
			err = errx.New(
				fmt.Sprintf("panic recovered in query %s", w.queryName),
				errx.WithCode(CodePanicRecovered),
				errx.WithDetails(errx.D{
					"stack_trace":  string(stackTrace),
					"panic_values": fmt.Sprintf("%v", r),
				}),
			)
		}
	}()

	return w.next.Execute(ctx, c)
}
