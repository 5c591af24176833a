package wrapper

import (
	"context"
	"fmt"
	"time"

	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/query"
)

type LoggerWrapper[R, C any] struct {
	logger    logger.Logger
	next      query.Query[R, C]
	queryName string
}

// NewLoggerWrapper logs every execution with its duration and outcome.
// Errors are logged with their errx fields and returned unchanged.
func NewLoggerWrapper[R, C any](l logger.Logger, queryName string) query.WrapFunc[R, C] {
	return func(next query.Query[R, C]) query.Query[R, C] {
		return &LoggerWrapper[R, C]{
			logger:    l.Named("query.logger").With("query_name", queryName),
			next:      next,
			queryName: queryName,
		}
	}
}

func (w *LoggerWrapper[R, C]) Execute(ctx context.Context, c C) (R, error) {
	start := time.Now()

	result, err := w.next.Execute(ctx, c)

	log := w.logger.
		WithContext(ctx).
		With("execution_time", time.Since(start).String())

	if err != nil {
		log.With("error", errObject(err)).Error("query failed")
	} else {
		log.With("result_type", fmt.Sprintf("%T", result)).Info("query succeeded")
	}

	return result, err
}
