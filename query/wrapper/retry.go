package wrapper

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/query"
)

// RetryConfig configures NewRetryWrapper.
type RetryConfig struct {
	// Disable runs the wrapped query exactly once.
	Disable bool `yaml:"disable"`
	// Attempts is the total number of executions, including the first one.
	Attempts uint `yaml:"attempts" default:"3" validate:"gte=1"`
	// Delay is the base delay between attempts.
	Delay time.Duration `yaml:"delay" default:"50ms"`
	// MaxJitter is the maximum random jitter added to Delay.
	MaxJitter time.Duration `yaml:"max_jitter" default:"20ms"`
}

// RetryOption configures a RetryWrapper.
type RetryOption func(*retryOptions)

type retryOptions struct {
	retryIf func(error) bool
}

// WithRetryIf retries only errors for which fn returns true.
// Without it every error is retried.
func WithRetryIf(fn func(error) bool) RetryOption {
	return func(o *retryOptions) {
		o.retryIf = fn
	}
}

type RetryWrapper[R, C any] struct {
	cfg    RetryConfig
	opts   retryOptions
	logger logger.Logger
	next   query.Query[R, C]
}

// NewRetryWrapper executes the wrapped query again when it fails.
//
// A query must never be retried inside an execution context that already saw its failure,
// so wrap a query lifted with store.InTx: every attempt then runs in a fresh transaction.
// The last error is returned when all attempts fail or ctx is done.
func NewRetryWrapper[R, C any](cfg RetryConfig, l logger.Logger, opts ...RetryOption) query.WrapFunc[R, C] {
	var o retryOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next query.Query[R, C]) query.Query[R, C] {
		return &RetryWrapper[R, C]{
			cfg:    cfg,
			opts:   o,
			logger: l.Named("query.retry"),
			next:   next,
		}
	}
}

func (w *RetryWrapper[R, C]) Execute(ctx context.Context, c C) (R, error) {
	if w.cfg.Disable || w.cfg.Attempts <= 1 {
		return w.next.Execute(ctx, c)
	}

	log := w.logger.WithContext(ctx)

	retryOpts := []retry.Option{
		retry.Attempts(w.cfg.Attempts),
		retry.Delay(w.cfg.Delay),
		retry.MaxJitter(w.cfg.MaxJitter),
		retry.LastErrorOnly(true), // only return the last error
		retry.OnRetry(func(n uint, err error) {
			log.
				With("error", errObject(err)).
				With("attempt", n+1).
				With("max_attempts", w.cfg.Attempts).
				Warn("retrying query")
		}),
		retry.Context(ctx), // response to context cancellation
	}
	if w.opts.retryIf != nil {
		retryOpts = append(retryOpts, retry.RetryIf(w.opts.retryIf))
	}

	return retry.DoWithData(
		func() (R, error) {
			return w.next.Execute(ctx, c)
		},
		retryOpts...,
	)
}
