// Package hooks contains bun query hooks.
package hooks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rise-and-shine/persist/logger"
	"github.com/uptrace/bun"
)

var _ bun.QueryHook = (*DebugHook)(nil)

// DebugHook logs bun queries with configurable verbosity and slow query detection.
type DebugHook struct {
	logger             logger.Logger
	enabled            bool
	verbose            bool
	slowQueryThreshold time.Duration
}

// DebugHookOption configures a DebugHook.
type DebugHookOption func(*DebugHook)

// NewDebugHook creates a new query hook with the provided options.
// By default, the hook is enabled, verbose, logs to the global logger and
// treats queries slower than 100ms as slow.
func NewDebugHook(opts ...DebugHookOption) *DebugHook {
	hook := &DebugHook{
		enabled:            true,
		verbose:            true,
		slowQueryThreshold: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(hook)
	}

	if hook.logger == nil {
		hook.logger = logger.Named("pg.debug_hook")
	}

	return hook
}

// WithEnabled sets whether the query hook is enabled.
func WithEnabled(enabled bool) DebugHookOption {
	return func(h *DebugHook) {
		h.enabled = enabled
	}
}

// WithVerbose sets whether to log every query or only failures and slow queries.
func WithVerbose(verbose bool) DebugHookOption {
	return func(h *DebugHook) {
		h.verbose = verbose
	}
}

// WithSlowQueryThreshold sets the duration above which queries are logged at warn level.
// Zero disables slow query detection.
func WithSlowQueryThreshold(threshold time.Duration) DebugHookOption {
	return func(h *DebugHook) {
		h.slowQueryThreshold = threshold
	}
}

// WithLogger sets the logger used by the hook.
func WithLogger(l logger.Logger) DebugHookOption {
	return func(h *DebugHook) {
		h.logger = l
	}
}

// BeforeQuery implements bun.QueryHook.
func (h *DebugHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook.
func (h *DebugHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if !h.enabled {
		return
	}

	duration := time.Since(event.StartTime)

	isNoRows := errors.Is(event.Err, sql.ErrNoRows)
	// a rollback after commit reports ErrTxDone, which is expected
	isTxDone := errors.Is(event.Err, sql.ErrTxDone)
	hasError := event.Err != nil && !isNoRows && !isTxDone

	isSlow := h.slowQueryThreshold > 0 && duration >= h.slowQueryThreshold

	if !h.verbose && !hasError && !isNoRows && !isSlow {
		return
	}

	entry := h.logger.
		WithContext(ctx).
		With("query", strings.ReplaceAll(event.Query, "\"", "")).
		With("duration", duration.Round(time.Microsecond).String())

	msg := "[pg] " + event.Operation()

	switch {
	case hasError:
		entry.With("error", event.Err.Error()).Error(msg)
	case isNoRows:
		entry.Warn(msg + ": no rows")
	case isSlow:
		entry.Warn(msg + ": slow query")
	default:
		entry.Debug(msg)
	}
}
