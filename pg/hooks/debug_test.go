package hooks_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/pg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newHook(t *testing.T, opts ...hooks.DebugHookOption) (*hooks.DebugHook, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]hooks.DebugHookOption{hooks.WithLogger(logger.NewWithCore(core))}, opts...)
	return hooks.NewDebugHook(opts...), logs
}

func event(query string, took time.Duration, err error) *bun.QueryEvent {
	return &bun.QueryEvent{
		Query:     query,
		StartTime: time.Now().Add(-took),
		Err:       err,
	}
}

func TestDebugHook_AfterQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("VerboseLogsEveryQuery", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithSlowQueryThreshold(time.Hour))

		h.AfterQuery(ctx, event(`SELECT "o"."id" FROM "orders" AS "o"`, 0, nil))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		assert.Equal(t, "[pg] SELECT", entry.Message)
		assert.Equal(t, `SELECT o.id FROM orders AS o`, entry.ContextMap()["query"])
		assert.Contains(t, entry.ContextMap(), "duration")
	})

	t.Run("SlowQueryWarns", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithSlowQueryThreshold(10*time.Millisecond))

		h.AfterQuery(ctx, event("UPDATE orders SET amount = 1", 50*time.Millisecond, nil))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, "[pg] UPDATE: slow query", logs.All()[0].Message)
	})

	t.Run("ZeroThresholdDisablesSlowDetection", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithVerbose(false), hooks.WithSlowQueryThreshold(0))

		h.AfterQuery(ctx, event("UPDATE orders SET amount = 1", time.Second, nil))

		assert.Zero(t, logs.Len())
	})

	t.Run("QuietSkipsFastSuccess", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithVerbose(false), hooks.WithSlowQueryThreshold(time.Hour))

		h.AfterQuery(ctx, event("INSERT INTO orders DEFAULT VALUES", 0, nil))

		assert.Zero(t, logs.Len())
	})

	t.Run("QuietStillLogsFailures", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithVerbose(false), hooks.WithSlowQueryThreshold(time.Hour))

		h.AfterQuery(ctx, event("INSERT INTO orders DEFAULT VALUES", 0, errors.New("duplicate key")))

		errs := logs.FilterLevelExact(zapcore.ErrorLevel)
		require.Equal(t, 1, errs.Len())
		assert.Equal(t, "[pg] INSERT", errs.All()[0].Message)
		assert.Equal(t, "duplicate key", errs.All()[0].ContextMap()["error"])
	})

	t.Run("NoRowsWarns", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithVerbose(false), hooks.WithSlowQueryThreshold(time.Hour))

		h.AfterQuery(ctx, event("SELECT * FROM orders", 0, fmt.Errorf("scan: %w", sql.ErrNoRows)))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, "[pg] SELECT: no rows", logs.All()[0].Message)
	})

	t.Run("TxDoneIsNotAnError", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithSlowQueryThreshold(time.Hour))

		h.AfterQuery(ctx, event("ROLLBACK", 0, sql.ErrTxDone))

		assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	})

	t.Run("QuietIgnoresTxDone", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithVerbose(false), hooks.WithSlowQueryThreshold(time.Hour))

		h.AfterQuery(ctx, event("ROLLBACK", 0, sql.ErrTxDone))

		assert.Zero(t, logs.Len())
	})

	t.Run("Disabled", func(t *testing.T) {
		h, logs := newHook(t, hooks.WithEnabled(false))

		h.AfterQuery(ctx, event("DELETE FROM orders", time.Second, errors.New("boom")))

		assert.Zero(t, logs.Len())
	})
}

func TestDebugHook_BeforeQueryKeepsContext(t *testing.T) {
	type key struct{}
	h, _ := newHook(t)
	ctx := context.WithValue(context.Background(), key{}, "v")

	assert.Equal(t, "v", h.BeforeQuery(ctx, &bun.QueryEvent{}).Value(key{}))
}
