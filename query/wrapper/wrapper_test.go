package wrapper_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/persist/alert"
	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/meta"
	"github.com/rise-and-shine/persist/query"
	"github.com/rise-and-shine/persist/query/wrapper"
	"github.com/rise-and-shine/persist/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type conn struct {
	name string
}

func constQuery(v int, err error) query.Query[int, *conn] {
	return query.Func[int, *conn](func(context.Context, *conn) (int, error) {
		if err != nil {
			return 0, err
		}
		return v, nil
	})
}

func nopLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Disable: true})
	require.NoError(t, err)
	return l
}

func TestTracingWrapper(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	t.Run("NamedFromMeta", func(t *testing.T) {
		q := query.Chain(constQuery(1, nil),
			wrapper.NewMetaWrapper[int, *conn]("InsertOrder"),
			wrapper.NewTracingWrapper[int, *conn](),
		)

		res, err := q.Execute(context.Background(), &conn{})

		require.NoError(t, err)
		assert.Equal(t, 1, res)
		spans := sr.Ended()
		require.NotEmpty(t, spans)
		span := spans[len(spans)-1]
		assert.Equal(t, "InsertOrder", span.Name())
		assert.Equal(t, codes.Unset, span.Status().Code)
	})

	t.Run("RecordsError", func(t *testing.T) {
		errDB := errors.New("db down")
		q := query.Chain(constQuery(0, errDB), wrapper.NewTracingWrapper[int, *conn]())

		_, err := q.Execute(context.Background(), &conn{})

		assert.Same(t, errDB, err)
		spans := sr.Ended()
		span := spans[len(spans)-1]
		assert.Equal(t, "Func", span.Name())
		assert.Equal(t, codes.Error, span.Status().Code)
		assert.Equal(t, "db down", span.Status().Description)
	})
}

func TestLoggerWrapper(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		q := query.Chain(constQuery(5, nil),
			wrapper.NewLoggerWrapper[int, *conn](logger.NewWithCore(core), "CountOrders"))

		res, err := q.Execute(context.Background(), &conn{})

		require.NoError(t, err)
		assert.Equal(t, 5, res)
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		assert.Equal(t, "query.logger", entry.LoggerName)
		fields := entry.ContextMap()
		assert.Equal(t, "CountOrders", fields["query_name"])
		assert.Equal(t, "int", fields["result_type"])
		assert.Contains(t, fields, "execution_time")
	})

	t.Run("ErrorReturnedUnchanged", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		errRule := errx.New("limit exceeded", errx.WithCode("LIMIT_EXCEEDED"))
		q := query.Chain(constQuery(0, errRule),
			wrapper.NewLoggerWrapper[int, *conn](logger.NewWithCore(core), "CountOrders"))

		_, err := q.Execute(context.Background(), &conn{})

		assert.Equal(t, errRule, err)
		require.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	})
}

func TestRecoveryWrapper(t *testing.T) {
	panicking := query.Func[int, *conn](func(context.Context, *conn) (int, error) {
		panic("hook exploded")
	})

	q := query.Chain[int, *conn](panicking, wrapper.NewRecoveryWrapper[int, *conn](nopLogger(t), "InsertOrder"))

	var (
		res int
		err error
	)
	assert.NotPanics(t, func() {
		res, err = q.Execute(context.Background(), &conn{})
	})

	require.Error(t, err)
	assert.Zero(t, res)
	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))
	details := errx.AsErrorX(err).Details()
	assert.Equal(t, "hook exploded", details["panic_values"])
	assert.NotEmpty(t, details["stack_trace"])
}

func TestRecoveryWrapper_RollsBackStore(t *testing.T) {
	rec := store.NewRecorder(&conn{})
	q := query.Chain(
		query.NewDecorator(constQuery(1, nil), query.NoPreProcessing(), query.PostProcessing[int](
			func(context.Context, int) error { panic("post hook") },
		)),
		wrapper.NewRecoveryWrapper[int, *conn](nopLogger(t), "InsertOrder"),
	)

	_, err := store.Execute(context.Background(), rec, q)

	assert.True(t, errx.IsCodeIn(err, wrapper.CodePanicRecovered))
	assert.Equal(t, 1, rec.Rollbacks())
	assert.Zero(t, rec.Commits())
}

func TestTimeoutWrapper(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	q := query.Func[int, *conn](func(ctx context.Context, _ *conn) (int, error) {
		deadline, hasDeadline = ctx.Deadline()
		<-ctx.Done()
		return 0, ctx.Err()
	})

	start := time.Now()
	_, err := query.Chain[int, *conn](q, wrapper.NewTimeoutWrapper[int, *conn](20*time.Millisecond)).
		Execute(context.Background(), &conn{})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, hasDeadline)
	assert.WithinDuration(t, start.Add(20*time.Millisecond), deadline, 15*time.Millisecond)
}

func TestMetaWrapper(t *testing.T) {
	var seen map[meta.ContextKey]string
	q := query.Func[int, *conn](func(ctx context.Context, _ *conn) (int, error) {
		seen = meta.ExtractMetaFromContext(ctx)
		return 0, nil
	})

	t.Run("GeneratesTraceID", func(t *testing.T) {
		_, err := query.Chain[int, *conn](q, wrapper.NewMetaWrapper[int, *conn]("ListOrders")).
			Execute(context.Background(), &conn{})

		require.NoError(t, err)
		assert.Equal(t, "ListOrders", seen[meta.QueryName])
		assert.NotEmpty(t, seen[meta.TraceID])
	})

	t.Run("KeepsExistingTraceID", func(t *testing.T) {
		ctx := meta.InjectMetaToContext(context.Background(), map[meta.ContextKey]string{meta.TraceID: "req-42"})

		_, err := query.Chain[int, *conn](q, wrapper.NewMetaWrapper[int, *conn]("ListOrders")).
			Execute(ctx, &conn{})

		require.NoError(t, err)
		assert.Equal(t, "req-42", seen[meta.TraceID])
	})
}

func TestRetryWrapper(t *testing.T) {
	cfg := wrapper.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxJitter: time.Millisecond}
	errTransient := errors.New("serialization failure")

	flaky := func(failures int32, calls *atomic.Int32) query.Query[int, *conn] {
		return query.Func[int, *conn](func(context.Context, *conn) (int, error) {
			n := calls.Add(1)
			if n <= failures {
				return 0, errTransient
			}
			return int(n), nil
		})
	}

	t.Run("SucceedsAfterFailures", func(t *testing.T) {
		var calls atomic.Int32
		q := query.Chain(flaky(2, &calls), wrapper.NewRetryWrapper[int, *conn](cfg, nopLogger(t)))

		res, err := q.Execute(context.Background(), &conn{})

		require.NoError(t, err)
		assert.Equal(t, 3, res)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("ReturnsLastError", func(t *testing.T) {
		var calls atomic.Int32
		q := query.Chain(flaky(10, &calls), wrapper.NewRetryWrapper[int, *conn](cfg, nopLogger(t)))

		res, err := q.Execute(context.Background(), &conn{})

		assert.ErrorIs(t, err, errTransient)
		assert.Zero(t, res)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("RetryIf", func(t *testing.T) {
		var calls atomic.Int32
		q := query.Chain(flaky(10, &calls), wrapper.NewRetryWrapper[int, *conn](cfg, nopLogger(t),
			wrapper.WithRetryIf(func(error) bool { return false })))

		_, err := q.Execute(context.Background(), &conn{})

		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Disabled", func(t *testing.T) {
		var calls atomic.Int32
		disabled := cfg
		disabled.Disable = true
		q := query.Chain(flaky(10, &calls), wrapper.NewRetryWrapper[int, *conn](disabled, nopLogger(t)))

		_, err := q.Execute(context.Background(), &conn{})

		assert.Same(t, errTransient, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("WholeTransaction", func(t *testing.T) {
		rec := store.NewRecorder(&conn{})
		rec.FailCommits(errTransient)

		var attempts atomic.Int32
		staged := query.Func[int, *conn](func(context.Context, *conn) (int, error) {
			if attempts.Add(1) == 2 {
				rec.FailCommits(nil)
			}
			return 7, nil
		})

		q := query.Chain(store.InTx(staged),
			wrapper.NewRetryWrapper[int, store.TxRunner[*conn]](cfg, nopLogger(t)))

		res, err := q.Execute(context.Background(), rec)

		require.NoError(t, err)
		assert.Equal(t, 7, res)
		assert.Equal(t, 2, rec.Begins())
		assert.Equal(t, 1, rec.Rollbacks())
		assert.Equal(t, 1, rec.Commits())
	})
}

type sentAlert struct {
	code      string
	msg       string
	operation string
	details   map[string]string
}

type recordingProvider struct {
	sent chan sentAlert
	err  error
}

func newRecordingProvider(err error) *recordingProvider {
	return &recordingProvider{sent: make(chan sentAlert, 1), err: err}
}

func (p *recordingProvider) SendError(_ context.Context, code, msg, operation string, details map[string]string) error {
	p.sent <- sentAlert{code: code, msg: msg, operation: operation, details: details}
	return p.err
}

var _ alert.Provider = (*recordingProvider)(nil)

func TestAlertWrapper(t *testing.T) {
	t.Run("SendsOnFailure", func(t *testing.T) {
		p := newRecordingProvider(nil)
		errConflict := errx.New("order exists", errx.WithCode("OBJECT_CONFLICT"))
		q := query.Chain(constQuery(0, errConflict),
			wrapper.NewMetaWrapper[int, *conn]("InsertOrder"),
			wrapper.NewAlertWrapper[int, *conn](nopLogger(t), p, "InsertOrder"),
		)

		res, err := q.Execute(context.Background(), &conn{})

		assert.Equal(t, errConflict, err)
		assert.Zero(t, res)

		select {
		case got := <-p.sent:
			assert.Equal(t, "OBJECT_CONFLICT", got.code)
			assert.Equal(t, errConflict.Error(), got.msg)
			assert.Equal(t, "query: InsertOrder", got.operation)
			assert.Equal(t, "InsertOrder", got.details[string(meta.QueryName)])
			assert.NotEmpty(t, got.details[string(meta.TraceID)])
		case <-time.After(time.Second):
			t.Fatal("alert was not sent")
		}
	})

	t.Run("PlainErrorUsesDefaultCode", func(t *testing.T) {
		p := newRecordingProvider(nil)
		errDB := errors.New("db down")
		q := query.Chain(constQuery(0, errDB), wrapper.NewAlertWrapper[int, *conn](nopLogger(t), p, "CountOrders"))

		_, err := q.Execute(context.Background(), &conn{})

		assert.Same(t, errDB, err)
		select {
		case got := <-p.sent:
			assert.Equal(t, errx.DefaultCode, got.code)
		case <-time.After(time.Second):
			t.Fatal("alert was not sent")
		}
	})

	t.Run("SilentOnSuccess", func(t *testing.T) {
		p := newRecordingProvider(nil)
		q := query.Chain(constQuery(3, nil), wrapper.NewAlertWrapper[int, *conn](nopLogger(t), p, "CountOrders"))

		res, err := q.Execute(context.Background(), &conn{})

		require.NoError(t, err)
		assert.Equal(t, 3, res)
		assert.Empty(t, p.sent)
	})

	t.Run("ProviderFailureIsLogged", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		p := newRecordingProvider(errors.New("sentinel unavailable"))
		errDB := errors.New("db down")
		q := query.Chain(constQuery(0, errDB),
			wrapper.NewAlertWrapper[int, *conn](logger.NewWithCore(core), p, "CountOrders"))

		_, err := q.Execute(context.Background(), &conn{})

		assert.Same(t, errDB, err)
		require.Eventually(t, func() bool {
			return logs.FilterMessage("failed to send error alert").Len() == 1
		}, time.Second, 5*time.Millisecond)
		entry := logs.FilterMessage("failed to send error alert").All()[0]
		assert.Equal(t, "query.alerting", entry.LoggerName)
		assert.Equal(t, "sentinel unavailable", entry.ContextMap()["alert_send_error"])
	})

	t.Run("RollbackStillHappens", func(t *testing.T) {
		p := newRecordingProvider(nil)
		rec := store.NewRecorder(&conn{})
		errRule := errors.New("credit limit")
		q := query.Chain(constQuery(0, errRule), wrapper.NewAlertWrapper[int, *conn](nopLogger(t), p, "InsertOrder"))

		_, err := store.Execute(context.Background(), rec, q)

		assert.Same(t, errRule, err)
		assert.Equal(t, 1, rec.Rollbacks())
		assert.Zero(t, rec.Commits())
		select {
		case <-p.sent:
		case <-time.After(time.Second):
			t.Fatal("alert was not sent")
		}
	})
}
