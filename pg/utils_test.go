package pg_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rise-and-shine/persist/pg"
	"github.com/stretchr/testify/assert"
)

type panickyQuery struct{}

func (panickyQuery) String() string { panic("model is not set") }

type plainQuery string

func (q plainQuery) String() string { return string(q) }

func TestErrorClassification(t *testing.T) {
	conflict := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "orders_number_key"})
	deadlock := &pgconn.PgError{Code: "40P01"}
	serialization := &pgconn.PgError{Code: "40001"}
	plain := errors.New("plain")

	assert.True(t, pg.IsConflict(conflict))
	assert.False(t, pg.IsConflict(plain))
	assert.Equal(t, "orders_number_key", pg.ConstraintName(conflict))
	assert.Empty(t, pg.ConstraintName(plain))

	assert.True(t, pg.IsRetryable(deadlock))
	assert.True(t, pg.IsRetryable(serialization))
	assert.False(t, pg.IsRetryable(conflict))

	assert.True(t, pg.IsNotFound(fmt.Errorf("get: %w", sql.ErrNoRows)))
	assert.False(t, pg.IsNotFound(plain))
}

func TestGetPgErrorDetails(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", TableName: "orders", ConstraintName: "orders_number_key"}

	details := pg.GetPgErrorDetails(err, plainQuery(`INSERT INTO "orders"`))

	assert.Equal(t, "INSERT INTO orders", details["query"])
	assert.Equal(t, "23505", details["pg.code"])
	assert.Equal(t, "orders", details["pg.table"])
	assert.Equal(t, "orders_number_key", details["pg.constraint"])
}

func TestGetPgErrorDetails_PanickyQuery(t *testing.T) {
	assert.NotPanics(t, func() {
		details := pg.GetPgErrorDetails(errors.New("x"), panickyQuery{})
		assert.Empty(t, details)
	})
}
