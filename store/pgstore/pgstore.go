// Package pgstore runs queries inside PostgreSQL transactions managed by bun.
//
// The execution context handed to queries is bun.IDB: a bun.Tx inside RunInTx,
// the bun.DB itself for Direct.
package pgstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/meta"
	"github.com/rise-and-shine/persist/store"
	"github.com/uptrace/bun"
)

// Error codes returned by the store itself. Query errors are never rewrapped.
const (
	CodeTxBegin  = "PGSTORE_TX_BEGIN_FAILED"
	CodeTxCommit = "PGSTORE_TX_COMMIT_FAILED"
)

const storeName = "pg"

var (
	_ store.TxRunner[bun.IDB] = (*Store)(nil)
	_ store.TxRunner[bun.IDB] = (*directRunner)(nil)
)

// Store opens one bun transaction per RunInTx call.
type Store struct {
	db     *bun.DB
	opts   *sql.TxOptions
	logger logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithReadOnly opens read-only transactions.
func WithReadOnly() Option {
	return func(s *Store) {
		s.opts.ReadOnly = true
	}
}

// WithIsolation sets the transaction isolation level.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(s *Store) {
		s.opts.Isolation = level
	}
}

// WithLogger sets the logger used for transaction outcome logs.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a Store on top of db.
//
// Panics if db is nil.
func New(db *bun.DB, opts ...Option) *Store {
	if db == nil {
		panic("pgstore.New : db must not be nil")
	}

	s := &Store{
		db:   db,
		opts: &sql.TxOptions{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("pgstore")
	}

	return s
}

// RunInTx implements store.TxRunner.
//
// The transaction is committed when fn returns nil and rolled back otherwise,
// including when fn panics. fn's error is returned unchanged.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, c bun.IDB) error) error {
	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{meta.StoreName: storeName})

	tx, err := s.db.BeginTx(ctx, s.opts)
	if err != nil {
		return errx.Wrap(err, errx.WithCode(CodeTxBegin))
	}

	var done bool
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.WithContext(ctx).With("rollback_error", rbErr.Error()).Warn("rollback failed")
		}
		s.logger.WithContext(ctx).Debug("transaction rolled back")
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, errx.WithCode(CodeTxCommit))
	}
	s.logger.WithContext(ctx).Debug("transaction committed")

	return nil
}

type directRunner struct {
	db *bun.DB
}

// Direct returns a runner that executes queries on db without a transaction.
// Suitable for reads where there is nothing to roll back.
func Direct(db *bun.DB) store.TxRunner[bun.IDB] {
	if db == nil {
		panic("pgstore.Direct : db must not be nil")
	}
	return &directRunner{db: db}
}

func (r *directRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, c bun.IDB) error) error {
	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{meta.StoreName: storeName})
	return fn(ctx, r.db)
}
