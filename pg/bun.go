// Package pg provides PostgreSQL connections for bun-backed stores.
//
// It builds a pgx pool, opens a bun.DB on top of it with logging and OpenTelemetry query
// hooks, and offers helpers for classifying PostgreSQL errors.
package pg

import (
	"github.com/code19m/errx"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rise-and-shine/persist/pg/hooks"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/extra/bunotel"
)

// NewBunDB creates a new Bun database connection with the provided configuration.
func NewBunDB(cfg Config) (*bun.DB, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	sqldb := stdlib.OpenDBFromPool(pool)

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	applyHooks(bunDB, cfg)

	return bunDB, nil
}

// applyHooks adds the debug logging hook (active only when cfg.Debug is set)
// and the OpenTelemetry hook (always on).
func applyHooks(db *bun.DB, cfg Config) {
	db.AddQueryHook(
		hooks.NewDebugHook(
			hooks.WithEnabled(cfg.Debug),
			hooks.WithVerbose(true),
			hooks.WithSlowQueryThreshold(cfg.SlowQueryThreshold),
		),
	)

	db.AddQueryHook(bunotel.NewQueryHook(bunotel.WithDBName(cfg.Database)))
}
