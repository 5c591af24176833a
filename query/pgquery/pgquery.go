// Package pgquery provides ready-made queries for bun models.
//
// Every constructor returns a query.Query executed against bun.IDB, so the same query
// runs inside a pgstore transaction or directly on the database, and can be wrapped in
// a query.Decorator to attach business hooks.
package pgquery

import (
	"context"
	"fmt"
	"reflect"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/persist/pg"
	"github.com/rise-and-shine/persist/query"
	"github.com/uptrace/bun"
)

// Error codes.
const (
	CodeNotFound      = "OBJECT_NOT_FOUND"
	CodeMultipleFound = "MULTIPLE_ROWS_FOUND"
	CodeConflict      = "OBJECT_CONFLICT"
	CodeRowsAffected  = "INCORRECT_ROWS_AFFECTION"
)

// Filter narrows a select query.
type Filter func(q *bun.SelectQuery) *bun.SelectQuery

// Insert returns a query inserting entity and refreshing it from the RETURNING clause.
//
// A unique constraint violation is reported with CodeConflict and the constraint name in details.
func Insert[E any](entity *E) query.Query[*E, bun.IDB] {
	return query.Func[*E, bun.IDB](func(ctx context.Context, idb bun.IDB) (*E, error) {
		q := idb.NewInsert().Model(entity).Returning("*")
		_, err := q.Exec(ctx)
		if err != nil {
			return nil, wrapWriteErr(err, q, "creating", entity)
		}
		return entity, nil
	})
}

// Update returns a query updating entity by primary key.
// Exactly one row must be affected.
func Update[E any](entity *E) query.Query[*E, bun.IDB] {
	return query.Func[*E, bun.IDB](func(ctx context.Context, idb bun.IDB) (*E, error) {
		q := idb.NewUpdate().Model(entity).WherePK()
		res, err := q.Exec(ctx)
		if err != nil {
			return nil, wrapWriteErr(err, q, "updating", entity)
		}
		if err := checkOneRow(res, q, "update", entity); err != nil {
			return nil, err
		}
		return entity, nil
	})
}

// Delete returns a query deleting entity by primary key.
// Exactly one row must be affected.
func Delete[E any](entity *E) query.Query[*E, bun.IDB] {
	return query.Func[*E, bun.IDB](func(ctx context.Context, idb bun.IDB) (*E, error) {
		q := idb.NewDelete().Model(entity).WherePK()
		res, err := q.Exec(ctx)
		if err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
		}
		if err := checkOneRow(res, q, "delete", entity); err != nil {
			return nil, err
		}
		return entity, nil
	})
}

// Get returns a query selecting exactly one entity matching filters.
//
// No match is reported with CodeNotFound, more than one with CodeMultipleFound.
func Get[E any](filters ...Filter) query.Query[*E, bun.IDB] {
	return query.Func[*E, bun.IDB](func(ctx context.Context, idb bun.IDB) (*E, error) {
		entities := make([]E, 0)
		q := applyFilters(idb.NewSelect().Model(&entities), filters).Limit(2) //nolint:mnd // 2 detects duplicates

		if err := q.Scan(ctx); err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
		}

		switch len(entities) {
		case 0:
			return nil, errx.New(
				fmt.Sprintf("no %s found", nameOf[E]()),
				errx.WithCode(CodeNotFound),
				errx.WithDetails(pg.GetPgErrorDetails(nil, q)),
			)
		case 1:
			return &entities[0], nil
		default:
			return nil, errx.New(
				fmt.Sprintf("multiple %s found", nameOf[E]()),
				errx.WithCode(CodeMultipleFound),
				errx.WithDetails(pg.GetPgErrorDetails(nil, q)),
			)
		}
	})
}

// List returns a query selecting all entities matching filters.
func List[E any](filters ...Filter) query.Query[[]E, bun.IDB] {
	return query.Func[[]E, bun.IDB](func(ctx context.Context, idb bun.IDB) ([]E, error) {
		entities := make([]E, 0)
		q := applyFilters(idb.NewSelect().Model(&entities), filters)

		if err := q.Scan(ctx); err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
		}
		return entities, nil
	})
}

// Count returns a query counting entities matching filters.
func Count[E any](filters ...Filter) query.Query[int, bun.IDB] {
	return query.Func[int, bun.IDB](func(ctx context.Context, idb bun.IDB) (int, error) {
		q := applyFilters(idb.NewSelect().Model((*E)(nil)), filters)

		count, err := q.Count(ctx)
		if err != nil {
			return 0, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
		}
		return count, nil
	})
}

// Exists returns a query reporting whether any entity matches filters.
func Exists[E any](filters ...Filter) query.Query[bool, bun.IDB] {
	return query.Func[bool, bun.IDB](func(ctx context.Context, idb bun.IDB) (bool, error) {
		q := applyFilters(idb.NewSelect().Model((*E)(nil)), filters)

		exists, err := q.Exists(ctx)
		if err != nil {
			return false, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
		}
		return exists, nil
	})
}

func applyFilters(q *bun.SelectQuery, filters []Filter) *bun.SelectQuery {
	for _, f := range filters {
		q = f(q)
	}
	return q
}

func wrapWriteErr[E any](err error, q fmt.Stringer, action string, _ *E) error {
	if pg.IsConflict(err) {
		details := pg.GetPgErrorDetails(err, q)
		return errx.New(
			fmt.Sprintf("conflict while %s %s", action, nameOf[E]()),
			errx.WithCode(CodeConflict),
			errx.WithDetails(details),
		)
	}
	return errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func checkOneRow[E any](res rowsAffecter, q fmt.Stringer, action string, _ *E) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
	}
	if n != 1 {
		return errx.New(
			fmt.Sprintf("expected 1 %s to %s, got %d", nameOf[E](), action, n),
			errx.WithCode(CodeRowsAffected),
			errx.WithDetails(pg.GetPgErrorDetails(nil, q)),
		)
	}
	return nil
}

func nameOf[E any]() string {
	t := reflect.TypeOf((*E)(nil)).Elem()
	return t.Name()
}
