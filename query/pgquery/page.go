package pgquery

import (
	"context"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/persist/pg"
	"github.com/rise-and-shine/persist/query"
	"github.com/uptrace/bun"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest selects one page of a listing. Numbers start at 1.
type PageRequest struct {
	Number int `json:"page_number" query:"page_number"`
	Size   int `json:"page_size"   query:"page_size"`
}

// Normalize applies defaults and caps Size at 100.
func (r *PageRequest) Normalize() {
	if r.Number <= 0 {
		r.Number = 1
	}
	if r.Size <= 0 {
		r.Size = defaultPageSize
	}
	if r.Size > maxPageSize {
		r.Size = maxPageSize
	}
}

// PageResult is one page of entities plus totals over all pages.
type PageResult[E any] struct {
	Number     int   `json:"page_number"`
	Size       int   `json:"page_size"`
	PageCount  int   `json:"page_count"`
	TotalCount int64 `json:"total_count"`
	Items      []E   `json:"page_content"`
}

// Page returns a query selecting the requested page of entities matching filters,
// along with the total number of matches.
func Page[E any](req PageRequest, filters ...Filter) query.Query[PageResult[E], bun.IDB] {
	req.Normalize()

	return query.Func[PageResult[E], bun.IDB](func(ctx context.Context, idb bun.IDB) (PageResult[E], error) {
		entities := make([]E, 0)
		q := applyFilters(idb.NewSelect().Model(&entities), filters).
			Limit(req.Size).
			Offset((req.Number - 1) * req.Size)

		total, err := q.ScanAndCount(ctx)
		if err != nil {
			return PageResult[E]{}, errx.Wrap(err, errx.WithDetails(pg.GetPgErrorDetails(err, q)))
		}

		pageCount := total / req.Size
		if total%req.Size > 0 {
			pageCount++
		}

		return PageResult[E]{
			Number:     req.Number,
			Size:       req.Size,
			PageCount:  pageCount,
			TotalCount: int64(total),
			Items:      entities,
		}, nil
	})
}

// OrderBy parses a sort string such as "amount:desc,number:asc" into an ORDER BY filter.
// Pairs naming a column outside allowed or an unknown direction are skipped.
func OrderBy(sort string, allowed ...string) Filter {
	type order struct {
		column string
		desc   bool
	}

	var orders []order
	for pair := range strings.SplitSeq(sort, ",") {
		column, dir, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		column = strings.TrimSpace(column)
		if !slices.Contains(allowed, column) {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "asc":
			orders = append(orders, order{column: column})
		case "desc":
			orders = append(orders, order{column: column, desc: true})
		}
	}

	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, o := range orders {
			if o.desc {
				q = q.OrderExpr("? DESC", bun.Ident(o.column))
			} else {
				q = q.OrderExpr("? ASC", bun.Ident(o.column))
			}
		}
		return q
	}
}
