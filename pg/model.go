package pg

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Timestamps can be embedded in bun models next to bun.BaseModel to maintain
// created_at and updated_at columns.
type Timestamps struct {
	CreatedAt time.Time `bun:",nullzero" json:"created_at"`
	UpdatedAt time.Time `bun:",nullzero" json:"updated_at"`
}

var _ bun.BeforeAppendModelHook = (*Timestamps)(nil)

// BeforeAppendModel sets both timestamps on insert and UpdatedAt on update.
// A CreatedAt set by the caller is kept.
func (m *Timestamps) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now()
	switch query.(type) {
	case *bun.InsertQuery:
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
	case *bun.UpdateQuery:
		m.UpdatedAt = now
	}
	return nil
}
