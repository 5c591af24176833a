package store

import (
	"context"
	"sync"
)

// Recorder is an in-memory TxRunner that always hands out the same execution context
// and counts how its scopes ended. It is meant for tests of code built on TxRunner.
type Recorder[C any] struct {
	c C

	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int
	commitErr error
}

// NewRecorder creates a Recorder handing out c.
func NewRecorder[C any](c C) *Recorder[C] {
	return &Recorder[C]{c: c}
}

// FailCommits makes every following commit fail with err. Pass nil to reset.
func (r *Recorder[C]) FailCommits(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErr = err
}

// RunInTx implements TxRunner.
func (r *Recorder[C]) RunInTx(ctx context.Context, fn func(ctx context.Context, c C) error) error {
	r.mu.Lock()
	r.begins++
	r.mu.Unlock()

	if err := fn(ctx, r.c); err != nil {
		r.mu.Lock()
		r.rollbacks++
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commitErr != nil {
		r.rollbacks++
		return r.commitErr
	}
	r.commits++
	return nil
}

// Begins returns the number of scopes opened so far.
func (r *Recorder[C]) Begins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begins
}

// Commits returns the number of committed scopes.
func (r *Recorder[C]) Commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

// Rollbacks returns the number of rolled back scopes.
func (r *Recorder[C]) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}
