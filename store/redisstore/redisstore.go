// Package redisstore runs queries inside Redis MULTI/EXEC transactions.
//
// The execution context handed to queries is a redis.Pipeliner. Commands queued on it
// are sent atomically only when the query succeeds; when it fails they are discarded
// and never reach the server.
//
// Command results are not available until the transaction executes, so queries on this
// store are typically writes that return the queued commands or an identifier they computed.
package redisstore

import (
	"context"

	"github.com/code19m/errx"
	"github.com/redis/go-redis/v9"
	"github.com/rise-and-shine/persist/logger"
	"github.com/rise-and-shine/persist/meta"
	"github.com/rise-and-shine/persist/store"
)

// CodeExec is the error code for a failed EXEC of a transaction.
const CodeExec = "REDISSTORE_EXEC_FAILED"

const storeName = "redis"

var _ store.TxRunner[redis.Pipeliner] = (*Store)(nil)

// Store queues query commands in a MULTI/EXEC pipeline.
type Store struct {
	client redis.Cmdable
	logger logger.Logger
}

// New creates a Store using client.
//
// Panics if client is nil.
func New(client redis.Cmdable, l logger.Logger) *Store {
	if client == nil {
		panic("redisstore.New : client must not be nil")
	}
	if l == nil {
		l = logger.Named("redisstore")
	}
	return &Store{client: client, logger: l}
}

// RunInTx implements store.TxRunner.
//
// fn's error is returned unchanged and nothing is sent to the server.
// Errors of the EXEC itself, including failures of individual queued commands,
// are wrapped with CodeExec.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, c redis.Pipeliner) error) error {
	ctx = meta.InjectMetaToContext(ctx, map[meta.ContextKey]string{meta.StoreName: storeName})

	var fnErr error
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fnErr = fn(ctx, pipe)
		return fnErr
	})

	if fnErr != nil {
		s.logger.WithContext(ctx).Debug("transaction discarded")
		return fnErr
	}
	if err != nil {
		return errx.Wrap(err, errx.WithCode(CodeExec))
	}

	s.logger.WithContext(ctx).Debug("transaction executed")
	return nil
}
