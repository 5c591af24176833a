// Package rediswr builds go-redis clients from configuration.
package rediswr

import (
	"context"
	"strings"

	"github.com/code19m/errx"
	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client. The client is not connected until first use.
func New(cfg Config) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:         strings.Split(cfg.Addrs, ","),
		Username:      cfg.Username,
		Password:      cfg.Password,
		DB:            cfg.DB,
		IsClusterMode: cfg.IsClusterMode,
	})
}

// Ping verifies that the server behind client is reachable.
func Ping(ctx context.Context, client redis.Cmdable) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return errx.Wrap(err)
	}
	return nil
}
