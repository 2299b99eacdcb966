package service

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key does not exist.
var ErrCacheMiss = errors.New("cache: miss")

// Cache is the ephemeral store behind presence sets, message history and
// deal snapshots. Every write carries its own expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// ListRange returns ErrCacheMiss when the list does not exist.
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	// ListReplace overwrites the list with values in order.
	ListReplace(ctx context.Context, key string, values [][]byte, ttl time.Duration) error
	// ListAppend pushes value onto the tail of an existing list, keeps the
	// last window entries and refreshes the expiry. It reports false and
	// writes nothing when the list does not exist.
	ListAppend(ctx context.Context, key string, value []byte, window int64, ttl time.Duration) (bool, error)

	SetAdd(ctx context.Context, key, member string, ttl time.Duration) error
	SetRemove(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
