package cache

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = stderrors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key string, value string) (bool, error)
	Close() error
}
