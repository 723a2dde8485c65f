package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("key not found in cache")
	ErrInvalidValue = errors.New("invalid value for cache")
	ErrClosed       = errors.New("cache is closed")
)

type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Get returns ErrNotFound for a missing or expired key.
	Get(ctx context.Context, key string) (string, error)

	Delete(ctx context.Context, key string) error

	Close() error
}

type Options struct {
	DefaultTTL time.Duration

	RedisAddr string

	RedisPassword string

	RedisDB int
}

func DefaultOptions() Options {
	return Options{
		DefaultTTL: 6 * time.Hour,
	}
}
