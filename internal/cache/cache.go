// Package cache stores extraction results keyed by document digest.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spherical/cv-extractor/internal/domain"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client stores encoded extraction results. Get reports ErrCacheMiss for
// absent or expired keys; Ping backs the readiness check.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects a cache driver.
type Options struct {
	Driver     string // none, memory or redis
	MaxEntries int
	Redis      RedisConfig
}

// Open builds the client named by opts.Driver. The none driver returns a
// nil Client.
func Open(ctx context.Context, opts Options) (Client, error) {
	switch opts.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryClient(opts.MaxEntries), nil
	case "redis":
		c, err := NewRedisClient(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown cache driver %q", opts.Driver), nil)
	}
}

// CacheKey generates a cache key from components.
func CacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// ResultKey is the key under which the extraction result of doc is stored.
func ResultKey(doc domain.SourceDocument) string {
	return CacheKey("extract", doc.Digest(), string(doc.MediaType))
}
