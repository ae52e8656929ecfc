package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spherical/cv-extractor/internal/domain"
)

const (
	defaultRedisPrefix = "cvx:"
	defaultDialTimeout = 5 * time.Second
)

// RedisConfig locates the Redis server holding extraction results. URL,
// when set, takes precedence over Addr and DB.
type RedisConfig struct {
	URL         string
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	Prefix      string
	DialTimeout time.Duration
}

func (cfg RedisConfig) options() (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Addr, DB: cfg.DB}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, domain.ConfigError("parse redis url", err)
		}
		opts = parsed
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = cfg.DialTimeout
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	return opts, nil
}

// RedisClient keeps extraction results in Redis under a shared prefix, so
// several extractor instances reuse each other's work.
type RedisClient struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisClient connects to Redis and verifies the server answers before
// returning.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, domain.IOError(fmt.Sprintf("connect redis at %s", opts.Addr), err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisClient{rdb: rdb, prefix: prefix}, nil
}

func (c *RedisClient) key(k string) string { return c.prefix + k }

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, domain.IOError("redis get "+key, err)
	}
	return val, nil
}

// Set stores value for ttl. A non-positive ttl is refused because Redis
// would keep the entry forever.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return domain.ValidationError(fmt.Sprintf("cache ttl must be positive, got %s", ttl), nil)
	}
	if err := c.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return domain.IOError("redis set "+key, err)
	}
	return nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return domain.IOError("redis ping", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
