package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/spherical/cv-extractor/internal/domain"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisClientResults(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisClient(ctx, RedisConfig{Addr: addr, Prefix: "test:"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(ctx))

	doc := domain.NewSourceDocument("cv.txt", domain.MediaTypeText, []byte("Jane Doe"))
	_, err = c.Get(ctx, ResultKey(doc))
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, ResultKey(doc), []byte(`{"text":"Jane Doe"}`), time.Minute))

	got, err := c.Get(ctx, ResultKey(doc))
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Jane Doe"}`, string(got))

	// a second instance with the same prefix sees the result
	peer, err := NewRedisClient(ctx, RedisConfig{URL: "redis://" + addr + "/0", Prefix: "test:"})
	require.NoError(t, err)
	defer peer.Close()
	_, err = peer.Get(ctx, ResultKey(doc))
	assert.NoError(t, err)

	other, err := NewRedisClient(ctx, RedisConfig{Addr: addr, Prefix: "other:"})
	require.NoError(t, err)
	defer other.Close()
	_, err = other.Get(ctx, ResultKey(doc))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisClientTTL(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisClient(ctx, RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 100*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return err == ErrCacheMiss
	}, 3*time.Second, 50*time.Millisecond)

	err = c.Set(ctx, "forever", []byte("v"), 0)
	assert.Equal(t, domain.ErrorTypeValidation, domain.KindOf(err))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{Addr: "127.0.0.1:1", DialTimeout: time.Second})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeIO, domain.KindOf(err))
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
