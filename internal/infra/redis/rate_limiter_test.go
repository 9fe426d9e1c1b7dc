//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memClient is an in-memory RedisClient for counter tests.
type memClient struct {
	counts  map[string]int64
	expires map[string]time.Duration
}

func newMemClient() *memClient {
	return &memClient{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (m *memClient) Ping(context.Context) error { return nil }
func (m *memClient) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (m *memClient) Get(context.Context, string) (string, error) { return "", nil }
func (m *memClient) Incr(_ context.Context, key string) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}
func (m *memClient) Expire(_ context.Context, key string, d time.Duration) error {
	m.expires[key] = d
	return nil
}
func (m *memClient) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.counts, k)
	}
	return nil
}
func (m *memClient) Close() error { return nil }

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow up to the limit and reject after", func(t *testing.T) {
		cli := newMemClient()
		rl := NewRateLimiter(cli)

		for i := 0; i < 3; i++ {
			ok, err := rl.Allow(ctx, "k", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "call %d should pass", i+1)
		}
		ok, err := rl.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should set the window only on the first hit", func(t *testing.T) {
		cli := newMemClient()
		rl := NewRateLimiter(cli)

		_, _ = rl.Allow(ctx, "w", 10, 30*time.Second)
		assert.Equal(t, 30*time.Second, cli.expires["w"])
		cli.expires["w"] = 0
		_, _ = rl.Allow(ctx, "w", 10, 30*time.Second)
		assert.Zero(t, cli.expires["w"])
	})
}

func TestVerifyClientKey(t *testing.T) {
	now := time.Unix(120, 0)
	assert.Equal(t, "rate_limit:verify:key-1:2", VerifyClientKey("key-1", now))
}
