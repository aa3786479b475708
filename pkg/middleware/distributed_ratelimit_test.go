package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, config *RateLimitConfig) (*DistributedRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDistributedRateLimiter(client, config, "test"), mr
}

func TestDistributedRateLimiter_Allow(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	limiter, mr := newRedisLimiter(t, config)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, allowed(t, limiter, "ip:1.2.3.4"), "request %d", i)
	}
	assert.False(t, allowed(t, limiter, "ip:1.2.3.4"))
	assert.True(t, allowed(t, limiter, "ip:5.6.7.8"))

	ttl, err := limiter.TTL(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, allowed(t, limiter, "ip:1.2.3.4"))
}

func TestDistributedRateLimiter_WindowNotExtended(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}
	limiter, mr := newRedisLimiter(t, config)

	allowed(t, limiter, "k")
	mr.FastForward(40 * time.Second)
	allowed(t, limiter, "k")

	assert.Equal(t, 20*time.Second, mr.TTL("test:k"))
}

func TestDistributedRateLimiter_RepairsMissingExpiry(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}
	limiter, mr := newRedisLimiter(t, config)

	require.NoError(t, mr.Set("test:k", "4"))
	assert.True(t, allowed(t, limiter, "k"))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))
}

func TestDistributedRateLimiter_RemainingAndReset(t *testing.T) {
	config := &RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute}
	limiter, _ := newRedisLimiter(t, config)
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	allowed(t, limiter, "k")
	allowed(t, limiter, "k")
	remaining, err = limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	require.NoError(t, limiter.Reset(ctx, "k"))
	remaining, err = limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	limiter, mr := newRedisLimiter(t, nil)
	mr.Close()

	ok, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDistributedRateLimiter_Middleware(t *testing.T) {
	logger, _ := test.NewNullLogger()
	config := &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	limiter, mr := newRedisLimiter(t, config)
	h := NewRateLimitMiddleware(limiter, config, "reset", logger).Handler(okHandler())

	send := func() int {
		req := httptest.NewRequest("POST", "/user/reset-password", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
	assert.True(t, mr.Exists("test:reset:ip:198.51.100.7"))
}
