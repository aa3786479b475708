package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthCache(t *testing.T) {
	cache := NewAuthCache(10, time.Minute)

	assert.False(t, cache.Contains("alice", "pw", "cred1"))
	cache.Remember("alice", "pw", "cred1")
	assert.True(t, cache.Contains("alice", "pw", "cred1"))

	assert.False(t, cache.Contains("alice", "wrong", "cred1"))
	assert.False(t, cache.Contains("alice", "pw", "cred2"), "a new credential invalidates the entry")
	assert.False(t, cache.Contains("bob", "pw", "cred1"))

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(4), stats.Misses)
	assert.Equal(t, 1, stats.Size)

	cache.Purge()
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestAuthCache_KeySeparation(t *testing.T) {
	// concatenation alone would collide here
	assert.NotEqual(t, authCacheKey("ab", "c", "d"), authCacheKey("a", "bc", "d"))
}

func TestAuthCache_Expiry(t *testing.T) {
	cache := NewAuthCache(10, 20*time.Millisecond)
	cache.Remember("alice", "pw", "cred")

	assert.Eventually(t, func() bool {
		return !cache.Contains("alice", "pw", "cred")
	}, time.Second, 10*time.Millisecond)
}

func TestNewAuthCache_Defaults(t *testing.T) {
	cache := NewAuthCache(0, 0)
	cache.Remember("alice", "pw", "cred")
	assert.True(t, cache.Contains("alice", "pw", "cred"))
}
