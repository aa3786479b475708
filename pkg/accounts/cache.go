package accounts

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultAuthCacheSize is the number of successful checks remembered
	DefaultAuthCacheSize = 1024

	// DefaultAuthCacheTTL bounds how long a successful check is trusted
	DefaultAuthCacheTTL = 5 * time.Minute
)

// AuthCache remembers recent successful password checks.
// Entries are keyed on the stored credential too, so a password change
// invalidates them without explicit eviction.
type AuthCache struct {
	cache  *lru.LRU[string, struct{}]
	hits   atomic.Int64
	misses atomic.Int64
}

// AuthCacheStats holds cache counters
type AuthCacheStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// NewAuthCache creates a cache holding up to size entries for ttl
func NewAuthCache(size int, ttl time.Duration) *AuthCache {
	if size <= 0 {
		size = DefaultAuthCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultAuthCacheTTL
	}
	return &AuthCache{
		cache: lru.NewLRU[string, struct{}](size, nil, ttl),
	}
}

// Contains reports whether this exact check recently succeeded
func (c *AuthCache) Contains(username, plaintext, stored string) bool {
	if _, ok := c.cache.Get(authCacheKey(username, plaintext, stored)); ok {
		c.hits.Add(1)
		return true
	}
	c.misses.Add(1)
	return false
}

// Remember records a successful check
func (c *AuthCache) Remember(username, plaintext, stored string) {
	c.cache.Add(authCacheKey(username, plaintext, stored), struct{}{})
}

// Purge drops every entry
func (c *AuthCache) Purge() {
	c.cache.Purge()
}

// Stats returns hit, miss and size counters
func (c *AuthCache) Stats() AuthCacheStats {
	return AuthCacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}

func authCacheKey(username, plaintext, stored string) string {
	h := sha256.New()
	for _, part := range []string{username, plaintext, stored} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
