package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const resetKeyPrefix = "vdj:reset:"

// RedisResetStore keeps pending resets in Redis, expiring them with key TTLs
type RedisResetStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisResetStore creates a reset store backed by client
func NewRedisResetStore(client *redis.Client) *RedisResetStore {
	return &RedisResetStore{client: client, now: time.Now}
}

// Save records a pending reset keyed by token hash
func (s *RedisResetStore) Save(ctx context.Context, reset *PasswordReset) error {
	ttl := reset.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("reset for %s already expired", reset.Username)
	}

	if err := s.client.Set(ctx, resetKeyPrefix+reset.TokenHash, reset.Username, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes the reset
func (s *RedisResetStore) Consume(ctx context.Context, tokenHash string) (*PasswordReset, error) {
	key := resetKeyPrefix + tokenHash

	// TTL first so the caller sees the original expiry; GETDEL is what makes it single use
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ttl failed: %w", err)
	}

	username, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResetTokenInvalid
	} else if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}

	return &PasswordReset{
		TokenHash: tokenHash,
		Username:  username,
		ExpiresAt: s.now().Add(ttl),
	}, nil
}
