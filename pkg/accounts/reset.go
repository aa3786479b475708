package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// ResetTokenPrefix identifies password reset tokens
	ResetTokenPrefix = "vdjreset_"

	// ResetTokenLength is the number of random bytes in a reset token
	ResetTokenLength = 32

	// DefaultResetTTL is how long a reset token stays redeemable
	DefaultResetTTL = time.Hour
)

// PasswordReset is a pending reset. Only the token hash is ever stored.
type PasswordReset struct {
	TokenHash string
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the reset can no longer be redeemed at now
func (r *PasswordReset) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// GenerateResetToken creates a new reset token.
// Format: vdjreset_<base64url(32 random bytes)>
func GenerateResetToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, ResetTokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = ResetTokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	return token, HashResetToken(token), nil
}

// HashResetToken computes the SHA256 hash used to look a token up
func HashResetToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateResetTokenFormat checks prefix and encoding before any store lookup
func ValidateResetTokenFormat(token string) error {
	encoded, ok := strings.CutPrefix(token, ResetTokenPrefix)
	if !ok {
		return fmt.Errorf("token must start with %q", ResetTokenPrefix)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	if len(raw) != ResetTokenLength {
		return fmt.Errorf("token has %d random bytes, want %d", len(raw), ResetTokenLength)
	}
	return nil
}

// ResetStore keeps pending password resets
type ResetStore interface {
	// Save records a pending reset
	Save(ctx context.Context, reset *PasswordReset) error

	// Consume atomically removes and returns the reset for tokenHash.
	// Unknown, expired and already used tokens yield ErrResetTokenInvalid.
	Consume(ctx context.Context, tokenHash string) (*PasswordReset, error)
}

// MemoryResetStore is an in-process ResetStore
type MemoryResetStore struct {
	mu      sync.Mutex
	pending map[string]PasswordReset
	now     func() time.Time
}

// NewMemoryResetStore creates an empty in-memory reset store
func NewMemoryResetStore() *MemoryResetStore {
	return &MemoryResetStore{
		pending: make(map[string]PasswordReset),
		now:     time.Now,
	}
}

// Save records a pending reset
func (s *MemoryResetStore) Save(ctx context.Context, reset *PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.pending[reset.TokenHash] = *reset
	return nil
}

// Consume removes and returns the reset for tokenHash
func (s *MemoryResetStore) Consume(ctx context.Context, tokenHash string) (*PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset, ok := s.pending[tokenHash]
	if !ok {
		return nil, ErrResetTokenInvalid
	}
	delete(s.pending, tokenHash)

	if reset.Expired(s.now()) {
		return nil, ErrResetTokenInvalid
	}
	return &reset, nil
}

func (s *MemoryResetStore) pruneLocked() {
	now := s.now()
	for hash, reset := range s.pending {
		if reset.Expired(now) {
			delete(s.pending, hash)
		}
	}
}
