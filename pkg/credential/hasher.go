package credential

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltLength is the number of characters prepended to every credential
	SaltLength = 10

	// SaltAlphabet is the symbol set salts are drawn from
	SaltAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// legacyDigestLength is the hex length of an md5 digest
	legacyDigestLength = md5.Size * 2
)

var (
	// ErrInvalidCredentialFormat is returned when a stored credential cannot be parsed
	ErrInvalidCredentialFormat = errors.New("invalid credential format")

	// ErrEmptyPassword is returned when attempting to hash an empty password
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Params holds the argon2id cost parameters
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultParams returns the OWASP-recommended argon2id parameters
func DefaultParams() Params {
	return Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		KeyLen:  32,
	}
}

// digestLength is the hex length of a digest produced with these params
func (p Params) digestLength() int {
	return int(p.KeyLen) * 2
}

// keyLabel is the fixed argon2 salt. The per-credential salt is mixed into the
// hashed input, so this only separates our digests from other argon2 users.
var keyLabel = []byte("vdjaccounts/credential/v1")

// Hasher salts, hashes and validates account passwords.
//
// A credential is the 10 character salt followed by the hex digest of
// argon2id(plaintext + salt).
type Hasher struct {
	params      Params
	allowLegacy bool
}

// Option configures a Hasher
type Option func(*Hasher)

// WithParams overrides the argon2id parameters
func WithParams(p Params) Option {
	return func(h *Hasher) {
		h.params = p
	}
}

// WithLegacyMD5 accepts md5 credentials during validation so they can be upgraded
func WithLegacyMD5(enabled bool) Option {
	return func(h *Hasher) {
		h.allowLegacy = enabled
	}
}

// NewHasher creates a new password hasher
func NewHasher(opts ...Option) *Hasher {
	h := &Hasher{params: DefaultParams()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GenerateSalt returns SaltLength characters drawn uniformly from SaltAlphabet
func (h *Hasher) GenerateSalt() (string, error) {
	return GenerateSalt()
}

// GenerateSalt returns SaltLength characters drawn uniformly from SaltAlphabet
func GenerateSalt() (string, error) {
	max := big.NewInt(int64(len(SaltAlphabet)))
	salt := make([]byte, SaltLength)
	for i := range salt {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		salt[i] = SaltAlphabet[n.Int64()]
	}
	return string(salt), nil
}

// Hash returns the deterministic hex digest of input
func (h *Hasher) Hash(input string) string {
	key := argon2.IDKey([]byte(input), keyLabel, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	return hex.EncodeToString(key)
}

// SaltAndHash generates a fresh salt and returns the credential for plaintext
func (h *Hasher) SaltAndHash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	salt, err := h.GenerateSalt()
	if err != nil {
		return "", err
	}

	return salt + h.Hash(plaintext+salt), nil
}

// Validate reports whether plaintext matches the stored credential.
// A malformed credential yields ErrInvalidCredentialFormat, never false.
func (h *Hasher) Validate(plaintext, stored string) (bool, error) {
	if len(stored) < SaltLength {
		return false, fmt.Errorf("%w: credential shorter than salt", ErrInvalidCredentialFormat)
	}

	salt, digest := stored[:SaltLength], stored[SaltLength:]

	var expected string
	switch {
	case len(digest) == h.params.digestLength():
		expected = h.Hash(plaintext + salt)
	case h.allowLegacy && len(digest) == legacyDigestLength:
		expected = legacyDigest(plaintext + salt)
	default:
		return false, fmt.Errorf("%w: unexpected digest length %d", ErrInvalidCredentialFormat, len(digest))
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) == 1, nil
}

// NeedsUpgrade returns true if the credential was produced by the legacy md5 scheme
func (h *Hasher) NeedsUpgrade(stored string) bool {
	return len(stored) == SaltLength+legacyDigestLength && h.params.digestLength() != legacyDigestLength
}

func legacyDigest(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
