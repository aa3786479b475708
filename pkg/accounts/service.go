package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/vdjaccounts/pkg/credential"
)

// ProfileRegistrar mirrors new accounts onto the external platform
type ProfileRegistrar interface {
	RegisterProfile(ctx context.Context, account *Account) error
}

// ResetNotifier delivers a reset token to the account holder
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, account *Account, token string, expiresAt time.Time) error
}

// Recorder receives account operation outcomes, typically for metrics
type Recorder interface {
	RecordAccountOperation(operation, outcome string)
	RecordAuthCache(hit bool)
}

// Service implements the account lifecycle on top of a Store
type Service struct {
	store     Store
	resets    ResetStore
	hasher    *credential.Hasher
	registrar ProfileRegistrar
	notifier  ResetNotifier
	recorder  Recorder
	cache     *AuthCache
	resetTTL  time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithResetStore sets where pending resets are kept
func WithResetStore(resets ResetStore) ServiceOption {
	return func(s *Service) { s.resets = resets }
}

// WithRegistrar enables platform profile registration on Register
func WithRegistrar(registrar ProfileRegistrar) ServiceOption {
	return func(s *Service) { s.registrar = registrar }
}

// WithNotifier sets the reset email sender
func WithNotifier(notifier ResetNotifier) ServiceOption {
	return func(s *Service) { s.notifier = notifier }
}

// WithRecorder sets the outcome recorder
func WithRecorder(recorder Recorder) ServiceOption {
	return func(s *Service) { s.recorder = recorder }
}

// WithAuthCache replaces the authentication cache; nil disables caching
func WithAuthCache(cache *AuthCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithResetTTL sets how long reset tokens stay valid
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// NewService creates an account service
func NewService(store Store, hasher *credential.Hasher, logger *logrus.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		store:    store,
		resets:   NewMemoryResetStore(),
		hasher:   hasher,
		cache:    NewAuthCache(DefaultAuthCacheSize, DefaultAuthCacheTTL),
		resetTTL: DefaultResetTTL,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates and creates a new account, then mirrors it onto the platform.
// A platform failure removes the local account again.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (account *Account, err error) {
	defer func() { s.record("register", err) }()

	username := strings.TrimSpace(req.Username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, newValidationError("password", "is required")
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.SaltAndHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account = &Account{
		Username:  username,
		Email:     email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Country:   strings.TrimSpace(req.Country),
		Password:  hashed,
		CreatedAt: s.now().UTC(),
	}

	if _, err := s.store.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	if s.registrar != nil {
		if regErr := s.registrar.RegisterProfile(ctx, account); regErr != nil {
			s.logger.WithError(regErr).WithField("username", username).Warn("Platform registration failed, removing local account")
			if delErr := s.store.Delete(ctx, account.ID); delErr != nil {
				return nil, fmt.Errorf("%w: %w (rollback failed: %v)", ErrPlatformRegistration, regErr, delErr)
			}
			return nil, fmt.Errorf("%w: %w", ErrPlatformRegistration, regErr)
		}
	}

	s.logger.WithField("username", username).Info("Account registered")
	return account, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}

// Authenticate checks a username and password pair.
// Legacy credentials are rehashed once the check succeeds.
func (s *Service) Authenticate(ctx context.Context, username, plaintext string) (account *Account, err error) {
	defer func() { s.record("authenticate", err) }()

	if username == "" {
		return nil, newValidationError("username", "is required")
	}
	if plaintext == "" {
		return nil, newValidationError("password", "is required")
	}

	account, err = s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		hit := s.cache.Contains(username, plaintext, account.Password)
		if s.recorder != nil {
			s.recorder.RecordAuthCache(hit)
		}
		if hit {
			return account, nil
		}
	}

	ok, err := s.hasher.Validate(plaintext, account.Password)
	if err != nil {
		return nil, fmt.Errorf("stored credential for %s: %w", username, err)
	}
	if !ok {
		return nil, ErrInvalidPassword
	}

	if s.hasher.NeedsUpgrade(account.Password) {
		s.upgradeCredential(ctx, account, plaintext)
	}

	if s.cache != nil {
		s.cache.Remember(username, plaintext, account.Password)
	}
	return account, nil
}

// upgradeCredential rehashes a legacy credential. Failure leaves the legacy
// credential in place and the login still succeeds.
func (s *Service) upgradeCredential(ctx context.Context, account *Account, plaintext string) {
	log := s.logger.WithField("username", account.Username)

	hashed, err := s.hasher.SaltAndHash(plaintext)
	if err != nil {
		log.WithError(err).Warn("Failed to rehash legacy credential")
		return
	}

	previous := account.Password
	account.Password = hashed
	if err := s.store.Update(ctx, account); err != nil {
		account.Password = previous
		log.WithError(err).Warn("Failed to store upgraded credential")
		return
	}
	log.Info("Upgraded legacy credential")
}

// GetAccount loads an account by username
func (s *Service) GetAccount(ctx context.Context, username string) (*Account, error) {
	return s.store.FindByUsername(ctx, username)
}

// UpdateProfile applies the non-empty fields of update to the account.
// A new password is salted and hashed before it is stored.
func (s *Service) UpdateProfile(ctx context.Context, username string, update ProfileUpdate) (account *Account, err error) {
	defer func() { s.record("update_profile", err) }()

	account, err = s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if update.Email != "" {
		email, err := normalizeEmail(update.Email)
		if err != nil {
			return nil, err
		}
		if email != account.Email {
			if _, err := s.store.FindByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, ErrAccountNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			account.Email = email
		}
	}
	if update.FirstName != "" {
		account.FirstName = strings.TrimSpace(update.FirstName)
	}
	if update.LastName != "" {
		account.LastName = strings.TrimSpace(update.LastName)
	}
	if update.Country != "" {
		account.Country = strings.TrimSpace(update.Country)
	}
	if update.Password != "" {
		hashed, err := s.hasher.SaltAndHash(update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		account.Password = hashed
	}

	if err := s.store.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

// RequestPasswordReset mails a single-use reset token to the owner of email.
// Unknown addresses succeed silently so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.record("request_reset", err) }()

	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return errors.New("password reset notifications are not configured")
	}

	account, err := s.store.FindByEmail(ctx, normalized)
	if errors.Is(err, ErrAccountNotFound) {
		s.logger.Debug("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	token, tokenHash, err := GenerateResetToken()
	if err != nil {
		return err
	}

	reset := &PasswordReset{
		TokenHash: tokenHash,
		Username:  account.Username,
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.resets.Save(ctx, reset); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, account, token, reset.ExpiresAt); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logger.WithField("username", account.Username).Info("Password reset issued")
	return nil
}

// ResetPassword redeems a reset token and stores the new password
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.record("reset_password", err) }()

	if newPassword == "" {
		return newValidationError("password", "is required")
	}
	if err := ValidateResetTokenFormat(token); err != nil {
		return ErrResetTokenInvalid
	}

	reset, err := s.resets.Consume(ctx, HashResetToken(token))
	if err != nil {
		return err
	}

	account, err := s.store.FindByUsername(ctx, reset.Username)
	if errors.Is(err, ErrAccountNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	hashed, err := s.hasher.SaltAndHash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	account.Password = hashed

	if err := s.store.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to store new password: %w", err)
	}

	s.logger.WithField("username", account.Username).Info("Password reset completed")
	return nil
}

// DeleteAccount removes the account owned by username
func (s *Service) DeleteAccount(ctx context.Context, username string) (err error) {
	defer func() { s.record("delete", err) }()

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	s.logger.WithField("username", username).Info("Account deleted")
	return nil
}

func (s *Service) record(operation string, err error) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordAccountOperation(operation, Outcome(err))
}

// Outcome classifies an error into a low-cardinality label
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsValidationError(err):
		return "invalid"
	case errors.Is(err, ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrResetTokenInvalid):
		return "denied"
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
		return "conflict"
	default:
		return "error"
	}
}

func validateUsername(username string) error {
	if username == "" {
		return newValidationError("username", "is required")
	}
	if strings.ContainsAny(username, ": \t\r\n") {
		return newValidationError("username", "must not contain whitespace or colons")
	}
	return nil
}

// normalizeEmail requires a bare address and lowercases it
func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", newValidationError("email", "is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", newValidationError("email", "is not a valid address")
	}
	return strings.ToLower(email), nil
}
