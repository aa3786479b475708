package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used for development and tests
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*Account
	byUsername map[string]string
	byEmail    map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

// Create inserts a new account
func (s *MemoryStore) Create(ctx context.Context, account *Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[account.Username]; ok {
		return "", ErrUsernameTaken
	}
	if _, ok := s.byEmail[account.Email]; ok {
		return "", ErrEmailTaken
	}

	stored := account.clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.byID[stored.ID] = stored
	s.byUsername[stored.Username] = stored.ID
	s.byEmail[stored.Email] = stored.ID

	account.ID = stored.ID
	account.CreatedAt = stored.CreatedAt
	account.UpdatedAt = stored.UpdatedAt
	return stored.ID, nil
}

// FindByUsername loads an account by username
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.byID[id].clone(), nil
}

// FindByEmail loads an account by email
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.byID[id].clone(), nil
}

// Update overwrites an existing account
func (s *MemoryStore) Update(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[account.ID]
	if !ok {
		return ErrAccountNotFound
	}

	if account.Email != current.Email {
		if _, taken := s.byEmail[account.Email]; taken {
			return ErrEmailTaken
		}
		delete(s.byEmail, current.Email)
		s.byEmail[account.Email] = account.ID
	}

	updated := account.clone()
	updated.Username = current.Username
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()
	s.byID[account.ID] = updated
	account.UpdatedAt = updated.UpdatedAt
	return nil
}

// Delete removes an account
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return ErrAccountNotFound
	}

	delete(s.byID, id)
	delete(s.byUsername, current.Username)
	delete(s.byEmail, current.Email)
	return nil
}
