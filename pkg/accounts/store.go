package accounts

import "context"

// Store persists account records keyed by username.
// Passwords entering the store must already be credentials; the store never hashes.
type Store interface {
	// Create inserts a new account and returns its ID
	Create(ctx context.Context, account *Account) (string, error)

	// FindByUsername loads an account by its canonical key
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByEmail loads an account by email address
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Update overwrites the mutable fields of an existing account
	Update(ctx context.Context, account *Account) error

	// Delete removes an account by ID
	Delete(ctx context.Context, id string) error
}
