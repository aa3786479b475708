package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, email, first_name, last_name, country, password, created_at, updated_at`

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	reader func() *sql.DB
}

// PostgresOption configures a PostgresStore
type PostgresOption func(*PostgresStore)

// WithReader routes lookups to a separate pool, usually a read replica
func WithReader(reader *sql.DB) PostgresOption {
	return func(s *PostgresStore) {
		if reader != nil {
			s.reader = func() *sql.DB { return reader }
		}
	}
}

// WithReaderFunc picks the lookup pool per query, e.g. ConnectionManager.Replica
func WithReaderFunc(reader func() *sql.DB) PostgresOption {
	return func(s *PostgresStore) {
		if reader != nil {
			s.reader = reader
		}
	}
}

// NewPostgresStore creates a store writing to db
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	s.reader = func() *sql.DB { return s.db }
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new account
func (s *PostgresStore) Create(ctx context.Context, account *Account) (string, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO accounts (id, username, email, first_name, last_name, country, password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.FirstName,
		account.LastName,
		account.Country,
		account.Password,
		account.CreatedAt,
	).Scan(&account.UpdatedAt)
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return "", conflict
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	return account.ID, nil
}

// FindByUsername loads an account by username
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

// FindByEmail loads an account by email
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (*Account, error) {
	var a Account
	err := s.reader().QueryRowContext(ctx, query, arg).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.Country,
		&a.Password,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &a, nil
}

// Update overwrites the mutable fields of an account
func (s *PostgresStore) Update(ctx context.Context, account *Account) error {
	query := `
		UPDATE accounts
		SET email = $2, first_name = $3, last_name = $4, country = $5, password = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		account.ID,
		account.Email,
		account.FirstName,
		account.LastName,
		account.Country,
		account.Password,
	).Scan(&account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		if conflict := uniqueConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// Delete removes an account by ID
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// uniqueConflict maps a unique violation on accounts to the matching sentinel
func uniqueConflict(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return nil
	}

	switch pqErr.Constraint {
	case "accounts_username_key":
		return ErrUsernameTaken
	case "accounts_email_key":
		return ErrEmailTaken
	default:
		return fmt.Errorf("unique constraint %s violated: %w", pqErr.Constraint, err)
	}
}
