// Package accounts manages user accounts and their credentials.
//
// Accounts are keyed by username. Email is unique as well but only used for
// duplicate detection and password reset lookups.
//
// # Storage
//
// Store has an in-memory implementation for development and a PostgreSQL
// implementation whose schema ships as embedded goose migrations (Migrations).
// Stores never hash; every password they receive is already a credential.
//
// # Service
//
// Service composes a Store with a credential.Hasher:
//
//	svc := accounts.NewService(store, credential.NewHasher(), logger,
//		accounts.WithRegistrar(platformClient),
//		accounts.WithNotifier(resetMailer),
//		accounts.WithResetStore(accounts.NewRedisResetStore(rdb)),
//	)
//
// Password resets use random single-use tokens. Only the SHA-256 of a token is
// stored, and the plaintext exists only in the reset email.
package accounts
