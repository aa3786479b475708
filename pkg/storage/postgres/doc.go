// Package postgres provides connection management for the backing stores.
//
// # Connections
//
// ConnectionManager owns a primary pool used for writes and an optional set of
// read replicas selected round-robin. Replicas that fail to open at startup are
// skipped, and StartHealthCheckRoutine prunes replicas that stop answering:
//
//	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
//		PrimaryURL:  cfg.Database.URL,
//		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
//		MaxConns:    25,
//		MinConns:    5,
//	}, logger)
//
// # Migrations
//
// Migrate runs goose migrations from any fs.FS, typically an embed.FS owned by
// the package that defines the schema.
//
// # Redis
//
// NewRedisClient builds a go-redis client from a redis:// URL with the pool
// timeouts used across the service.
package postgres
