package accounts

import "embed"

// Migrations holds the goose migrations for the accounts schema
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations holding the SQL files
const MigrationsDir = "migrations"
