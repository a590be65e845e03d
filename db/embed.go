// Package db provides the embedded goose migrations and seed data layout.
package db

import "embed"

// MigrationsDir is the directory inside Migrations holding the goose files.
const MigrationsDir = "migrations"

// Migrations contains the versioned goose SQL migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS
