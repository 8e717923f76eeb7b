// Package domain defines the core interfaces and types for tagspec.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for rule-collection and row persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Rule library operations
	SaveLibrary(ctx context.Context, tenantID string, position int, lib *RuleLibrary) error
	GetLibrary(ctx context.Context, tenantID string, libraryID ID) (*RuleLibrary, error)
	ListLibraries(ctx context.Context, tenantID string) ([]RuleLibrary, error)
	DeleteLibrary(ctx context.Context, tenantID string, libraryID ID) error

	// ReplaceLibraries atomically swaps the tenant's whole collection.
	ReplaceLibraries(ctx context.Context, tenantID string, libs []RuleLibrary) error

	// Transaction row operations
	SaveRows(ctx context.Context, tenantID string, rows []Row) error
	ListRows(ctx context.Context, tenantID string) ([]Row, error)
	DeleteRows(ctx context.Context, tenantID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `koanf:"driver"`

	// SQLite specific
	SQLitePath string `koanf:"sqlitepath"`

	// PostgreSQL specific
	PostgresHost     string `koanf:"postgreshost"`
	PostgresPort     int    `koanf:"postgresport"`
	PostgresUser     string `koanf:"postgresuser"`
	PostgresPassword string `koanf:"postgrespassword"`
	PostgresDB       string `koanf:"postgresdb"`
	PostgresSSLMode  string `koanf:"postgressslmode"`

	// Connection pool settings
	MaxOpenConns    int           `koanf:"maxopenconns"`
	MaxIdleConns    int           `koanf:"maxidleconns"`
	ConnMaxLifetime time.Duration `koanf:"connmaxlifetime"`
}
