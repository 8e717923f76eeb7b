package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU + Redis.
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetLibraries retrieves the cached rule-collection snapshot.
	// Returns nil, nil if no snapshot is cached.
	GetLibraries(ctx context.Context, tenantID string) ([]RuleLibrary, error)

	// SetLibraries caches the tenant's rule-collection snapshot.
	SetLibraries(ctx context.Context, tenantID string, libs []RuleLibrary, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// LibrariesCacheKey is the cache key of a tenant's rule-collection snapshot.
const LibrariesCacheKey = "libraries"

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `koanf:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `koanf:"localmaxsize"`
	LocalTTL     time.Duration `koanf:"localttl"`

	// Redis settings
	RedisAddr     string `koanf:"redisaddr"`
	RedisPassword string `koanf:"redispassword"`
	RedisDB       int    `koanf:"redisdb"`

	// If true, check local first, then Redis
	EnableTwoPhase bool `koanf:"enabletwophase"`

	// SnapshotTTL bounds how long a rule-collection snapshot is served from cache.
	SnapshotTTL time.Duration `koanf:"snapshotttl"`
}
