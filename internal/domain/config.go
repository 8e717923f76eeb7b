package domain

import "time"

// Config holds the complete tagspec configuration.
type Config struct {
	// Server settings
	Server ServerConfig `koanf:"server" json:"server"`

	// Engine settings for pattern evaluation and the background worker
	Engine EngineConfig `koanf:"engine" json:"engine"`

	// Component configurations
	Repository RepositoryConfig `koanf:"repository" json:"repository"`
	Cache      CacheConfig      `koanf:"cache" json:"cache"`
	EventBus   EventBusConfig   `koanf:"eventbus" json:"eventBus"`

	// Observability
	Logging LoggingConfig `koanf:"logging" json:"logging"`
	Tracing TracingConfig `koanf:"tracing" json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `koanf:"host" json:"host"`
	Port         int    `koanf:"port" json:"port"`
	ReadTimeout  int    `koanf:"readtimeout" json:"readTimeout"`   // seconds
	WriteTimeout int    `koanf:"writetimeout" json:"writeTimeout"` // seconds
}

// EngineConfig holds rule-engine settings.
type EngineConfig struct {
	// MatchTimeoutMs bounds a single pattern match. A timed-out match is a non-match.
	MatchTimeoutMs int `koanf:"matchtimeoutms" json:"matchTimeoutMs"`

	// Worker enables the asynchronous analysis worker in serve mode.
	Worker bool `koanf:"worker" json:"worker"`

	// WorkerTenants lists the tenants the worker subscribes for.
	WorkerTenants []string `koanf:"workertenants" json:"workerTenants"`
}

// MatchTimeout returns MatchTimeoutMs as a duration.
func (c EngineConfig) MatchTimeout() time.Duration {
	return time.Duration(c.MatchTimeoutMs) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" json:"level"`   // debug, info, warn, error
	Format string `koanf:"format" json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled" json:"enabled"`
	ServiceName string `koanf:"servicename" json:"serviceName"`
}

// DefaultConfig returns a single-node configuration: SQLite, in-memory cache and Go channels.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Engine: EngineConfig{
			MatchTimeoutMs: 250,
			Worker:         true,
			WorkerTenants:  []string{"default"},
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./tagspec.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
			SnapshotTTL:  5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "tagspec",
		},
	}
}

// ClusterConfig returns a configuration for a shared deployment:
// PostgreSQL, Redis behind a local LRU, and NATS.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "tagspec",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		SnapshotTTL:    5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
