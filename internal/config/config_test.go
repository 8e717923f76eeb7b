package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/tagspec/internal/domain"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagspec.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `{
		"server": {"port": 9000},
		"cache": {"type": "memory", "localttl": "90s"},
		"engine": {"matchtimeoutms": 400, "workertenants": ["acme", "globex"]}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Cache.LocalTTL)
	assert.Equal(t, 400, cfg.Engine.MatchTimeoutMs)
	assert.Equal(t, []string{"acme", "globex"}, cfg.Engine.WorkerTenants)
	assert.Equal(t, "sqlite", cfg.Repository.Driver)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, `{"server": {"port": 9000}}`)
	t.Setenv("TAGSPEC_SERVER_PORT", "9100")
	t.Setenv("TAGSPEC_LOGGING_LEVEL", "debug")
	t.Setenv("TAGSPEC_ENGINE_WORKERTENANTS", "acme, globex,")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"acme", "globex"}, cfg.Engine.WorkerTenants)
}

func TestLoadFromCluster(t *testing.T) {
	t.Setenv("TAGSPEC_REPOSITORY_POSTGRESHOST", "db.internal")

	cfg, err := LoadFrom(domain.ClusterConfig(), "")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Repository.Driver)
	assert.Equal(t, "db.internal", cfg.Repository.PostgresHost)
	assert.Equal(t, "nats", cfg.EventBus.Type)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadBrokenFile(t *testing.T) {
	_, err := Load(writeFile(t, `{"server":`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Config)
	}{
		{"port", func(c *domain.Config) { c.Server.Port = 0 }},
		{"driver", func(c *domain.Config) { c.Repository.Driver = "mysql" }},
		{"cache", func(c *domain.Config) { c.Cache.Type = "memcached" }},
		{"bus", func(c *domain.Config) { c.EventBus.Type = "kafka" }},
		{"timeout", func(c *domain.Config) { c.Engine.MatchTimeoutMs = -1 }},
	}

	require.NoError(t, Validate(domain.DefaultConfig()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestEnvKey(t *testing.T) {
	k, v := envKey("TAGSPEC_CACHE_REDISADDR", "redis:6379")
	assert.Equal(t, "cache.redisaddr", k)
	assert.Equal(t, "redis:6379", v)

	k, v = envKey("TAGSPEC_ENGINE_WORKERTENANTS", "a,b")
	assert.Equal(t, "engine.workertenants", k)
	assert.Equal(t, []string{"a", "b"}, v)
}
