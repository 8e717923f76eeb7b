// Package config loads tagspec configuration from defaults, an optional JSON
// file and TAGSPEC_-prefixed environment variables, in that order.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rotisserie/eris"

	"github.com/opensource-finance/tagspec/internal/domain"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TAGSPEC_"

// listKeys are split on commas when read from the environment.
var listKeys = map[string]bool{
	"engine.workertenants": true,
}

// Load returns DefaultConfig overlaid with path (when non-empty) and the
// environment.
func Load(path string) (*domain.Config, error) {
	return LoadFrom(domain.DefaultConfig(), path)
}

// LoadFrom overlays path and the environment onto base.
// TAGSPEC_SERVER_PORT=9090 sets server.port.
func LoadFrom(base *domain.Config, path string) (*domain.Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, eris.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, eris.Wrapf(err, "load config file %s", path)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, eris.Wrap(err, "load environment")
	}

	cfg := base
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, eris.Wrap(err, "decode config")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(key, value string) (string, any) {
	k := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	k = strings.ReplaceAll(k, "_", ".")
	if listKeys[k] {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return k, out
	}
	return k, value
}

// Validate rejects configurations the server cannot start with.
func Validate(cfg *domain.Config) error {
	switch {
	case cfg.Server.Port <= 0 || cfg.Server.Port > 65535:
		return eris.Errorf("config: invalid server.port %d", cfg.Server.Port)
	case cfg.Repository.Driver != "sqlite" && cfg.Repository.Driver != "postgres":
		return eris.Errorf("config: unsupported repository.driver %q", cfg.Repository.Driver)
	case cfg.Cache.Type != "memory" && cfg.Cache.Type != "redis":
		return eris.Errorf("config: unsupported cache.type %q", cfg.Cache.Type)
	case cfg.EventBus.Type != "channel" && cfg.EventBus.Type != "nats":
		return eris.Errorf("config: unsupported eventbus.type %q", cfg.EventBus.Type)
	case cfg.Engine.MatchTimeoutMs < 0:
		return eris.Errorf("config: negative engine.matchtimeoutms %d", cfg.Engine.MatchTimeoutMs)
	}
	return nil
}
