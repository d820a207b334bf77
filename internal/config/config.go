// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

// Package config loads client configuration from a YAML file and command
// line flags. Flags that were set explicitly win over the file; the file
// wins over flag defaults.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/plaide/plaide/internal/logging"
	"github.com/plaide/plaide/internal/xdg"
)

// Identity provider names.
const (
	ProviderLocal    = "local"
	ProviderFirebase = "firebase"
)

// Config is the effective configuration.
type Config struct {
	Provider string         `koanf:"provider" yaml:"provider"`
	Firebase FirebaseConfig `koanf:"firebase" yaml:"firebase"`
	Local    LocalConfig    `koanf:"local" yaml:"local"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// FirebaseConfig configures the hosted identity provider.
type FirebaseConfig struct {
	APIKey           string `koanf:"api_key" yaml:"api_key"`
	IdentityEndpoint string `koanf:"identity_endpoint" yaml:"identity_endpoint,omitempty"`
	TokenEndpoint    string `koanf:"token_endpoint" yaml:"token_endpoint,omitempty"`
	// CacheSession persists the refresh token so the next start signs in
	// again without asking.
	CacheSession bool `koanf:"cache_session" yaml:"cache_session"`
}

// LocalConfig configures the self-hosted provider.
type LocalConfig struct {
	// DatabaseURL selects PostgreSQL storage. Empty keeps accounts in memory.
	DatabaseURL string        `koanf:"database_url" yaml:"database_url,omitempty"`
	SessionTTL  time.Duration `koanf:"session_ttl" yaml:"session_ttl"`
}

// MarshalYAML writes SessionTTL in duration notation ("24h0m0s").
func (c LocalConfig) MarshalYAML() (any, error) {
	return struct {
		DatabaseURL string `yaml:"database_url,omitempty"`
		SessionTTL  string `yaml:"session_ttl"`
	}{c.DatabaseURL, c.SessionTTL.String()}, nil
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
	// File receives log output. Empty means the XDG state directory.
	File string `koanf:"file" yaml:"file,omitempty"`
}

// MetricsConfig configures the metrics and health endpoint.
type MetricsConfig struct {
	// Addr is the listen address. Empty disables the endpoint.
	Addr string `koanf:"addr" yaml:"addr,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Provider: ProviderLocal,
		Firebase: FirebaseConfig{CacheSession: true},
		Local:    LocalConfig{SessionTTL: 24 * time.Hour},
		Log:      LogConfig{Level: "info", Format: logging.FormatJSON},
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"provider":          "provider",
	"firebase-api-key":  "firebase.api_key",
	"firebase-endpoint": "firebase.identity_endpoint",
	"database-url":      "local.database_url",
	"log-level":         "log.level",
	"log-format":        "log.format",
	"log-file":          "log.file",
	"metrics-addr":      "metrics.addr",
}

// RegisterFlags adds the configuration flags to fs with Default values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("provider", d.Provider, "identity provider (local or firebase)")
	fs.String("firebase-api-key", "", "Firebase web API key")
	fs.String("firebase-endpoint", "", "Firebase identity endpoint (e.g. the auth emulator)")
	fs.String("database-url", "", "PostgreSQL URL for the local provider (empty = in memory)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-file", "", "log file (default: XDG_STATE_HOME/plaide/plaide.log)")
	fs.String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
}

// Load reads path and then flags. With an empty path the XDG config file is
// used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		p, err := xdg.ConfigFile()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.Local.DatabaseURL == "" {
		cfg.Local.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.Local.SessionTTL <= 0 {
			return oops.Code("CONFIG_INVALID").With("session_ttl", c.Local.SessionTTL).
				Errorf("local.session_ttl must be positive")
		}
	case ProviderFirebase:
		if c.Firebase.APIKey == "" {
			return oops.Code("CONFIG_INVALID").Errorf("firebase.api_key is required for the firebase provider")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("provider", c.Provider).
			Errorf("provider must be %q or %q, got %q", ProviderLocal, ProviderFirebase, c.Provider)
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatText {
		return oops.Code("CONFIG_INVALID").With("format", c.Log.Format).
			Errorf("log.format must be %q or %q, got %q", logging.FormatJSON, logging.FormatText, c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("level", c.Log.Level).Wrap(err)
	}
	return nil
}
