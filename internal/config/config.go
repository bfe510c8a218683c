// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

// Package config loads ifa configuration from a YAML file, IFA_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/ifa-app/ifa/internal/logging"
	"github.com/ifa-app/ifa/internal/xdg"
)

// EnvPrefix prefixes environment variables read by Load.
const EnvPrefix = "IFA_"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// MinSessionSecretBytes is the shortest accepted session signing secret.
const MinSessionSecretBytes = 32

// Config is the complete ifa configuration.
type Config struct {
	HTTPAddr        string        `koanf:"http_addr" yaml:"http_addr"`
	MetricsAddr     string        `koanf:"metrics_addr" yaml:"metrics_addr"`
	Store           string        `koanf:"store" yaml:"store"`
	DatabaseURL     string        `koanf:"database_url" yaml:"database_url"`
	AutoMigrate     bool          `koanf:"auto_migrate" yaml:"auto_migrate"`
	LogFormat       string        `koanf:"log_format" yaml:"log_format"`
	LogLevel        string        `koanf:"log_level" yaml:"log_level"`
	BcryptCost      int           `koanf:"bcrypt_cost" yaml:"bcrypt_cost"`
	SessionSecret   string        `koanf:"session_secret" yaml:"session_secret"`
	SessionTTL      time.Duration `koanf:"session_ttl" yaml:"session_ttl"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPAddr:        "127.0.0.1:8080",
		MetricsAddr:     "127.0.0.1:9100",
		Store:           StoreMemory,
		LogFormat:       "json",
		LogLevel:        "info",
		BcryptCost:      bcrypt.DefaultCost,
		SessionTTL:      24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
	}
}

// RegisterFlags adds one flag per configuration key to fs. Flag names use
// dashes where keys use underscores.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("http-addr", d.HTTPAddr, "API listen address")
	fs.String("metrics-addr", d.MetricsAddr, "metrics/health listen address (empty = disabled)")
	fs.String("store", d.Store, "account store backend (memory or postgres)")
	fs.String("database-url", d.DatabaseURL, "PostgreSQL connection URL")
	fs.Bool("auto-migrate", d.AutoMigrate, "apply pending migrations on startup")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Int("bcrypt-cost", d.BcryptCost, "bcrypt work factor for new password hashes")
	fs.Duration("session-ttl", d.SessionTTL, "lifetime of issued session tokens")
	fs.Duration("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown deadline")
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// Path is the YAML file to read. When empty the XDG default is used and a
	// missing file is not an error.
	Path string
	// Flags, when set, override file and environment values for flags the
	// user set explicitly, and fill keys no other source provided.
	Flags *pflag.FlagSet
	// Environ replaces os.Environ.
	Environ func() []string
}

// Load builds a Config from defaults, the config file, the environment and
// flags. The result is not validated.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
		},
		EnvironFunc: environ,
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithValue(opts.Flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		}), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

func invalid(key string, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return invalid("database_url", "database_url is required when store is %q", StorePostgres)
		}
	default:
		return invalid("store", "store must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", "log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", "log_level %q is not a valid level", c.LogLevel)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return invalid("bcrypt_cost", "bcrypt_cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	return nil
}

// ValidateServer additionally checks the settings needed to serve the API.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.HTTPAddr == "" {
		return invalid("http_addr", "http_addr is required")
	}
	if len(c.SessionSecret) < MinSessionSecretBytes {
		return invalid("session_secret", "session_secret must be at least %d bytes", MinSessionSecretBytes)
	}
	if c.SessionTTL <= 0 {
		return invalid("session_ttl", "session_ttl must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return invalid("shutdown_timeout", "shutdown_timeout must be positive")
	}
	return nil
}

// LogLevelValue returns the parsed log level, falling back to info.
func (c *Config) LogLevelValue() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Redacted returns a copy safe to print: the session secret and any database
// password are masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.SessionSecret != "" {
		out.SessionSecret = logging.Redacted
	}
	if u, err := url.Parse(out.DatabaseURL); err == nil && u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "REDACTED")
			out.DatabaseURL = u.String()
		}
	}
	return out
}
