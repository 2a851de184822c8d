// Package config loads the service configuration from defaults, an optional
// TOML file and SUPPORTDESK_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// EnvPrefix is stripped from environment variables: SUPPORTDESK_DB_DSN sets db.dsn.
	EnvPrefix = "SUPPORTDESK_"
	// EnvConfigFile names the TOML file to load when no path is given.
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Config represents the application configuration
type Config struct {
	HTTP struct {
		Addr string `koanf:"addr"`
	} `koanf:"http"`

	DB struct {
		DSN     string        `koanf:"dsn"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"db"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Presence struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"presence"`

	Auth struct {
		Secret string        `koanf:"secret"`
		Issuer string        `koanf:"issuer"`
		TTL    time.Duration `koanf:"ttl"`
	} `koanf:"auth"`

	Maintainer struct {
		ID     string `koanf:"id"`
		Name   string `koanf:"name"`
		Email  string `koanf:"email"`
		Avatar string `koanf:"avatar"`
	} `koanf:"maintainer"`

	Log struct {
		Level  string `koanf:"level"`
		Pretty bool   `koanf:"pretty"`
	} `koanf:"log"`
}

var defaults = map[string]interface{}{
	"http.addr":        ":8080",
	"db.timeout":       "5s",
	"redis.addr":       "localhost:6379",
	"redis.db":         0,
	"presence.ttl":     "2m",
	"auth.issuer":      "supportdesk",
	"auth.ttl":         "24h",
	"maintainer.id":    "maintainer",
	"maintainer.name":  "Support Team",
	"maintainer.email": "support@supportdesk.invalid",
	"log.level":        "info",
}

// Load reads the configuration. An empty configPath falls back to $SUPPORTDESK_CONFIG;
// when neither is set only defaults and the environment apply.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv(EnvConfigFile)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	if s == EnvConfigFile {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DB.DSN) == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}
	if c.DB.Timeout <= 0 {
		errs = append(errs, errors.New("db.timeout must be positive"))
	}
	if c.Presence.TTL <= 0 {
		errs = append(errs, errors.New("presence.ttl must be positive"))
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}
	if c.Auth.TTL <= 0 {
		errs = append(errs, errors.New("auth.ttl must be positive"))
	}
	if strings.TrimSpace(c.Maintainer.ID) == "" {
		errs = append(errs, errors.New("maintainer.id is required"))
	}
	return errors.Join(errs...)
}

// ConfigureLogging sets the global zerolog level and output from the log section.
func (c *Config) ConfigureLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.Log.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if c.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
