// Package config loads the crosscheck run configuration.
//
// Values are layered in increasing precedence:
//
//  1. Built-in defaults (DefaultConfig)
//  2. YAML config file (--config, or ./crosscheck.yaml when present)
//  3. Environment variables prefixed with CROSSCHECK_ (dots become underscores,
//     e.g. CROSSCHECK_DATABASE_URL)
//  4. Flag overrides supplied by the CLI
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CROSSCHECK"

// DefaultConfigFile is read from the working directory when no --config is given.
const DefaultConfigFile = "crosscheck.yaml"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config is the complete run configuration.
type Config struct {
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Target   TargetConfig   `mapstructure:"target"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
}

// AuthConfig describes how the session token is obtained.
//
// When Token is set it is used as-is. Otherwise URL, Username and Password
// drive an OAuth2 resource owner password grant.
type AuthConfig struct {
	URL          string   `mapstructure:"url"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
	Token        string   `mapstructure:"token"`

	// FallbackToken is used (with a warning) when authentication fails.
	// Empty means authentication failure aborts the run.
	FallbackToken string `mapstructure:"fallback_token"`
}

// DatabaseConfig describes the single database session.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// TargetConfig is the API under test. Suites may override both fields.
type TargetConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Endpoint string `mapstructure:"endpoint"`
}

// HTTPConfig tunes the HTTP client.
type HTTPConfig struct {
	TimeoutSecs int `mapstructure:"timeout_secs"`
}

// Timeout returns the client timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSecs) * time.Second
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: DriverSQLite},
		HTTP:     HTTPConfig{TimeoutSecs: 30},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit path. When empty, DefaultConfigFile is
	// read if it exists in the working directory.
	ConfigFile string

	// FlagOverrides maps dotted keys (e.g. "target.base_url") to values.
	FlagOverrides map[string]any
}

// Load builds a Config from defaults, file, environment and flags.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := opts.ConfigFile
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	for key, val := range opts.FlagOverrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("auth.url", d.Auth.URL)
	v.SetDefault("auth.username", d.Auth.Username)
	v.SetDefault("auth.password", d.Auth.Password)
	v.SetDefault("auth.client_id", d.Auth.ClientID)
	v.SetDefault("auth.client_secret", d.Auth.ClientSecret)
	v.SetDefault("auth.scopes", d.Auth.Scopes)
	v.SetDefault("auth.token", d.Auth.Token)
	v.SetDefault("auth.fallback_token", d.Auth.FallbackToken)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("target.base_url", d.Target.BaseURL)
	v.SetDefault("target.endpoint", d.Target.Endpoint)
	v.SetDefault("http.timeout_secs", d.HTTP.TimeoutSecs)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate checks the fields crosscheck cannot run without. Free-form
// strings (URLs, credentials) are left to the HTTP and SQL clients.
func Validate(cfg Config) error {
	var errs []error

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.Database.Driver))
	}
	if cfg.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if cfg.Auth.Token == "" && cfg.Auth.URL == "" && cfg.Auth.FallbackToken == "" {
		errs = append(errs, errors.New("one of auth.token, auth.url or auth.fallback_token is required"))
	}
	if cfg.HTTP.TimeoutSecs <= 0 {
		errs = append(errs, fmt.Errorf("http.timeout_secs must be positive, got %d", cfg.HTTP.TimeoutSecs))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}
	return nil
}
