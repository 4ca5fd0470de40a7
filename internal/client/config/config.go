package config

import (
	"errors"
	"fmt"
	"time"
)

// Store kinds accepted by Config.Store.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
)

// Config holds runtime settings for the gophchat CLI.
//
// Fields:
//   - ChatAPIBaseURL: base URL of the chat backend (the /api/* routes live under it).
//   - SupabaseURL, SupabaseAnonKey: auth provider and hosted session store.
//     Leaving either empty runs the client without an auth provider.
//   - Store: session store backend, one of sqlite, postgres or supabase.
//   - DatabaseDSN: connection string for the postgres store.
//   - DataDir: directory holding the local SQLite database.
//   - S3*: optional image archive; disabled while S3Bucket is empty.
type Config struct {
	ChatAPIBaseURL  string
	SupabaseURL     string
	SupabaseAnonKey string

	Store       string
	DatabaseDSN string
	DataDir     string

	AuthTimeout         time.Duration
	AutosaveDelay       time.Duration
	HealthCheckInterval time.Duration
	RequestTimeout      time.Duration

	LogLevel  string
	LogFormat string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ChatAPIBaseURL = "http://localhost:5000"
	c.Store = StoreSQLite
	c.DataDir = ".gophchat"
	c.AuthTimeout = 3 * time.Second
	c.AutosaveDelay = 2 * time.Second
	c.HealthCheckInterval = 30 * time.Second
	c.RequestTimeout = 60 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.S3Region = "us-east-1"
}

// AuthConfigured reports whether both auth provider credentials are present.
func (c *Config) AuthConfigured() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}

// ArchiveEnabled reports whether attached images should be archived to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.ChatAPIBaseURL == "" {
		return errors.New("chat api base url is required")
	}
	switch c.Store {
	case StoreSQLite:
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return errors.New("postgres store requires a database dsn")
		}
	case StoreSupabase:
		if !c.AuthConfigured() {
			return errors.New("supabase store requires supabase url and anon key")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.AuthTimeout <= 0 {
		return errors.New("auth timeout must be positive")
	}
	if c.AutosaveDelay < 0 {
		return errors.New("autosave delay must not be negative")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the dotenv file and environment, and command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
