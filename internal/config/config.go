// Package config loads service configuration from defaults, an optional
// TOML file and BILLED_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Submission modes.
const (
	SubmitSync  = "sync"
	SubmitAsync = "async"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreBigQuery = "bigquery"
)

// Receipt backends.
const (
	ReceiptsLocal = "local"
	ReceiptsGCS   = "gcs"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Session  SessionConfig
	Store    StoreConfig
	Receipts ReceiptsConfig
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port        string
	ListTimeout time.Duration `mapstructure:"list_timeout"`
	SubmitMode  string        `mapstructure:"submit_mode"`
	Workers     int
}

// SessionConfig holds session token settings.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

// StoreConfig selects and configures the bill repository.
type StoreConfig struct {
	Backend         string
	SQLitePath      string `mapstructure:"sqlite_path"`
	BigQueryProject string `mapstructure:"bigquery_project"`
	BigQueryDataset string `mapstructure:"bigquery_dataset"`
}

// ReceiptsConfig selects and configures receipt storage.
type ReceiptsConfig struct {
	Backend string
	Dir     string
	Bucket  string
	Prefix  string
	BaseURL string `mapstructure:"base_url"`
}

// Load reads configuration from file and env. Env var overrides use prefix BILLED_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("BILLED_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	v.SetEnvPrefix("BILLED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.list_timeout", 5*time.Second)
	v.SetDefault("server.submit_mode", SubmitSync)
	v.SetDefault("server.workers", 2)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("store.backend", StoreMemory)
	v.SetDefault("store.sqlite_path", "billed.db")
	v.SetDefault("store.bigquery_project", "")
	v.SetDefault("store.bigquery_dataset", "billed")
	v.SetDefault("receipts.backend", ReceiptsLocal)
	v.SetDefault("receipts.dir", "receipts")
	v.SetDefault("receipts.bucket", "")
	v.SetDefault("receipts.prefix", "receipts")
	v.SetDefault("receipts.base_url", "")
}

// Validate checks enumerated values and backend requirements.
func (c Config) Validate() error {
	switch c.Server.SubmitMode {
	case SubmitSync, SubmitAsync:
	default:
		return fmt.Errorf("config: server.submit_mode must be %q or %q, got %q", SubmitSync, SubmitAsync, c.Server.SubmitMode)
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("config: store.sqlite_path is required for the sqlite backend")
		}
	case StoreBigQuery:
		if c.Store.BigQueryProject == "" {
			return fmt.Errorf("config: store.bigquery_project is required for the bigquery backend")
		}
	default:
		return fmt.Errorf("config: unknown store.backend %q", c.Store.Backend)
	}

	switch c.Receipts.Backend {
	case ReceiptsLocal:
		if c.Receipts.Dir == "" {
			return fmt.Errorf("config: receipts.dir is required for the local backend")
		}
	case ReceiptsGCS:
		if c.Receipts.Bucket == "" {
			return fmt.Errorf("config: receipts.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("config: unknown receipts.backend %q", c.Receipts.Backend)
	}

	return nil
}
