// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendGCS       = "gcs"
)

// Config is the full server configuration.
type Config struct {
	// NOTE: Default is 8111 to match the frontend's proxy settings.
	Port     string `env:"PORT" envDefault:"8111"`
	Env      string `env:"ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:1234,http://127.0.0.1:1234"`

	Store   StoreConfig
	Dataset DatasetConfig
	Algolia AlgoliaConfig
}

// StoreConfig selects and configures the persistent key-value backend.
type StoreConfig struct {
	Backend         string `env:"STORE_BACKEND"`
	FilePath        string `env:"STORE_FILE_PATH" envDefault:"demobank.json"`
	SQLitePath      string `env:"STORE_SQLITE_PATH" envDefault:"demobank.db"`
	QuotaBytes      int    `env:"STORE_QUOTA_BYTES" envDefault:"0"`
	ProjectID       string `env:"GOOGLE_CLOUD_PROJECT"`
	Collection      string `env:"FIRESTORE_COLLECTION" envDefault:"demobankStorage"`
	Bucket          string `env:"GCS_BUCKET"`
	Prefix          string `env:"GCS_PREFIX" envDefault:"demobank/"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS_FILE"`
}

// DatasetConfig tunes synthesis. A zero seed draws a random one.
type DatasetConfig struct {
	Seed        int64 `env:"DATASET_SEED" envDefault:"0"`
	HistoryDays int   `env:"DATASET_HISTORY_DAYS" envDefault:"45"`
}

// AlgoliaConfig enables the hosted transaction search index when both keys are set.
type AlgoliaConfig struct {
	AppID     string `env:"ALGOLIA_APP_ID"`
	APIKey    string `env:"ALGOLIA_API_KEY"`
	IndexName string `env:"ALGOLIA_INDEX_NAME" envDefault:"demobank-transactions"`
}

// Enabled reports whether Algolia credentials are present.
func (a AlgoliaConfig) Enabled() bool {
	return a.AppID != "" && a.APIKey != ""
}

// Load parses the environment into a Config and resolves defaults that
// depend on other fields.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg.resolve()
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) resolve() (Config, error) {
	backend := strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if backend == "" {
		if c.Env == "local" {
			backend = BackendMemory
		} else {
			backend = BackendFirestore
		}
	}
	c.Store.Backend = backend

	switch backend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendFirestore:
		if c.Store.ProjectID == "" {
			return Config{}, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the %s backend", backend)
		}
	case BackendGCS:
		if c.Store.Bucket == "" {
			return Config{}, fmt.Errorf("GCS_BUCKET is required for the %s backend", backend)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}

	if c.Dataset.HistoryDays <= 0 {
		c.Dataset.HistoryDays = 45
	}
	return c, nil
}
