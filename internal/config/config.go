package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/microtravel/internal/auth"
	"github.com/JaimeStill/microtravel/internal/batch"
	"github.com/JaimeStill/microtravel/pkg/database"
	"github.com/JaimeStill/microtravel/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"
	DotEnvFile           = ".env"

	EnvMicrotravelEnv             = "MICROTRAVEL_ENV"
	EnvMicrotravelShutdownTimeout = "MICROTRAVEL_SHUTDOWN_TIMEOUT"
	EnvMicrotravelVersion         = "MICROTRAVEL_VERSION"
)

// DatabaseEnv names the variables that override database settings.
var DatabaseEnv = &database.Env{
	Host:            "MICROTRAVEL_DB_HOST",
	Port:            "MICROTRAVEL_DB_PORT",
	Name:            "MICROTRAVEL_DB_NAME",
	User:            "MICROTRAVEL_DB_USER",
	Password:        "MICROTRAVEL_DB_PASSWORD",
	SSLMode:         "MICROTRAVEL_DB_SSL_MODE",
	MaxOpenConns:    "MICROTRAVEL_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "MICROTRAVEL_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "MICROTRAVEL_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "MICROTRAVEL_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "MICROTRAVEL_STORAGE_PROVIDER",
	ContainerName:    "MICROTRAVEL_STORAGE_CONTAINER_NAME",
	ConnectionString: "MICROTRAVEL_STORAGE_CONNECTION_STRING",
	AccountURL:       "MICROTRAVEL_STORAGE_ACCOUNT_URL",
	Region:           "MICROTRAVEL_STORAGE_REGION",
	Endpoint:         "MICROTRAVEL_STORAGE_ENDPOINT",
	AccessKey:        "MICROTRAVEL_STORAGE_ACCESS_KEY",
	SecretKey:        "MICROTRAVEL_STORAGE_SECRET_KEY",
}

var authEnv = &auth.Env{
	Enabled:    "MICROTRAVEL_AUTH_ENABLED",
	Issuer:     "MICROTRAVEL_AUTH_ISSUER",
	ClientID:   "MICROTRAVEL_AUTH_CLIENT_ID",
	UserHeader: "MICROTRAVEL_AUTH_USER_HEADER",
}

var batchEnv = &batch.Env{
	Workers:       "MICROTRAVEL_BATCH_WORKERS",
	ItemTimeout:   "MICROTRAVEL_BATCH_ITEM_TIMEOUT",
	Retention:     "MICROTRAVEL_BATCH_RETENTION",
	ArchivePrefix: "MICROTRAVEL_BATCH_ARCHIVE_PREFIX",
	MaxSelection:  "MICROTRAVEL_BATCH_MAX_SELECTION",
}

// Config is the root configuration for the MicroTravel service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Auth            auth.Config     `toml:"auth"`
	Batch           batch.Config    `toml:"batch"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the MICROTRAVEL_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMicrotravelEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads .env into the process environment, then the base config (if
// present), applies any environment overlay, and finalizes all values.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Auth.Merge(&overlay.Auth)
	c.Batch.Merge(&overlay.Batch)
}

// Finalize applies defaults, environment overrides, and validation to every
// section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(DatabaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Batch.Finalize(batchEnv); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvMicrotravelShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMicrotravelVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvMicrotravelEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
