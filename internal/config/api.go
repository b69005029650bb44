package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/microtravel/pkg/formatting"
	"github.com/JaimeStill/microtravel/pkg/middleware"
	"github.com/JaimeStill/microtravel/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "MICROTRAVEL_CORS_ENABLED",
	Origins:          "MICROTRAVEL_CORS_ORIGINS",
	AllowedMethods:   "MICROTRAVEL_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "MICROTRAVEL_CORS_ALLOWED_HEADERS",
	AllowCredentials: "MICROTRAVEL_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "MICROTRAVEL_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "MICROTRAVEL_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "MICROTRAVEL_PAGINATION_MAX_PAGE_SIZE",
}

const (
	EnvAPIBasePath      = "MICROTRAVEL_API_BASE_PATH"
	EnvAPIMaxUploadSize = "MICROTRAVEL_API_MAX_UPLOAD_SIZE"
	EnvAPIWebhookSecret = "MICROTRAVEL_API_WEBHOOK_SECRET"
)

// APIConfig holds API routing, CORS, and pagination settings.
// The billing webhook routes are registered only when WebhookSecret is set.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	WebhookSecret string                `toml:"webhook_secret"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 25 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.WebhookSecret != "" {
		c.WebhookSecret = overlay.WebhookSecret
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "25MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv(EnvAPIWebhookSecret); v != "" {
		c.WebhookSecret = v
	}
}
