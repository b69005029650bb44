package auth

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultUserHeader carries the caller identity when token verification is disabled.
const DefaultUserHeader = "X-User-ID"

// Config holds bearer token verification settings.
type Config struct {
	Enabled    bool   `toml:"enabled"`
	Issuer     string `toml:"issuer"`
	ClientID   string `toml:"client_id"`
	UserHeader string `toml:"user_header"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled    string
	Issuer     string
	ClientID   string
	UserHeader string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Enabled always applies.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.UserHeader != "" {
		c.UserHeader = overlay.UserHeader
	}
}

func (c *Config) loadDefaults() {
	if c.UserHeader == "" {
		c.UserHeader = DefaultUserHeader
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				c.Enabled = enabled
			}
		}
	}
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.ClientID != "" {
		if v := os.Getenv(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if env.UserHeader != "" {
		if v := os.Getenv(env.UserHeader); v != "" {
			c.UserHeader = v
		}
	}
}

func (c *Config) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Issuer == "" {
		return fmt.Errorf("issuer required when auth is enabled")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id required when auth is enabled")
	}
	return nil
}
