package batch

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultArchivePrefix names download artifacts when no prefix is configured.
const DefaultArchivePrefix = "microtravel-images"

// MaxWorkers bounds the per-batch worker pool.
const MaxWorkers = 16

// Config holds batch execution settings.
type Config struct {
	Workers       int    `toml:"workers"`
	ItemTimeout   string `toml:"item_timeout"`
	Retention     string `toml:"retention"`
	ArchivePrefix string `toml:"archive_prefix"`
	MaxSelection  int    `toml:"max_selection"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers       string
	ItemTimeout   string
	Retention     string
	ArchivePrefix string
	MaxSelection  string
}

// ItemTimeoutDuration returns ItemTimeout as a time.Duration.
func (c *Config) ItemTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ItemTimeout)
	return d
}

// RetentionDuration returns Retention as a time.Duration.
func (c *Config) RetentionDuration() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	return d
}

// Options converts the config into coordinator options.
func (c *Config) Options() Options {
	return Options{
		Workers:       c.Workers,
		ArchivePrefix: c.ArchivePrefix,
		MaxSelection:  c.MaxSelection,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.ItemTimeout != "" {
		c.ItemTimeout = overlay.ItemTimeout
	}
	if overlay.Retention != "" {
		c.Retention = overlay.Retention
	}
	if overlay.ArchivePrefix != "" {
		c.ArchivePrefix = overlay.ArchivePrefix
	}
	if overlay.MaxSelection != 0 {
		c.MaxSelection = overlay.MaxSelection
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.ItemTimeout == "" {
		c.ItemTimeout = "60s"
	}
	if c.Retention == "" {
		c.Retention = "1h"
	}
	if c.ArchivePrefix == "" {
		c.ArchivePrefix = DefaultArchivePrefix
	}
	if c.MaxSelection == 0 {
		c.MaxSelection = 500
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.ItemTimeout != "" {
		if v := os.Getenv(env.ItemTimeout); v != "" {
			c.ItemTimeout = v
		}
	}
	if env.Retention != "" {
		if v := os.Getenv(env.Retention); v != "" {
			c.Retention = v
		}
	}
	if env.ArchivePrefix != "" {
		if v := os.Getenv(env.ArchivePrefix); v != "" {
			c.ArchivePrefix = v
		}
	}
	if env.MaxSelection != "" {
		if v := os.Getenv(env.MaxSelection); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxSelection = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", MaxWorkers, c.Workers)
	}
	if d, err := time.ParseDuration(c.ItemTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid item_timeout: %q", c.ItemTimeout)
	}
	if d, err := time.ParseDuration(c.Retention); err != nil || d <= 0 {
		return fmt.Errorf("invalid retention: %q", c.Retention)
	}
	if c.MaxSelection < 1 {
		return fmt.Errorf("max_selection must be positive, got %d", c.MaxSelection)
	}
	return nil
}
