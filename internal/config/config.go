// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags.
type Config struct {
	// Credentials
	Username     string `json:"username,omitempty"`      // OPAL user name (normally an email address)
	PasswordFile string `json:"password_file,omitempty"` // File holding the OPAL password

	// Services
	Env string `json:"env,omitempty" validate:"omitempty,oneof=prod at test dev"` // Archive environment

	// Queries
	Radius  float64 `json:"radius,omitempty" validate:"omitempty,gt=0,lte=10"` // Cutout radius, degrees
	Subtype string  `json:"subtype,omitempty"`                                 // Data product subtype filter

	// Polling
	PollInterval string `json:"poll_interval,omitempty"` // Delay between job status checks
	PollTimeout  string `json:"poll_timeout,omitempty"`  // Overall deadline per job, "0" disables

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.PollInterval != "" {
		d, err := time.ParseDuration(c.PollInterval)
		if err != nil {
			return fmt.Errorf("config error: bad 'poll_interval': %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: 'poll_interval' must be positive")
		}
	}
	if c.PollTimeout != "" && c.PollTimeout != "0" {
		d, err := time.ParseDuration(c.PollTimeout)
		if err != nil {
			return fmt.Errorf("config error: bad 'poll_timeout': %w", err)
		}
		if d < 0 {
			return fmt.Errorf("config error: 'poll_timeout' must not be negative")
		}
	}

	// Validate file paths exist (if specified)
	if c.PasswordFile != "" {
		if _, err := os.Stat(c.PasswordFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: password file not found: %s", c.PasswordFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Username == "" {
		result.Username = defaults.Username
	}
	if result.PasswordFile == "" {
		result.PasswordFile = defaults.PasswordFile
	}
	if result.Env == "" {
		if defaults.Env != "" {
			result.Env = defaults.Env
		} else {
			result.Env = "prod"
		}
	}
	if result.Subtype == "" {
		result.Subtype = defaults.Subtype
	}
	if result.PollInterval == "" {
		result.PollInterval = defaults.PollInterval
	}
	if result.PollTimeout == "" {
		result.PollTimeout = defaults.PollTimeout
	}

	// Float fields
	if result.Radius == 0 {
		if defaults.Radius > 0 {
			result.Radius = defaults.Radius
		} else {
			result.Radius = 0.1 // Default cutout radius in degrees
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// PollIntervalDuration returns the poll interval, or fallback when unset.
func (c *Config) PollIntervalDuration(fallback time.Duration) time.Duration {
	if c.PollInterval == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return fallback
	}
	return d
}

// PollTimeoutDuration returns the poll deadline, or fallback when unset.
// A configured "0" disables the deadline.
func (c *Config) PollTimeoutDuration(fallback time.Duration) time.Duration {
	if c.PollTimeout == "" {
		return fallback
	}
	if c.PollTimeout == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.PollTimeout)
	if err != nil {
		return fallback
	}
	return d
}
