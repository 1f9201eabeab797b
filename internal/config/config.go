// Package config handles psxtool configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/psxkit/internal/logger"
)

// Config holds all psxtool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Read    ReadConfig    `yaml:"read" toml:"read"`
	Write   WriteConfig   `yaml:"write" toml:"write"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// ReadConfig controls how container files are parsed.
type ReadConfig struct {
	Strict        bool `yaml:"strict" toml:"strict"`                 // Reject repeated sections
	ReportSkipped bool `yaml:"report_skipped" toml:"report_skipped"` // Print skipped sections
}

// WriteConfig controls how files are written.
type WriteConfig struct {
	Extended         bool `yaml:"extended" toml:"extended"`                   // Emit optional PSK sections
	NormalizeWeights bool `yaml:"normalize_weights" toml:"normalize_weights"` // Sort and normalize before writing
	Validate         bool `yaml:"validate" toml:"validate"`                   // Check references before writing
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Read: ReadConfig{
			ReportSkipped: true,
		},
		Write: WriteConfig{
			Validate: true,
		},
	}
}

// Validate checks values that cannot be range-checked by the decoder.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
