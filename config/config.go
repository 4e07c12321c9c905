// Package config loads CLI configuration from flags, environment
// variables and an optional YAML file, plus the table mapping file that
// describes the entity graph to fetch against.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the relfetch CLI.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	// MappingFile points at the YAML entity mapping document.
	MappingFile string `mapstructure:"mapping_file"`
}

// DatabaseConfig describes how to reach the database. A complete DSN
// takes precedence over the discrete fields.
type DatabaseConfig struct {
	ConnectionString string `mapstructure:"dsn"`

	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password_file"`
	Database     string `mapstructure:"database"`

	Pool PoolConfig `mapstructure:"pool"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds metrics settings for the CLI.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// Validate checks settings that cannot be defaulted into a working state.
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Database == "" {
		return fmt.Errorf("no database configured: set database.dsn or database.database")
	}
	if c.MappingFile == "" {
		return fmt.Errorf("no mapping file configured: set mapping_file")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid logging.format %q: expected json or text", c.Logging.Format)
	}
	return nil
}
