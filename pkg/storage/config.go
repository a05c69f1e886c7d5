// Package storage provides the ClickHouse-backed catalog store. Sets and
// cards live in ReplacingMergeTree tables where an upsert is the insert of a
// newer version row; price snapshots are append-only.
package storage

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrURLRequired = errors.New("URL is required")
)

// Config contains ClickHouse connection settings
type Config struct {
	URL           string        `yaml:"url" validate:"required,url"`
	Database      string        `yaml:"database" default:"tcgvault"`
	QueryTimeout  time.Duration `yaml:"queryTimeout" default:"30s"`
	InsertTimeout time.Duration `yaml:"insertTimeout" default:"5m"`
	KeepAlive     time.Duration `yaml:"keepAlive" default:"30s"`
	Debug         bool          `yaml:"debug"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "tcgvault"
	}

	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}

	if c.InsertTimeout == 0 {
		c.InsertTimeout = 5 * time.Minute
	}

	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
}
