// Package app wires the sync pipeline, storage, API and scheduler into one
// runnable application.
package app

import (
	"fmt"

	"github.com/tcgvault/tcgvault/pkg/api"
	"github.com/tcgvault/tcgvault/pkg/redis"
	"github.com/tcgvault/tcgvault/pkg/scheduler"
	"github.com/tcgvault/tcgvault/pkg/storage"
	"github.com/tcgvault/tcgvault/pkg/tcgsync"
	"github.com/tcgvault/tcgvault/pkg/upstream"
)

// Config represents the complete application configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info" validate:"oneof=panic fatal warn info debug trace"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9090"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`
	PProfAddr       string `yaml:"pprofAddr"`

	// Dependencies
	Storage  storage.Config  `yaml:"storage"`
	Upstream upstream.Config `yaml:"upstream"`
	Redis    redis.Config    `yaml:"redis"`

	// Services
	API          api.Config                 `yaml:"api"`
	Scheduler    scheduler.Config           `yaml:"scheduler"`
	Orchestrator tcgsync.OrchestratorConfig `yaml:"orchestrator"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("upstream: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	// Redis only backs the scheduler; the rest of the app runs without it.
	if c.Scheduler.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	return nil
}
