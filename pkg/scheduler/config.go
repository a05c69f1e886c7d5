// Package scheduler runs the sync pipeline on a schedule: a nightly full
// sync and a periodic pricing refresh, both delivered through asynq.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrInvalidConcurrency is returned when concurrency is not positive
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
)

// Config defines scheduler configuration
type Config struct {
	Enabled         bool          `yaml:"enabled" default:"false"`
	Concurrency     int           `yaml:"concurrency" default:"5"`
	FullSync        string        `yaml:"fullSync" default:"0 3 * * *"`
	PricingRefresh  string        `yaml:"pricingRefresh" default:"@every 6h"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`
}

// Validate checks if the scheduler configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	for name, schedule := range map[string]string{
		"fullSync":       c.FullSync,
		"pricingRefresh": c.PricingRefresh,
	} {
		if err := validateSchedule(schedule); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", name, schedule, err)
		}
	}

	return nil
}

// validateSchedule accepts standard five-field cron expressions plus the
// @every and descriptor forms.
func validateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	_, err := parser.Parse(schedule)

	return err
}
