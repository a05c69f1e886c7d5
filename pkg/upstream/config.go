// Package upstream provides an HTTP client for the Pokémon TCG API, the
// external provider the sync pipeline pulls card, set and pricing data from.
package upstream

import (
	"errors"
	"time"
)

// Define static errors
var (
	ErrBaseURLRequired = errors.New("upstream base URL is required")
)

// Config holds upstream API client configuration
type Config struct {
	// BaseURL is the API root, e.g. https://api.pokemontcg.io/v2
	BaseURL string `yaml:"baseUrl" default:"https://api.pokemontcg.io/v2"`
	// APIKey is sent as X-Api-Key; optional but raises rate limits.
	APIKey string `yaml:"apiKey"`
	// PageSize is the page size used when paging card listings.
	PageSize int `yaml:"pageSize" default:"250"`
	// RequestTimeout bounds a single API call.
	RequestTimeout time.Duration `yaml:"requestTimeout" default:"30s"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}

	return nil
}
