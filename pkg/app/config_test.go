package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tcgvault/tcgvault/pkg/scheduler"
	"github.com/tcgvault/tcgvault/pkg/storage"
	"github.com/tcgvault/tcgvault/pkg/upstream"
)

func validConfig() Config {
	return Config{
		Storage:  storage.Config{URL: "http://localhost:8123", Database: "tcgvault"},
		Upstream: upstream.Config{BaseURL: "https://api.pokemontcg.io/v2"},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := validConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing storage url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.URL = ""
		assert.ErrorIs(t, cfg.Validate(), storage.ErrURLRequired)
	})

	t.Run("missing upstream base url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Upstream.BaseURL = ""
		assert.ErrorIs(t, cfg.Validate(), upstream.ErrBaseURLRequired)
	})

	t.Run("scheduler enabled requires redis url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Scheduler = scheduler.Config{
			Enabled:        true,
			Concurrency:    5,
			FullSync:       "0 3 * * *",
			PricingRefresh: "@every 6h",
		}
		assert.Error(t, cfg.Validate())

		cfg.Redis.URL = "redis://localhost:6379"
		assert.NoError(t, cfg.Validate())
	})
}
