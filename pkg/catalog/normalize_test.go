package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcgvault/tcgvault/pkg/upstream"
)

func fp(v float64) *float64 {
	return &v
}

func TestNormalizeSet(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	set := upstream.Set{
		ID:          "sv1",
		Name:        "Scarlet & Violet",
		Series:      "Scarlet & Violet",
		Total:       258,
		ReleaseDate: "2023/03/31",
		Images: upstream.SetImages{
			Symbol: "https://images.example/sv1/symbol.png",
			Logo:   "https://images.example/sv1/logo.png",
		},
	}

	record := NormalizeSet(set, now)

	assert.Equal(t, "sv1", record.ID)
	assert.Equal(t, "Scarlet & Violet", record.Name)
	assert.Equal(t, uint32(258), record.Total)
	assert.Equal(t, "2023/03/31", record.ReleaseDate)
	assert.Equal(t, "https://images.example/sv1/symbol.png", record.SymbolURL)
	assert.Equal(t, "https://images.example/sv1/logo.png", record.LogoURL)
	assert.Equal(t, now, record.UpdatedAt)
}

func TestNormalizeCard_FlattensPricing(t *testing.T) {
	now := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	card := upstream.Card{
		ID:        "sv1-25",
		Name:      "Pikachu",
		Number:    "25",
		Rarity:    "Rare",
		Supertype: "Pokémon",
		Types:     []string{"Lightning"},
		Images: upstream.CardImages{
			Small: "https://images.example/sv1/25.png",
			Large: "https://images.example/sv1/25_hires.png",
		},
		Legalities: upstream.Legalities{Standard: "Legal", Expanded: "Legal", Unlimited: "Legal"},
		Cardmarket: &upstream.Cardmarket{
			Prices: upstream.CardmarketPrices{
				AverageSellPrice: fp(4.20),
				LowPrice:         fp(2.50),
				TrendPrice:       fp(4.75),
				ReverseHoloSell:  fp(6.00),
			},
		},
		TCGPlayer: &upstream.TCGPlayer{
			Prices: map[string]upstream.TCGPlayerVariant{
				"normal":             {Market: fp(4.10), Low: fp(2.00), Mid: fp(4.50)},
				"1stEditionHolofoil": {Market: fp(99.99)},
			},
		},
	}

	record := NormalizeCard(card, "sv1", now)

	assert.Equal(t, "sv1-25", record.ID)
	assert.Equal(t, "sv1", record.SetID)
	assert.Equal(t, []string{"Lightning"}, record.Types)
	assert.Equal(t, "Legal", record.LegalStandard)

	require.NotNil(t, record.Cardmarket)
	assert.Equal(t, 4.20, *record.Cardmarket.Avg)
	assert.Equal(t, 6.00, *record.Cardmarket.ReverseHoloAvg)
	assert.Nil(t, record.Cardmarket.ReverseHoloLow)

	require.NotNil(t, record.TCGPlayer)
	require.NotNil(t, record.TCGPlayer.Normal)
	assert.Equal(t, 4.10, *record.TCGPlayer.Normal.Market)
	require.NotNil(t, record.TCGPlayer.FirstEditionHolofoil)
	assert.Equal(t, 99.99, *record.TCGPlayer.FirstEditionHolofoil.Market)
	assert.Nil(t, record.TCGPlayer.FirstEditionHolofoil.Low)
	assert.Nil(t, record.TCGPlayer.Holofoil)
	assert.Nil(t, record.TCGPlayer.ReverseHolofoil)
}

func TestNormalizeCard_AbsentPricingStaysNil(t *testing.T) {
	record := NormalizeCard(upstream.Card{ID: "sv1-1"}, "sv1", time.Now())

	assert.Nil(t, record.Cardmarket)
	assert.Nil(t, record.TCGPlayer)
}

func TestNormalizeCard_SetIDFallsBackToEmbeddedSet(t *testing.T) {
	card := upstream.Card{
		ID:  "sv2-7",
		Set: &upstream.Set{ID: "sv2"},
	}

	record := NormalizeCard(card, "", time.Now())

	assert.Equal(t, "sv2", record.SetID)
}

func TestNormalizeCard_ZeroPriceIsPreserved(t *testing.T) {
	card := upstream.Card{
		ID: "sv1-1",
		Cardmarket: &upstream.Cardmarket{
			Prices: upstream.CardmarketPrices{
				AverageSellPrice: fp(0),
			},
		},
	}

	record := NormalizeCard(card, "sv1", time.Now())

	require.NotNil(t, record.Cardmarket)
	require.NotNil(t, record.Cardmarket.Avg)
	assert.Equal(t, 0.0, *record.Cardmarket.Avg)
	assert.Nil(t, record.Cardmarket.Low)
}
