package testutil

import (
	"fmt"
	"time"

	"github.com/tcgvault/tcgvault/pkg/catalog"
	"github.com/tcgvault/tcgvault/pkg/upstream"
)

// Float returns a pointer to v, for optional price fields.
func Float(v float64) *float64 {
	return &v
}

// UpstreamSet builds an upstream set fixture. Release dates descend from
// 2023/01/01 as n grows, so lower n means more recently released.
func UpstreamSet(n int) upstream.Set {
	return upstream.Set{
		ID:          fmt.Sprintf("sv%d", n),
		Name:        fmt.Sprintf("Test Set %d", n),
		Series:      "Scarlet & Violet",
		Total:       3,
		ReleaseDate: fmt.Sprintf("2023/01/%02d", 28-n),
		Images: upstream.SetImages{
			Symbol: fmt.Sprintf("https://images.example/sv%d/symbol.png", n),
			Logo:   fmt.Sprintf("https://images.example/sv%d/logo.png", n),
		},
	}
}

// UpstreamSets builds n set fixtures.
func UpstreamSets(n int) []upstream.Set {
	sets := make([]upstream.Set, 0, n)
	for i := 1; i <= n; i++ {
		sets = append(sets, UpstreamSet(i))
	}

	return sets
}

// UpstreamCard builds an upstream card fixture carrying both pricing sources.
func UpstreamCard(setID string, n int) upstream.Card {
	return upstream.Card{
		ID:        fmt.Sprintf("%s-%d", setID, n),
		Name:      fmt.Sprintf("Test Card %d", n),
		Number:    fmt.Sprintf("%d", n),
		Rarity:    "Rare",
		Supertype: "Pokémon",
		Types:     []string{"Fire"},
		Images: upstream.CardImages{
			Small: fmt.Sprintf("https://images.example/%s/%d.png", setID, n),
			Large: fmt.Sprintf("https://images.example/%s/%d_hires.png", setID, n),
		},
		Legalities: upstream.Legalities{Standard: "Legal", Expanded: "Legal", Unlimited: "Legal"},
		Cardmarket: &upstream.Cardmarket{
			Prices: upstream.CardmarketPrices{
				AverageSellPrice: Float(4.20),
				LowPrice:         Float(2.50),
				TrendPrice:       Float(4.75),
			},
		},
		TCGPlayer: &upstream.TCGPlayer{
			Prices: map[string]upstream.TCGPlayerVariant{
				"normal": {Market: Float(4.10), Low: Float(2.00), Mid: Float(4.50)},
			},
		},
	}
}

// UpstreamCards builds n card fixtures for a set.
func UpstreamCards(setID string, n int) []upstream.Card {
	cards := make([]upstream.Card, 0, n)
	for i := 1; i <= n; i++ {
		cards = append(cards, UpstreamCard(setID, i))
	}

	return cards
}

// Snapshot builds a price snapshot fixture captured at the given time.
func Snapshot(cardID, variant, source string, price float64, capturedAt time.Time) catalog.PriceSnapshot {
	return catalog.PriceSnapshot{
		CardID:     cardID,
		Variant:    variant,
		Source:     source,
		Price:      price,
		CapturedAt: capturedAt,
	}
}

// CardRecord builds a stored card fixture with CardMarket pricing only.
func CardRecord(setID string, n int) catalog.CardRecord {
	return catalog.CardRecord{
		ID:        fmt.Sprintf("%s-%d", setID, n),
		SetID:     setID,
		Name:      fmt.Sprintf("Test Card %d", n),
		Number:    fmt.Sprintf("%d", n),
		Rarity:    "Rare",
		Supertype: "Pokémon",
		Types:     []string{"Fire"},
		Cardmarket: &catalog.CardMarketPrices{
			Avg:   Float(3.00),
			Low:   Float(1.80),
			Trend: Float(3.10),
		},
		UpdatedAt: time.Now().UTC(),
	}
}
