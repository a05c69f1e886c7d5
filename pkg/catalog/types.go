// Package catalog defines the internal representation of the card catalog:
// sets, cards and price snapshots. Upstream wire shapes are converted into
// these records at the boundary so that upstream schema drift stays out of
// the rest of the codebase.
package catalog

import "time"

// Pricing sources tracked per card.
const (
	SourceCardmarket = "cardmarket"
	SourceTCGPlayer  = "tcgplayer"
)

// Printing variants with independently tracked prices.
const (
	VariantNormal       = "normal"
	VariantHolo         = "holo"
	VariantReverseHolo  = "reverseHolo"
	VariantFirstEdition = "firstEdition"
)

// SetRecord is a card set as stored in the catalog.
type SetRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Series      string    `json:"series"`
	ReleaseDate string    `json:"release_date"`
	Total       uint32    `json:"total"`
	SymbolURL   string    `json:"symbol_url"`
	LogoURL     string    `json:"logo_url"`
	UpdatedAt   time.Time `json:"-"`
}

// CardMarketPrices holds CardMarket price components. Every field is
// independently optional: nil means unknown, zero is a valid price.
type CardMarketPrices struct {
	Avg              *float64 `json:"avg,omitempty"`
	Low              *float64 `json:"low,omitempty"`
	Trend            *float64 `json:"trend,omitempty"`
	ReverseHoloAvg   *float64 `json:"reverse_holo_avg,omitempty"`
	ReverseHoloLow   *float64 `json:"reverse_holo_low,omitempty"`
	ReverseHoloTrend *float64 `json:"reverse_holo_trend,omitempty"`
	FirstEditionAvg  *float64 `json:"first_edition_avg,omitempty"`
	FirstEditionLow  *float64 `json:"first_edition_low,omitempty"`
}

// TCGPlayerVariantPrices holds TCGPlayer price components for one printing
// variant.
type TCGPlayerVariantPrices struct {
	Market *float64 `json:"market,omitempty"`
	Low    *float64 `json:"low,omitempty"`
	Mid    *float64 `json:"mid,omitempty"`
}

// TCGPlayerPrices holds per-variant TCGPlayer prices. Absent variants were
// never printed (or never priced) for the card.
type TCGPlayerPrices struct {
	Normal               *TCGPlayerVariantPrices `json:"normal,omitempty"`
	Holofoil             *TCGPlayerVariantPrices `json:"holofoil,omitempty"`
	ReverseHolofoil      *TCGPlayerVariantPrices `json:"reverse_holofoil,omitempty"`
	FirstEditionHolofoil *TCGPlayerVariantPrices `json:"first_edition_holofoil,omitempty"`
}

// CardRecord is a card as stored in the catalog. Pricing sub-structures are
// independently optional per source: a missing CardMarket price must never
// block display or computation of the TCGPlayer price, and vice versa.
type CardRecord struct {
	ID             string            `json:"id"`
	SetID          string            `json:"set_id"`
	Name           string            `json:"name"`
	Number         string            `json:"number"`
	Rarity         string            `json:"rarity"`
	Supertype      string            `json:"supertype"`
	Types          []string          `json:"types"`
	ImageSmall     string            `json:"image_small"`
	ImageLarge     string            `json:"image_large"`
	LegalStandard  string            `json:"legal_standard"`
	LegalExpanded  string            `json:"legal_expanded"`
	LegalUnlimited string            `json:"legal_unlimited"`
	Cardmarket     *CardMarketPrices `json:"cardmarket,omitempty"`
	TCGPlayer      *TCGPlayerPrices  `json:"tcgplayer,omitempty"`
	UpdatedAt      time.Time         `json:"-"`
}

// PriceSnapshot is one point-in-time captured price for a (card, variant,
// source) tuple. Snapshots are append-only: a series is the ordered-by-time
// sequence of snapshots, never mutated after capture.
type PriceSnapshot struct {
	CardID     string    `json:"card_id"`
	Variant    string    `json:"variant"`
	Source     string    `json:"source"`
	Price      float64   `json:"price"`
	Low        *float64  `json:"low,omitempty"`
	Mid        *float64  `json:"mid,omitempty"`
	Trend      *float64  `json:"trend,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}
