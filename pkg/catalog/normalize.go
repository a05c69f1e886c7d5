package catalog

import (
	"time"

	"github.com/tcgvault/tcgvault/pkg/upstream"
)

// TCGPlayer variant keys as used by the upstream API.
const (
	tpKeyNormal               = "normal"
	tpKeyHolofoil             = "holofoil"
	tpKeyReverseHolofoil      = "reverseHolofoil"
	tpKeyFirstEditionHolofoil = "1stEditionHolofoil"
)

// NormalizeSet maps an upstream set into the stored SetRecord shape.
func NormalizeSet(s upstream.Set, now time.Time) SetRecord {
	return SetRecord{
		ID:          s.ID,
		Name:        s.Name,
		Series:      s.Series,
		ReleaseDate: s.ReleaseDate,
		Total:       uint32(s.Total), //nolint:gosec // set sizes are small
		SymbolURL:   s.Images.Symbol,
		LogoURL:     s.Images.Logo,
		UpdatedAt:   now,
	}
}

// NormalizeCard maps an upstream card into the stored CardRecord shape.
// Pricing sub-objects are flattened; absent price components stay nil rather
// than defaulting to zero, since zero is a valid price and nil means unknown.
func NormalizeCard(c upstream.Card, setID string, now time.Time) CardRecord {
	if c.Set != nil && setID == "" {
		setID = c.Set.ID
	}

	return CardRecord{
		ID:             c.ID,
		SetID:          setID,
		Name:           c.Name,
		Number:         c.Number,
		Rarity:         c.Rarity,
		Supertype:      c.Supertype,
		Types:          c.Types,
		ImageSmall:     c.Images.Small,
		ImageLarge:     c.Images.Large,
		LegalStandard:  c.Legalities.Standard,
		LegalExpanded:  c.Legalities.Expanded,
		LegalUnlimited: c.Legalities.Unlimited,
		Cardmarket:     normalizeCardmarket(c.Cardmarket),
		TCGPlayer:      normalizeTCGPlayer(c.TCGPlayer),
		UpdatedAt:      now,
	}
}

func normalizeCardmarket(cm *upstream.Cardmarket) *CardMarketPrices {
	if cm == nil {
		return nil
	}

	return &CardMarketPrices{
		Avg:              cm.Prices.AverageSellPrice,
		Low:              cm.Prices.LowPrice,
		Trend:            cm.Prices.TrendPrice,
		ReverseHoloAvg:   cm.Prices.ReverseHoloSell,
		ReverseHoloLow:   cm.Prices.ReverseHoloLow,
		ReverseHoloTrend: cm.Prices.ReverseHoloTrend,
	}
}

func normalizeTCGPlayer(tp *upstream.TCGPlayer) *TCGPlayerPrices {
	if tp == nil {
		return nil
	}

	prices := &TCGPlayerPrices{
		Normal:               normalizeTPVariant(tp.Prices, tpKeyNormal),
		Holofoil:             normalizeTPVariant(tp.Prices, tpKeyHolofoil),
		ReverseHolofoil:      normalizeTPVariant(tp.Prices, tpKeyReverseHolofoil),
		FirstEditionHolofoil: normalizeTPVariant(tp.Prices, tpKeyFirstEditionHolofoil),
	}

	return prices
}

func normalizeTPVariant(prices map[string]upstream.TCGPlayerVariant, key string) *TCGPlayerVariantPrices {
	v, ok := prices[key]
	if !ok {
		return nil
	}

	return &TCGPlayerVariantPrices{
		Market: v.Market,
		Low:    v.Low,
		Mid:    v.Mid,
	}
}
