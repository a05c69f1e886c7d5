// Package pricing implements the historical pricing aggregator: point-in-time
// snapshot capture, time-bounded series retrieval with forward gap filling,
// and summary statistics over a trailing day window.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/catalog"
	"github.com/tcgvault/tcgvault/pkg/observability"
	"github.com/tcgvault/tcgvault/pkg/storage"
)

const defaultBackfillBatchSize = 50

// HistoryQuery selects a snapshot series.
type HistoryQuery struct {
	CardID   string
	Days     int
	Variant  string // empty matches all variants
	FillGaps bool
}

// Statistics summarizes a card's snapshots over a trailing window. HasData
// is false when no snapshot exists in range; that is a result, not an error.
type Statistics struct {
	CardID        string  `json:"card_id"`
	Days          int     `json:"days"`
	HasData       bool    `json:"has_data"`
	Points        int     `json:"points"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Avg           float64 `json:"avg"`
	Earliest      float64 `json:"earliest"`
	Latest        float64 `json:"latest"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// HistoricalRecord is one input to a backfill run: card pricing as it stood
// at a past point in time.
type HistoricalRecord struct {
	CardID     string             `json:"card_id"`
	CapturedAt time.Time          `json:"captured_at"`
	Card       catalog.CardRecord `json:"card"`
}

// BackfillOptions controls a backfill run.
type BackfillOptions struct {
	Records   []HistoricalRecord
	BatchSize int
}

// BackfillResult reports a backfill run's outcome under the same
// partial-success policy as the sync stages.
type BackfillResult struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// Service is the historical pricing aggregator.
type Service struct {
	store storage.CatalogStore
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewService creates a pricing service
func NewService(log logrus.FieldLogger, store storage.CatalogStore) *Service {
	return &Service{
		store: store,
		log:   log.WithField("component", "pricing"),
		now:   time.Now,
	}
}

// Capture writes one snapshot per (variant, source) pair present on the
// card's pricing data, all stamped with the same capture time. Repeated
// calls append further history points; snapshots are never deduplicated
// across capture times.
func (s *Service) Capture(ctx context.Context, card *catalog.CardRecord, at time.Time) (int, error) {
	snapshots := SnapshotsFromCard(card, at)
	if len(snapshots) == 0 {
		return 0, nil
	}

	if err := s.store.InsertSnapshots(ctx, snapshots); err != nil {
		return 0, fmt.Errorf("failed to insert snapshots for %s: %w", card.ID, err)
	}

	for _, snap := range snapshots {
		observability.PriceSnapshotsTotal.WithLabelValues(snap.Source).Inc()
	}

	return len(snapshots), nil
}

// History returns the snapshot series for a card within the trailing Days
// window. With FillGaps, calendar days without a snapshot are synthesized
// per (variant, source) series by carrying its most recent prior snapshot
// forward; days before a series' first snapshot in the window stay absent,
// since there is nothing to carry.
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]catalog.PriceSnapshot, error) {
	if q.Days <= 0 {
		q.Days = 30
	}

	since := s.windowStart(q.Days)

	snapshots, err := s.store.SnapshotsSince(ctx, q.CardID, q.Variant, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots for %s: %w", q.CardID, err)
	}

	if !q.FillGaps {
		return snapshots, nil
	}

	return fillGaps(snapshots, since, s.now().UTC()), nil
}

// Stats computes min/max/avg and the change between the earliest and latest
// snapshots over the trailing window, across all variants.
func (s *Service) Stats(ctx context.Context, cardID string, days int) (*Statistics, error) {
	if days <= 0 {
		days = 30
	}

	snapshots, err := s.store.SnapshotsSince(ctx, cardID, "", s.windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots for %s: %w", cardID, err)
	}

	stats := &Statistics{CardID: cardID, Days: days}

	if len(snapshots) == 0 {
		return stats, nil
	}

	stats.HasData = true
	stats.Points = len(snapshots)
	stats.Earliest = snapshots[0].Price
	stats.Latest = snapshots[len(snapshots)-1].Price
	stats.Min = snapshots[0].Price
	stats.Max = snapshots[0].Price

	var sum float64

	for _, snap := range snapshots {
		if snap.Price < stats.Min {
			stats.Min = snap.Price
		}

		if snap.Price > stats.Max {
			stats.Max = snap.Price
		}

		sum += snap.Price
	}

	stats.Avg = sum / float64(len(snapshots))
	stats.Change = stats.Latest - stats.Earliest

	if stats.Earliest != 0 {
		stats.ChangePercent = stats.Change / stats.Earliest * 100
	}

	return stats, nil
}

// Backfill runs the capture logic against caller-provided historical
// records, writing in batches and collecting per-batch errors without
// aborting the run.
func (s *Service) Backfill(ctx context.Context, opts BackfillOptions) BackfillResult {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBackfillBatchSize
	}

	var pending []catalog.PriceSnapshot
	for i := range opts.Records {
		rec := &opts.Records[i]
		rec.Card.ID = rec.CardID
		pending = append(pending, SnapshotsFromCard(&rec.Card, rec.CapturedAt)...)
	}

	result := BackfillResult{Errors: []string{}}
	totalBatches := (len(pending) + batchSize - 1) / batchSize

	for i, batch := 0, 1; i < len(pending); i, batch = i+batchSize, batch+1 {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d/%d: cancelled: %v", batch, totalBatches, err))
			break
		}

		end := i + batchSize
		if end > len(pending) {
			end = len(pending)
		}

		if err := s.store.InsertSnapshots(ctx, pending[i:end]); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d/%d: %v", batch, totalBatches, err))
			continue
		}

		result.Processed += end - i
	}

	s.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"errors":    len(result.Errors),
	}).Info("Backfill finished")

	return result
}

// windowStart returns midnight UTC at the start of the trailing window, so
// a "7 day" query covers today plus the six preceding calendar days.
func (s *Service) windowStart(days int) time.Time {
	today := s.now().UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(days - 1))
}

// fillGaps collapses each (variant, source) series to at most one point per
// calendar day (the day's latest snapshot) and synthesizes missing days by
// carrying that series' last known point forward. Series are filled
// independently so one source's history never masks another's. Nothing is
// ever carried backward.
func fillGaps(snapshots []catalog.PriceSnapshot, from, to time.Time) []catalog.PriceSnapshot {
	type seriesKey struct {
		variant string
		source  string
	}

	latestByDay := make(map[seriesKey]map[string]catalog.PriceSnapshot)

	var order []seriesKey

	for _, snap := range snapshots {
		key := seriesKey{variant: snap.Variant, source: snap.Source}

		days, ok := latestByDay[key]
		if !ok {
			days = make(map[string]catalog.PriceSnapshot)
			latestByDay[key] = days
			order = append(order, key)
		}

		days[snap.CapturedAt.UTC().Format("2006-01-02")] = snap // input is ordered ascending, so last wins
	}

	var filled []catalog.PriceSnapshot

	last := make(map[seriesKey]catalog.PriceSnapshot, len(order))

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dayKey := day.Format("2006-01-02")

		for _, key := range order {
			if snap, ok := latestByDay[key][dayKey]; ok {
				filled = append(filled, snap)
				last[key] = snap

				continue
			}

			prior, ok := last[key]
			if !ok {
				// No prior data in this series to carry forward.
				continue
			}

			prior.CapturedAt = day
			filled = append(filled, prior)
		}
	}

	return filled
}

// SnapshotsFromCard derives one snapshot per (variant, source) pair present
// on the card. Each source's variants are mapped independently: absence of
// CardMarket data never suppresses TCGPlayer snapshots.
func SnapshotsFromCard(card *catalog.CardRecord, at time.Time) []catalog.PriceSnapshot {
	var snapshots []catalog.PriceSnapshot

	if cm := card.Cardmarket; cm != nil {
		if snap, ok := cardmarketSnapshot(card.ID, catalog.VariantNormal, cm.Avg, cm.Low, cm.Trend, at); ok {
			snapshots = append(snapshots, snap)
		}

		if snap, ok := cardmarketSnapshot(card.ID, catalog.VariantReverseHolo, cm.ReverseHoloAvg, cm.ReverseHoloLow, cm.ReverseHoloTrend, at); ok {
			snapshots = append(snapshots, snap)
		}

		if snap, ok := cardmarketSnapshot(card.ID, catalog.VariantFirstEdition, cm.FirstEditionAvg, cm.FirstEditionLow, nil, at); ok {
			snapshots = append(snapshots, snap)
		}
	}

	if tp := card.TCGPlayer; tp != nil {
		variants := []struct {
			name   string
			prices *catalog.TCGPlayerVariantPrices
		}{
			{catalog.VariantNormal, tp.Normal},
			{catalog.VariantHolo, tp.Holofoil},
			{catalog.VariantReverseHolo, tp.ReverseHolofoil},
			{catalog.VariantFirstEdition, tp.FirstEditionHolofoil},
		}

		for _, v := range variants {
			if snap, ok := tcgplayerSnapshot(card.ID, v.name, v.prices, at); ok {
				snapshots = append(snapshots, snap)
			}
		}
	}

	return snapshots
}

func cardmarketSnapshot(cardID, variant string, avg, low, trend *float64, at time.Time) (catalog.PriceSnapshot, bool) {
	primary := firstNonNil(avg, trend, low)
	if primary == nil {
		return catalog.PriceSnapshot{}, false
	}

	return catalog.PriceSnapshot{
		CardID:     cardID,
		Variant:    variant,
		Source:     catalog.SourceCardmarket,
		Price:      *primary,
		Low:        low,
		Trend:      trend,
		CapturedAt: at,
	}, true
}

func tcgplayerSnapshot(cardID, variant string, prices *catalog.TCGPlayerVariantPrices, at time.Time) (catalog.PriceSnapshot, bool) {
	if prices == nil {
		return catalog.PriceSnapshot{}, false
	}

	primary := firstNonNil(prices.Market, prices.Mid, prices.Low)
	if primary == nil {
		return catalog.PriceSnapshot{}, false
	}

	return catalog.PriceSnapshot{
		CardID:     cardID,
		Variant:    variant,
		Source:     catalog.SourceTCGPlayer,
		Price:      *primary,
		Low:        prices.Low,
		Mid:        prices.Mid,
		CapturedAt: at,
	}, true
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}

	return nil
}
