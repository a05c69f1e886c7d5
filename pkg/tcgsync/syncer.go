package tcgsync

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/catalog"
	"github.com/tcgvault/tcgvault/pkg/observability"
	"github.com/tcgvault/tcgvault/pkg/storage"
	"github.com/tcgvault/tcgvault/pkg/upstream"
)

// Syncer runs the individual sync stages against upstream and storage.
type Syncer struct {
	upstream upstream.ClientInterface
	store    storage.CatalogStore
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewSyncer creates a syncer
func NewSyncer(log logrus.FieldLogger, up upstream.ClientInterface, store storage.CatalogStore) *Syncer {
	return &Syncer{
		upstream: up,
		store:    store,
		log:      log.WithField("component", "syncer"),
		now:      time.Now,
	}
}

// SyncSets fetches the full upstream set catalog and upserts it in batches.
// A failed upstream fetch is fatal to the stage; per-batch upsert failures
// are collected and reported alongside the records that did go through.
func (s *Syncer) SyncSets(ctx context.Context, opts SyncOptions) Result {
	started := s.now()

	sets, err := s.upstream.Sets(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to fetch set catalog from upstream")
		observability.RecordStage(StageSets, time.Since(started).Seconds(), false)

		return newResult(0, []string{fmt.Sprintf("failed to fetch sets: %v", err)}, started)
	}

	now := s.now()
	records := make([]catalog.SetRecord, 0, len(sets))
	for _, set := range sets {
		records = append(records, catalog.NormalizeSet(set, now))
	}

	processed, errs := runBatches(ctx, records, opts.BatchSize, StageSets, s.store.UpsertSets, opts.OnProgress)

	result := newResult(processed, errs, started)
	observability.RecordStage(StageSets, time.Since(started).Seconds(), result.Success)

	s.log.WithFields(logrus.Fields{
		"sets":   processed,
		"errors": len(errs),
	}).Info("Set sync finished")

	return result
}

// SyncCardsFromSet fetches all cards for one set, normalizes them and
// upserts in batches. Same contract as SyncSets, scoped to one set.
func (s *Syncer) SyncCardsFromSet(ctx context.Context, setID string, opts SyncOptions) Result {
	started := s.now()

	cards, err := s.upstream.CardsBySet(ctx, setID)
	if err != nil {
		s.log.WithError(err).WithField("set_id", setID).Error("Failed to fetch cards from upstream")
		observability.RecordStage(StageCards, time.Since(started).Seconds(), false)

		return newResult(0, []string{fmt.Sprintf("failed to fetch cards for set %s: %v", setID, err)}, started)
	}

	if opts.MaxCards > 0 && len(cards) > opts.MaxCards {
		cards = cards[:opts.MaxCards]
	}

	now := s.now()
	records := make([]catalog.CardRecord, 0, len(cards))
	for _, card := range cards {
		records = append(records, catalog.NormalizeCard(card, setID, now))
	}

	processed, errs := runBatches(ctx, records, opts.BatchSize, StageCards, s.store.UpsertCards, opts.OnProgress)

	result := newResult(processed, errs, started)
	observability.RecordStage(StageCards, time.Since(started).Seconds(), result.Success)

	s.log.WithFields(logrus.Fields{
		"set_id": setID,
		"cards":  processed,
		"errors": len(errs),
	}).Info("Card sync finished")

	return result
}

// UpdatePricing re-fetches current prices for stored cards and merges only
// the pricing sub-fields into the stored records. With Source "all" both
// sources are merged independently per card: missing CardMarket data never
// blocks a TCGPlayer update for the same card.
func (s *Syncer) UpdatePricing(ctx context.Context, opts PricingOptions) PricingResult {
	started := s.now()

	if opts.Source == "" {
		opts.Source = SourceAll
	}

	sets, err := s.store.RecentSets(ctx, 0)
	if err != nil {
		observability.RecordStage(StagePricing, time.Since(started).Seconds(), false)

		return PricingResult{
			Success:    false,
			Errors:     []string{fmt.Sprintf("failed to list stored sets: %v", err)},
			DurationMs: time.Since(started).Milliseconds(),
		}
	}

	var (
		updated int
		errs    []string
	)

	for i, set := range sets {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, fmt.Sprintf("cancelled: %v", ctxErr))
			break
		}

		n, setErrs := s.updateSetPricing(ctx, set.ID, opts)
		updated += n
		errs = append(errs, setErrs...)

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(sets))
		}
	}

	if errs == nil {
		errs = []string{}
	}

	result := PricingResult{
		Success:      len(errs) == 0,
		CardsUpdated: updated,
		Errors:       errs,
		DurationMs:   time.Since(started).Milliseconds(),
	}

	observability.RecordStage(StagePricing, time.Since(started).Seconds(), result.Success)

	s.log.WithFields(logrus.Fields{
		"source":  opts.Source,
		"updated": updated,
		"errors":  len(errs),
	}).Info("Pricing update finished")

	return result
}

// updateSetPricing merges fresh pricing into one set's stored cards.
func (s *Syncer) updateSetPricing(ctx context.Context, setID string, opts PricingOptions) (int, []string) {
	fresh, err := s.upstream.CardsBySet(ctx, setID)
	if err != nil {
		return 0, []string{fmt.Sprintf("set %s: failed to fetch pricing: %v", setID, err)}
	}

	stored, err := s.store.CardsBySet(ctx, setID)
	if err != nil {
		return 0, []string{fmt.Sprintf("set %s: failed to load stored cards: %v", setID, err)}
	}

	now := s.now()
	freshByID := make(map[string]upstream.Card, len(fresh))
	for _, card := range fresh {
		freshByID[card.ID] = card
	}

	merged := make([]catalog.CardRecord, 0, len(stored))

	for i := range stored {
		card := stored[i]

		up, ok := freshByID[card.ID]
		if !ok {
			continue
		}

		if !mergePricing(&card, up, opts.Source, now) {
			continue
		}

		merged = append(merged, card)
	}

	processed, errs := runBatches(ctx, merged, opts.BatchSize, StagePricing, s.store.UpsertCards, nil)
	for i := range errs {
		errs[i] = fmt.Sprintf("set %s: %s", setID, errs[i])
	}

	return processed, errs
}

// mergePricing replaces the requested pricing sub-structures on card with
// the upstream values, leaving every non-pricing field untouched. Reports
// whether anything changed.
func mergePricing(card *catalog.CardRecord, up upstream.Card, source string, now time.Time) bool {
	normalized := catalog.NormalizeCard(up, card.SetID, now)
	changed := false

	if (source == SourceAll || source == SourceCardmarket) && normalized.Cardmarket != nil {
		card.Cardmarket = normalized.Cardmarket
		changed = true
	}

	if (source == SourceAll || source == SourceTCGPlayer) && normalized.TCGPlayer != nil {
		card.TCGPlayer = normalized.TCGPlayer
		changed = true
	}

	if changed {
		card.UpdatedAt = now
	}

	return changed
}
