// Package tcgsync implements the card catalog synchronization pipeline:
// batched upserts of sets, cards and pricing pulled from the upstream API,
// and the orchestrator that sequences them into a full sync run.
package tcgsync

import "time"

// Stage names used in logs and metrics.
const (
	StageSets    = "sets"
	StageCards   = "cards"
	StagePricing = "pricing"
)

// ProgressFunc receives (current, total) after every processed batch.
type ProgressFunc func(current, total int)

// Result is the outcome of one sync stage. Stages compose results by
// aggregation; a returned Result is never mutated afterwards.
type Result struct {
	Success        bool     `json:"success"`
	ItemsProcessed int      `json:"items_processed"`
	Errors         []string `json:"errors"`
	DurationMs     int64    `json:"duration_ms"`
}

// newResult finalizes a stage result. Success means zero errors.
func newResult(processed int, errs []string, started time.Time) Result {
	if errs == nil {
		errs = []string{}
	}

	return Result{
		Success:        len(errs) == 0,
		ItemsProcessed: processed,
		Errors:         errs,
		DurationMs:     time.Since(started).Milliseconds(),
	}
}

// SyncOptions controls a single set or card sync stage.
type SyncOptions struct {
	// BatchSize is the maximum records per storage write.
	BatchSize int
	// MaxCards, when positive, caps how many of a set's cards are synced.
	// Used by bulk import to bound run time on large sets.
	MaxCards int
	// OnProgress, when set, is invoked after every batch.
	OnProgress ProgressFunc
}

// Pricing sources accepted by UpdatePricing.
const (
	SourceAll        = "all"
	SourceCardmarket = "cardmarket"
	SourceTCGPlayer  = "tcgplayer"
)

// PricingOptions controls a pricing update stage.
type PricingOptions struct {
	BatchSize  int
	Source     string // cardmarket, tcgplayer or all
	OnProgress ProgressFunc
}

// PricingResult is the outcome of a pricing update stage.
type PricingResult struct {
	Success      bool     `json:"success"`
	CardsUpdated int      `json:"cards_updated"`
	Errors       []string `json:"errors"`
	DurationMs   int64    `json:"duration_ms"`
}
