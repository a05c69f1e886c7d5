package tcgsync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/cache"
	"github.com/tcgvault/tcgvault/pkg/observability"
	"github.com/tcgvault/tcgvault/pkg/progress"
)

// Define static errors
var (
	// ErrAlreadyRunning is returned when a full sync is requested while one
	// is already in flight.
	ErrAlreadyRunning = errors.New("full sync already running")
)

// Orchestration run states.
const (
	StatusIdle                = "idle"
	StatusRunning             = "running"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusFatal               = "fatal"
)

// OrchestratorConfig holds full-sync orchestration settings
type OrchestratorConfig struct {
	// MaxSets caps how many most-recently-released sets get card sync.
	MaxSets int `yaml:"maxSets" default:"5"`
	// BatchSize is the default storage write batch size.
	BatchSize int `yaml:"batchSize" default:"50"`
	// InterSetDelay is the pause between per-set card syncs, respecting
	// upstream rate limits.
	InterSetDelay time.Duration `yaml:"interSetDelay" default:"2s"`
}

// RunOptions controls one orchestration run. Zero values fall back to the
// orchestrator's configured defaults.
type RunOptions struct {
	BatchSize    int    `json:"batch_size"`
	SetsOnly     bool   `json:"sets_only"`
	MaxSets      int    `json:"max_sets"`
	CardsPerSet  int    `json:"cards_per_set"`
	OperationKey string `json:"operation_key"`
}

// SetRunResult is the card sync outcome for one set.
type SetRunResult struct {
	SetID string `json:"set_id"`
	Result
}

// RunResult is the aggregate outcome of a full sync orchestration.
type RunResult struct {
	Status       string         `json:"status"`
	OperationKey string         `json:"operation_key"`
	Sets         Result         `json:"sets"`
	Cards        []SetRunResult `json:"cards"`
	Errors       []string       `json:"errors"`
	DurationMs   int64          `json:"duration_ms"`
}

// Success reports whether the run finished without any stage errors.
func (r *RunResult) Success() bool {
	return r.Status == StatusCompleted
}

// Orchestrator sequences the sync stages into a full run: sets first (a hard
// prerequisite), then cards for the most recent sets. It owns the single
// process-wide run lock; at most one orchestration executes at a time.
type Orchestrator struct {
	syncer  *Syncer
	tracker *progress.Tracker
	cache   *cache.Cache
	config  OrchestratorConfig
	log     logrus.FieldLogger

	running atomic.Bool
	stop    atomic.Bool
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(log logrus.FieldLogger, syncer *Syncer, tracker *progress.Tracker, queryCache *cache.Cache, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxSets <= 0 {
		cfg.MaxSets = 5
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	if cfg.InterSetDelay <= 0 {
		cfg.InterSetDelay = 2 * time.Second
	}

	return &Orchestrator{
		syncer:  syncer,
		tracker: tracker,
		cache:   queryCache,
		config:  cfg,
		log:     log.WithField("component", "orchestrator"),
	}
}

// Running reports whether an orchestration is currently in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Stop requests cooperative cancellation of the current run. In-flight
// batch writes finish; the run stops before starting further sets.
func (o *Orchestrator) Stop() {
	o.stop.Store(true)
}

// Run executes a full sync. The entry guard rejects a second concurrent run
// with ErrAlreadyRunning without performing any writes; the run lock is
// released on every exit path.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		observability.SyncRunsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrAlreadyRunning
	}

	defer func() {
		o.stop.Store(false)
		o.running.Store(false)
		observability.SyncRunning.Set(0)
	}()

	observability.SyncRunning.Set(1)

	started := time.Now()

	if opts.BatchSize <= 0 {
		opts.BatchSize = o.config.BatchSize
	}

	if opts.MaxSets <= 0 {
		opts.MaxSets = o.config.MaxSets
	}

	if opts.OperationKey == "" {
		opts.OperationKey = "full-sync-" + uuid.New().String()
	}

	o.log.WithFields(logrus.Fields{
		"operation": opts.OperationKey,
		"max_sets":  opts.MaxSets,
		"sets_only": opts.SetsOnly,
	}).Info("Starting full sync")

	result := &RunResult{
		Status:       StatusRunning,
		OperationKey: opts.OperationKey,
		Cards:        []SetRunResult{},
		Errors:       []string{},
	}

	result.Sets = o.syncer.SyncSets(ctx, SyncOptions{
		BatchSize: opts.BatchSize,
		OnProgress: func(current, total int) {
			o.tracker.Update(opts.OperationKey, current, total, "sets")
		},
	})
	result.Errors = append(result.Errors, result.Sets.Errors...)

	// Sets are a hard prerequisite for cards: a failed upstream set fetch
	// short-circuits the whole run.
	if len(result.Sets.Errors) > 0 && result.Sets.ItemsProcessed == 0 {
		return o.finish(result, StatusFatal, started), nil
	}

	if !opts.SetsOnly {
		o.runCardSync(ctx, opts, result)
	}

	o.cache.Clear("sets")
	o.cache.Clear("cards")

	status := StatusCompleted
	if len(result.Errors) > 0 {
		status = StatusCompletedWithErrors
	}

	return o.finish(result, status, started), nil
}

func (o *Orchestrator) runCardSync(ctx context.Context, opts RunOptions, result *RunResult) {
	sets, err := o.syncer.store.RecentSets(ctx, opts.MaxSets)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to select sets for card sync: %v", err))
		return
	}

	for i, set := range sets {
		if o.stop.Load() {
			result.Errors = append(result.Errors, "card sync stopped before set "+set.ID)
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("card sync cancelled: %v", ctxErr))
			break
		}

		o.tracker.Update(opts.OperationKey, i, len(sets), set.ID)

		setResult := o.syncer.SyncCardsFromSet(ctx, set.ID, SyncOptions{
			BatchSize: opts.BatchSize,
			MaxCards:  opts.CardsPerSet,
		})

		result.Cards = append(result.Cards, SetRunResult{SetID: set.ID, Result: setResult})
		result.Errors = append(result.Errors, setResult.Errors...)

		o.tracker.Update(opts.OperationKey, i+1, len(sets), set.ID)

		// Rate-limit pause between sets, skipped after the last one.
		if i < len(sets)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(o.config.InterSetDelay):
			}
		}
	}
}

func (o *Orchestrator) finish(result *RunResult, status string, started time.Time) *RunResult {
	result.Status = status
	result.DurationMs = time.Since(started).Milliseconds()

	observability.SyncRunsTotal.WithLabelValues(status).Inc()

	o.log.WithFields(logrus.Fields{
		"status":      status,
		"errors":      len(result.Errors),
		"duration_ms": result.DurationMs,
	}).Info("Full sync finished")

	return result
}
