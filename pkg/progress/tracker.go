// Package progress provides an in-memory, keyed tracker for long-running
// sync operations. State is process-lifetime only: it does not survive a
// restart, by design of the sync pipeline (a fresh process starts idle).
package progress

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// completedRetention is how long a finished entry stays visible to pollers
// before it is removed.
const completedRetention = 5 * time.Minute

// Snapshot is the externally visible state of one tracked operation.
type Snapshot struct {
	Operation              string    `json:"operation"`
	Current                int       `json:"current"`
	Total                  int       `json:"total"`
	Percentage             float64   `json:"percentage"`
	Label                  string    `json:"label,omitempty"`
	StartedAt              time.Time `json:"started_at"`
	EstimatedTimeRemaining float64   `json:"estimated_time_remaining_seconds"`
}

type entry struct {
	current   int
	total     int
	label     string
	startedAt time.Time
	cleanup   *time.Timer
}

// Tracker tracks progress per operation key. It is safe for concurrent use;
// handlers poll it while sync stages update it.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewTracker creates an empty tracker
func NewTracker(log logrus.FieldLogger) *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		log:     log.WithField("component", "progress"),
		now:     time.Now,
	}
}

// Update records counters for an operation. The first update for a key
// establishes the start time; later updates preserve it. Reaching 100%
// schedules best-effort removal of the entry after a retention window.
func (t *Tracker) Update(operation string, current, total int, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[operation]
	if !ok {
		e = &entry{startedAt: t.now()}
		t.entries[operation] = e
	}

	e.current = current
	e.total = total
	e.label = label

	if e.cleanup != nil {
		e.cleanup.Stop()
		e.cleanup = nil
	}

	if percentage(current, total) >= 100 {
		op := operation
		e.cleanup = time.AfterFunc(completedRetention, func() {
			t.Clear(op)
		})
	}
}

// Get returns the snapshot for an operation key, with a derived completion
// percentage and remaining-time estimate. ok is false for unknown keys.
func (t *Tracker) Get(operation string) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[operation]
	if !ok {
		return Snapshot{}, false
	}

	snap := Snapshot{
		Operation:  operation,
		Current:    e.current,
		Total:      e.total,
		Percentage: percentage(e.current, e.total),
		Label:      e.label,
		StartedAt:  e.startedAt,
	}

	elapsed := t.now().Sub(e.startedAt).Seconds()
	if elapsed > 0 && e.current > 0 {
		rate := float64(e.current) / elapsed
		snap.EstimatedTimeRemaining = float64(e.total-e.current) / rate
	}

	return snap, true
}

// Clear removes an operation's entry immediately.
func (t *Tracker) Clear(operation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[operation]; ok {
		if e.cleanup != nil {
			e.cleanup.Stop()
		}

		delete(t.entries, operation)
	}
}

func percentage(current, total int) float64 {
	if total <= 0 {
		return 0
	}

	return float64(current) / float64(total) * 100
}
