// Package testutil provides in-memory fakes and fixtures shared by unit
// tests across the sync, pricing and API packages.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tcgvault/tcgvault/pkg/catalog"
)

// FakeStore is an in-memory CatalogStore. Batches are recorded so tests can
// assert partitioning, and per-call hooks allow error injection.
type FakeStore struct {
	mu sync.Mutex

	Sets      map[string]catalog.SetRecord
	Cards     map[string]catalog.CardRecord
	Snapshots []catalog.PriceSnapshot

	SetBatches      [][]catalog.SetRecord
	CardBatches     [][]catalog.CardRecord
	SnapshotBatches [][]catalog.PriceSnapshot

	// Optional hooks, invoked before the write is applied. Returning an
	// error fails that batch without recording its records.
	OnUpsertSets      func(batch []catalog.SetRecord) error
	OnUpsertCards     func(batch []catalog.CardRecord) error
	OnInsertSnapshots func(batch []catalog.PriceSnapshot) error

	RecentSetsErr error
	CardsBySetErr error
}

// NewFakeStore creates an empty fake store
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Sets:  make(map[string]catalog.SetRecord),
		Cards: make(map[string]catalog.CardRecord),
	}
}

// UpsertSets implements storage.CatalogStore
func (f *FakeStore) UpsertSets(_ context.Context, sets []catalog.SetRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SetBatches = append(f.SetBatches, append([]catalog.SetRecord(nil), sets...))

	if f.OnUpsertSets != nil {
		if err := f.OnUpsertSets(sets); err != nil {
			return err
		}
	}

	for _, set := range sets {
		f.Sets[set.ID] = set
	}

	return nil
}

// UpsertCards implements storage.CatalogStore
func (f *FakeStore) UpsertCards(_ context.Context, cards []catalog.CardRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CardBatches = append(f.CardBatches, append([]catalog.CardRecord(nil), cards...))

	if f.OnUpsertCards != nil {
		if err := f.OnUpsertCards(cards); err != nil {
			return err
		}
	}

	for _, card := range cards {
		f.Cards[card.ID] = card
	}

	return nil
}

// RecentSets implements storage.CatalogStore
func (f *FakeStore) RecentSets(_ context.Context, limit int) ([]catalog.SetRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RecentSetsErr != nil {
		return nil, f.RecentSetsErr
	}

	sets := make([]catalog.SetRecord, 0, len(f.Sets))
	for _, set := range f.Sets {
		sets = append(sets, set)
	}

	sort.Slice(sets, func(i, j int) bool {
		if sets[i].ReleaseDate != sets[j].ReleaseDate {
			return sets[i].ReleaseDate > sets[j].ReleaseDate
		}
		return sets[i].ID < sets[j].ID
	})

	if limit > 0 && len(sets) > limit {
		sets = sets[:limit]
	}

	return sets, nil
}

// CardsBySet implements storage.CatalogStore
func (f *FakeStore) CardsBySet(_ context.Context, setID string) ([]catalog.CardRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CardsBySetErr != nil {
		return nil, f.CardsBySetErr
	}

	var cards []catalog.CardRecord
	for _, card := range f.Cards {
		if card.SetID == setID {
			cards = append(cards, card)
		}
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })

	return cards, nil
}

// GetCard implements storage.CatalogStore
func (f *FakeStore) GetCard(_ context.Context, id string) (*catalog.CardRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	card, ok := f.Cards[id]
	if !ok {
		return nil, nil
	}

	return &card, nil
}

// InsertSnapshots implements storage.CatalogStore
func (f *FakeStore) InsertSnapshots(_ context.Context, snapshots []catalog.PriceSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SnapshotBatches = append(f.SnapshotBatches, append([]catalog.PriceSnapshot(nil), snapshots...))

	if f.OnInsertSnapshots != nil {
		if err := f.OnInsertSnapshots(snapshots); err != nil {
			return err
		}
	}

	f.Snapshots = append(f.Snapshots, snapshots...)

	return nil
}

// SnapshotsSince implements storage.CatalogStore
func (f *FakeStore) SnapshotsSince(_ context.Context, cardID, variant string, since time.Time) ([]catalog.PriceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []catalog.PriceSnapshot

	for _, snap := range f.Snapshots {
		if snap.CardID != cardID {
			continue
		}

		if variant != "" && snap.Variant != variant {
			continue
		}

		if snap.CapturedAt.Before(since) {
			continue
		}

		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })

	return out, nil
}

// Counts implements storage.CatalogStore
func (f *FakeStore) Counts(_ context.Context) (uint64, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return uint64(len(f.Sets)), uint64(len(f.Cards)), nil
}
