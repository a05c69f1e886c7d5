package testutil

import (
	"context"
	"sync"

	"github.com/tcgvault/tcgvault/pkg/upstream"
)

// FakeUpstream is an in-memory upstream.ClientInterface.
type FakeUpstream struct {
	mu sync.Mutex

	SetList   []upstream.Set
	CardLists map[string][]upstream.Card

	SetsErr  error
	CardsErr map[string]error

	SetsCalls  int
	CardsCalls []string
}

// NewFakeUpstream creates an empty fake upstream client
func NewFakeUpstream() *FakeUpstream {
	return &FakeUpstream{
		CardLists: make(map[string][]upstream.Card),
		CardsErr:  make(map[string]error),
	}
}

// Sets implements upstream.ClientInterface
func (f *FakeUpstream) Sets(_ context.Context) ([]upstream.Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SetsCalls++

	if f.SetsErr != nil {
		return nil, f.SetsErr
	}

	return f.SetList, nil
}

// CardsBySet implements upstream.ClientInterface
func (f *FakeUpstream) CardsBySet(_ context.Context, setID string) ([]upstream.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CardsCalls = append(f.CardsCalls, setID)

	if err := f.CardsErr[setID]; err != nil {
		return nil, err
	}

	return f.CardLists[setID], nil
}
