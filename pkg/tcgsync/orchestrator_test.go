package tcgsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcgvault/tcgvault/internal/testutil"
	"github.com/tcgvault/tcgvault/pkg/cache"
	"github.com/tcgvault/tcgvault/pkg/catalog"
	"github.com/tcgvault/tcgvault/pkg/progress"
)

func newTestOrchestrator(up *testutil.FakeUpstream, store *testutil.FakeStore) (*Orchestrator, *progress.Tracker) {
	log := testLogger()
	tracker := progress.NewTracker(log)
	syncer := NewSyncer(log, up, store)

	orch := NewOrchestrator(log, syncer, tracker, cache.New(), OrchestratorConfig{
		MaxSets:       5,
		BatchSize:     10,
		InterSetDelay: time.Millisecond,
	})

	return orch, tracker
}

func TestOrchestrator_FullRunCompletes(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(3)
	for _, set := range up.SetList {
		up.CardLists[set.ID] = testutil.UpstreamCards(set.ID, 2)
	}

	store := testutil.NewFakeStore()
	orch, tracker := newTestOrchestrator(up, store)

	result, err := orch.Run(context.Background(), RunOptions{OperationKey: "test-run"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.True(t, result.Success())
	assert.True(t, result.Sets.Success)
	assert.Len(t, result.Cards, 3)
	assert.Empty(t, result.Errors)
	assert.Len(t, store.Cards, 6)

	// The run lock is released after completion.
	assert.False(t, orch.Running())

	// Progress reached completion for the supplied operation key.
	snap, ok := tracker.Get("test-run")
	require.True(t, ok)
	assert.InDelta(t, 100, snap.Percentage, 0.001)
}

func TestOrchestrator_SetsOnlySkipsCards(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(2)

	store := testutil.NewFakeStore()
	orch, _ := newTestOrchestrator(up, store)

	result, err := orch.Run(context.Background(), RunOptions{SetsOnly: true})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Empty(t, result.Cards)
	assert.Empty(t, up.CardsCalls)
}

func TestOrchestrator_FatalWhenSetFetchFails(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetsErr = errUpstreamDown

	store := testutil.NewFakeStore()
	orch, _ := newTestOrchestrator(up, store)

	result, err := orch.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, StatusFatal, result.Status)
	require.NotEmpty(t, result.Errors)
	// Card sync is never attempted when sets failed fatally.
	assert.Empty(t, up.CardsCalls)
	assert.False(t, orch.Running())
}

func TestOrchestrator_CompletedWithErrorsWhenOneSetFails(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(2)
	up.CardLists["sv1"] = testutil.UpstreamCards("sv1", 2)
	up.CardsErr["sv2"] = errUpstreamDown

	store := testutil.NewFakeStore()
	orch, _ := newTestOrchestrator(up, store)

	result, err := orch.Run(context.Background(), RunOptions{MaxSets: 2})
	require.NoError(t, err)

	assert.Equal(t, StatusCompletedWithErrors, result.Status)
	assert.False(t, result.Success())
	assert.True(t, result.Sets.Success)
	require.Len(t, result.Cards, 2)
	assert.NotEmpty(t, result.Errors)
}

func TestOrchestrator_MaxSetsSelectsMostRecent(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(4)
	for _, set := range up.SetList {
		up.CardLists[set.ID] = testutil.UpstreamCards(set.ID, 1)
	}

	store := testutil.NewFakeStore()
	orch, _ := newTestOrchestrator(up, store)

	result, err := orch.Run(context.Background(), RunOptions{MaxSets: 2})
	require.NoError(t, err)

	require.Len(t, result.Cards, 2)
	// Fixture release dates descend with n, so sv1 and sv2 are newest.
	assert.Equal(t, "sv1", result.Cards[0].SetID)
	assert.Equal(t, "sv2", result.Cards[1].SetID)
}

func TestOrchestrator_MutualExclusion(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(1)
	up.CardLists["sv1"] = testutil.UpstreamCards("sv1", 1)

	store := testutil.NewFakeStore()

	// Block the first run inside the set upsert until released.
	entered := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once
	store.OnUpsertSets = func(_ []catalog.SetRecord) error {
		once.Do(func() {
			close(entered)
			<-release
		})
		return nil
	}

	orch, _ := newTestOrchestrator(up, store)

	var wg sync.WaitGroup
	wg.Add(1)

	var firstResult *RunResult
	var firstErr error

	go func() {
		defer wg.Done()
		firstResult, firstErr = orch.Run(context.Background(), RunOptions{OperationKey: "first"})
	}()

	<-entered
	assert.True(t, orch.Running())

	// Second invocation while the first is in flight: rejected, no writes.
	batchesBefore := len(store.SetBatches)
	second, err := orch.Run(context.Background(), RunOptions{OperationKey: "second"})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Nil(t, second)
	assert.Equal(t, batchesBefore, len(store.SetBatches))

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, StatusCompleted, firstResult.Status)
	assert.False(t, orch.Running())
}

func TestOrchestrator_StopHaltsBetweenSets(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(3)
	for _, set := range up.SetList {
		up.CardLists[set.ID] = testutil.UpstreamCards(set.ID, 1)
	}

	store := testutil.NewFakeStore()
	orch, _ := newTestOrchestrator(up, store)

	// Request stop as soon as the first set's cards are written.
	store.OnUpsertCards = func(_ []catalog.CardRecord) error {
		orch.Stop()
		return nil
	}

	result, err := orch.Run(context.Background(), RunOptions{MaxSets: 3})
	require.NoError(t, err)

	assert.Equal(t, StatusCompletedWithErrors, result.Status)
	assert.Len(t, result.Cards, 1)
}
