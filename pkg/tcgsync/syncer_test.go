package tcgsync

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcgvault/tcgvault/internal/testutil"
	"github.com/tcgvault/tcgvault/pkg/catalog"
	"github.com/tcgvault/tcgvault/pkg/upstream"
)

var errUpstreamDown = errors.New("upstream down")

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return logger
}

func TestSyncSets_UpsertsInBatches(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(5)
	store := testutil.NewFakeStore()

	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.SyncSets(context.Background(), SyncOptions{BatchSize: 2})

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 5, result.ItemsProcessed)

	// 5 sets at batch size 2 -> batches of (2,2,1)
	require.Len(t, store.SetBatches, 3)
	assert.Len(t, store.SetBatches[0], 2)
	assert.Len(t, store.SetBatches[1], 2)
	assert.Len(t, store.SetBatches[2], 1)
	assert.Len(t, store.Sets, 5)
}

func TestSyncSets_FetchFailureIsFatal(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetsErr = errUpstreamDown
	store := testutil.NewFakeStore()

	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.SyncSets(context.Background(), SyncOptions{})

	assert.False(t, result.Success)
	assert.Zero(t, result.ItemsProcessed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to fetch sets")
	assert.Empty(t, store.SetBatches)
}

func TestSyncSets_BatchFailureIsPartial(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.SetList = testutil.UpstreamSets(4)
	store := testutil.NewFakeStore()

	calls := 0
	store.OnUpsertSets = func(_ []catalog.SetRecord) error {
		calls++
		if calls == 1 {
			return errors.New("write failed")
		}
		return nil
	}

	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.SyncSets(context.Background(), SyncOptions{BatchSize: 2})

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.ItemsProcessed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "write failed")
}

func TestSyncCardsFromSet_NormalizesPricing(t *testing.T) {
	up := testutil.NewFakeUpstream()
	up.CardLists["sv1"] = testutil.UpstreamCards("sv1", 3)
	store := testutil.NewFakeStore()

	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.SyncCardsFromSet(context.Background(), "sv1", SyncOptions{BatchSize: 10})

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.ItemsProcessed)

	card, ok := store.Cards["sv1-1"]
	require.True(t, ok)
	assert.Equal(t, "sv1", card.SetID)
	require.NotNil(t, card.Cardmarket)
	assert.InDelta(t, 4.20, *card.Cardmarket.Avg, 0.001)
	require.NotNil(t, card.TCGPlayer)
	require.NotNil(t, card.TCGPlayer.Normal)
	assert.InDelta(t, 4.10, *card.TCGPlayer.Normal.Market, 0.001)
	// Variants the card was never printed in stay absent.
	assert.Nil(t, card.TCGPlayer.Holofoil)
}

func TestSyncCardsFromSet_AbsentPricingStaysNil(t *testing.T) {
	up := testutil.NewFakeUpstream()

	card := testutil.UpstreamCard("sv1", 1)
	card.Cardmarket = nil
	up.CardLists["sv1"] = append(up.CardLists["sv1"], card)

	store := testutil.NewFakeStore()
	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.SyncCardsFromSet(context.Background(), "sv1", SyncOptions{})
	require.True(t, result.Success)

	stored := store.Cards["sv1-1"]
	assert.Nil(t, stored.Cardmarket)
	// The other source is unaffected by the missing one.
	require.NotNil(t, stored.TCGPlayer)
}

func TestUpdatePricing_MergesOnlyPricingFields(t *testing.T) {
	store := testutil.NewFakeStore()
	stored := testutil.CardRecord("sv1", 1)
	stored.Name = "Original Name"
	store.Cards[stored.ID] = stored
	store.Sets["sv1"] = catalog.SetRecord{ID: "sv1", ReleaseDate: "2023/01/27"}

	up := testutil.NewFakeUpstream()
	fresh := testutil.UpstreamCard("sv1", 1)
	fresh.Name = "Renamed Upstream" // must NOT overwrite the stored name
	up.CardLists["sv1"] = []upstream.Card{fresh}

	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.UpdatePricing(context.Background(), PricingOptions{Source: SourceCardmarket})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.CardsUpdated)

	got := store.Cards["sv1-1"]
	assert.Equal(t, "Original Name", got.Name)
	require.NotNil(t, got.Cardmarket)
	assert.InDelta(t, 4.20, *got.Cardmarket.Avg, 0.001)
	// TCGPlayer was not requested, so the stored value (none) is untouched.
	assert.Nil(t, got.TCGPlayer)
}

func TestUpdatePricing_AllMergesBothSourcesIndependently(t *testing.T) {
	store := testutil.NewFakeStore()
	stored := testutil.CardRecord("sv1", 1)
	store.Cards[stored.ID] = stored
	store.Sets["sv1"] = catalog.SetRecord{ID: "sv1", ReleaseDate: "2023/01/27"}

	up := testutil.NewFakeUpstream()
	fresh := testutil.UpstreamCard("sv1", 1)
	fresh.Cardmarket = nil // one source missing must not block the other
	up.CardLists["sv1"] = []upstream.Card{fresh}

	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.UpdatePricing(context.Background(), PricingOptions{Source: SourceAll})

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.CardsUpdated)

	got := store.Cards["sv1-1"]
	// CardMarket keeps its previous stored value.
	require.NotNil(t, got.Cardmarket)
	assert.InDelta(t, 3.00, *got.Cardmarket.Avg, 0.001)
	// TCGPlayer was merged from upstream.
	require.NotNil(t, got.TCGPlayer)
}

func TestUpdatePricing_FetchFailureIsCollected(t *testing.T) {
	store := testutil.NewFakeStore()
	store.Sets["sv1"] = catalog.SetRecord{ID: "sv1", ReleaseDate: "2023/01/27"}
	store.Sets["sv2"] = catalog.SetRecord{ID: "sv2", ReleaseDate: "2023/01/26"}
	store.Cards["sv2-1"] = testutil.CardRecord("sv2", 1)

	up := testutil.NewFakeUpstream()
	up.CardsErr["sv1"] = errUpstreamDown
	up.CardLists["sv2"] = []upstream.Card{testutil.UpstreamCard("sv2", 1)}

	syncer := NewSyncer(testLogger(), up, store)

	result := syncer.UpdatePricing(context.Background(), PricingOptions{Source: SourceAll})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.CardsUpdated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "sv1")
}
