package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcgvault/tcgvault/internal/testutil"
	"github.com/tcgvault/tcgvault/pkg/catalog"
)

func newTestService(store *testutil.FakeStore) *Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return NewService(logger, store)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()

	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)

	return parsed.UTC()
}

func TestCapture_OneSnapshotPerVariantSourcePair(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	card := catalog.CardRecord{
		ID: "sv1-1",
		Cardmarket: &catalog.CardMarketPrices{
			Avg:            testutil.Float(4.20),
			Low:            testutil.Float(2.50),
			Trend:          testutil.Float(4.75),
			ReverseHoloAvg: testutil.Float(6.00),
		},
		TCGPlayer: &catalog.TCGPlayerPrices{
			Normal:   &catalog.TCGPlayerVariantPrices{Market: testutil.Float(4.10)},
			Holofoil: &catalog.TCGPlayerVariantPrices{Market: testutil.Float(9.99)},
		},
	}

	at := day(t, "2023-06-01")

	n, err := svc.Capture(context.Background(), &card, at)
	require.NoError(t, err)

	// cardmarket normal + reverseHolo, tcgplayer normal + holo.
	assert.Equal(t, 4, n)
	require.Len(t, store.Snapshots, 4)

	bySourceVariant := make(map[string]float64)
	for _, snap := range store.Snapshots {
		assert.Equal(t, "sv1-1", snap.CardID)
		assert.Equal(t, at, snap.CapturedAt)
		bySourceVariant[snap.Source+"/"+snap.Variant] = snap.Price
	}

	assert.InDelta(t, 4.20, bySourceVariant["cardmarket/normal"], 0.001)
	assert.InDelta(t, 6.00, bySourceVariant["cardmarket/reverseHolo"], 0.001)
	assert.InDelta(t, 4.10, bySourceVariant["tcgplayer/normal"], 0.001)
	assert.InDelta(t, 9.99, bySourceVariant["tcgplayer/holo"], 0.001)
}

func TestCapture_NoPricingDataWritesNothing(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	card := catalog.CardRecord{ID: "sv1-1"}

	n, err := svc.Capture(context.Background(), &card, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.Snapshots)
}

func TestCapture_RepeatedCallsAppendHistory(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	card := catalog.CardRecord{
		ID:         "sv1-1",
		Cardmarket: &catalog.CardMarketPrices{Avg: testutil.Float(1.00)},
	}

	_, err := svc.Capture(context.Background(), &card, day(t, "2023-06-01"))
	require.NoError(t, err)
	_, err = svc.Capture(context.Background(), &card, day(t, "2023-06-02"))
	require.NoError(t, err)

	assert.Len(t, store.Snapshots, 2)
}

func TestHistory_GapFillCarriesForwardOnly(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	// 7-day window ending 2023-06-07; snapshots only on day 1 and day 5.
	svc.now = func() time.Time { return day(t, "2023-06-07").Add(12 * time.Hour) }

	store.Snapshots = []catalog.PriceSnapshot{
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 10.0, day(t, "2023-06-01")),
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 20.0, day(t, "2023-06-05")),
	}

	series, err := svc.History(context.Background(), HistoryQuery{
		CardID:   "sv1-1",
		Days:     7,
		Variant:  "normal",
		FillGaps: true,
	})
	require.NoError(t, err)

	// Days 1-7 all present: nothing precedes day 1, so nothing is
	// fabricated before it.
	require.Len(t, series, 7)

	prices := make([]float64, 0, len(series))
	for _, snap := range series {
		prices = append(prices, snap.Price)
	}

	assert.Equal(t, []float64{10, 10, 10, 10, 20, 20, 20}, prices)
}

func TestHistory_GapFillNothingBeforeFirstSnapshot(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	svc.now = func() time.Time { return day(t, "2023-06-07") }

	store.Snapshots = []catalog.PriceSnapshot{
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 5.0, day(t, "2023-06-04")),
	}

	series, err := svc.History(context.Background(), HistoryQuery{
		CardID:   "sv1-1",
		Days:     7,
		FillGaps: true,
	})
	require.NoError(t, err)

	// Window covers 06-01..06-07 but days before the first snapshot are absent.
	require.Len(t, series, 4)
	assert.Equal(t, day(t, "2023-06-04"), series[0].CapturedAt)
}

func TestHistory_GapFillKeepsEverySeriesOnSharedDays(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	svc.now = func() time.Time { return day(t, "2023-06-01").Add(12 * time.Hour) }

	store.Snapshots = []catalog.PriceSnapshot{
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 10.0, day(t, "2023-06-01")),
		testutil.Snapshot("sv1-1", "holo", "tcgplayer", 99.0, day(t, "2023-06-01").Add(time.Hour)),
	}

	series, err := svc.History(context.Background(), HistoryQuery{
		CardID:   "sv1-1",
		Days:     1,
		FillGaps: true,
	})
	require.NoError(t, err)

	require.Len(t, series, 2)

	bySeries := make(map[string]float64)
	for _, snap := range series {
		bySeries[snap.Source+"/"+snap.Variant] = snap.Price
	}

	assert.InDelta(t, 10.0, bySeries["cardmarket/normal"], 0.001)
	assert.InDelta(t, 99.0, bySeries["tcgplayer/holo"], 0.001)
}

func TestHistory_GapFillCarriesEachSeriesIndependently(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	// 5-day window ending 2023-06-05: cardmarket starts on day 1,
	// tcgplayer only on day 3.
	svc.now = func() time.Time { return day(t, "2023-06-05") }

	store.Snapshots = []catalog.PriceSnapshot{
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 10.0, day(t, "2023-06-01")),
		testutil.Snapshot("sv1-1", "holo", "tcgplayer", 99.0, day(t, "2023-06-03")),
	}

	series, err := svc.History(context.Background(), HistoryQuery{
		CardID:   "sv1-1",
		Days:     5,
		FillGaps: true,
	})
	require.NoError(t, err)

	perSeries := make(map[string][]float64)
	for _, snap := range series {
		key := snap.Source + "/" + snap.Variant
		perSeries[key] = append(perSeries[key], snap.Price)
	}

	// cardmarket carries across all five days; tcgplayer only from its
	// first snapshot onward, never backward.
	assert.Equal(t, []float64{10, 10, 10, 10, 10}, perSeries["cardmarket/normal"])
	assert.Equal(t, []float64{99, 99, 99}, perSeries["tcgplayer/holo"])
	assert.Len(t, series, 8)
}

func TestHistory_WithoutFillReturnsRawSeries(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	svc.now = func() time.Time { return day(t, "2023-06-07") }

	store.Snapshots = []catalog.PriceSnapshot{
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 5.0, day(t, "2023-06-02")),
		testutil.Snapshot("sv1-1", "normal", "tcgplayer", 6.0, day(t, "2023-06-02").Add(time.Hour)),
	}

	series, err := svc.History(context.Background(), HistoryQuery{CardID: "sv1-1", Days: 7})
	require.NoError(t, err)
	assert.Len(t, series, 2)
}

func TestHistory_WindowExcludesOlderSnapshots(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	svc.now = func() time.Time { return day(t, "2023-06-07") }

	store.Snapshots = []catalog.PriceSnapshot{
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 1.0, day(t, "2023-05-01")),
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 2.0, day(t, "2023-06-06")),
	}

	series, err := svc.History(context.Background(), HistoryQuery{CardID: "sv1-1", Days: 7})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.InDelta(t, 2.0, series[0].Price, 0.001)
}

func TestStats_ComputesSummary(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	svc.now = func() time.Time { return day(t, "2023-06-07") }

	store.Snapshots = []catalog.PriceSnapshot{
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 10.0, day(t, "2023-06-01")),
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 30.0, day(t, "2023-06-03")),
		testutil.Snapshot("sv1-1", "normal", "cardmarket", 20.0, day(t, "2023-06-06")),
	}

	stats, err := svc.Stats(context.Background(), "sv1-1", 7)
	require.NoError(t, err)

	assert.True(t, stats.HasData)
	assert.Equal(t, 3, stats.Points)
	assert.InDelta(t, 10.0, stats.Min, 0.001)
	assert.InDelta(t, 30.0, stats.Max, 0.001)
	assert.InDelta(t, 20.0, stats.Avg, 0.001)
	assert.InDelta(t, 10.0, stats.Change, 0.001)
	assert.InDelta(t, 100.0, stats.ChangePercent, 0.001)
}

func TestStats_NoDataIsAResultNotAnError(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	stats, err := svc.Stats(context.Background(), "unknown", 7)
	require.NoError(t, err)
	assert.False(t, stats.HasData)
	assert.Zero(t, stats.Points)
}

func TestBackfill_PartialSuccess(t *testing.T) {
	store := testutil.NewFakeStore()
	svc := newTestService(store)

	calls := 0
	store.OnInsertSnapshots = func(_ []catalog.PriceSnapshot) error {
		calls++
		if calls == 2 {
			return errors.New("write failed")
		}
		return nil
	}

	records := make([]HistoricalRecord, 0, 5)
	for i := 0; i < 5; i++ {
		records = append(records, HistoricalRecord{
			CardID:     "sv1-1",
			CapturedAt: day(t, "2023-06-01").AddDate(0, 0, i),
			Card: catalog.CardRecord{
				Cardmarket: &catalog.CardMarketPrices{Avg: testutil.Float(float64(i + 1))},
			},
		})
	}

	result := svc.Backfill(context.Background(), BackfillOptions{Records: records, BatchSize: 2})

	// 5 snapshots in batches of (2,2,1); the middle batch failed.
	assert.Equal(t, 3, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "batch 2/3")
}
