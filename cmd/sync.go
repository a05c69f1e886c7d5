package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tcgvault/tcgvault/pkg/cache"
	"github.com/tcgvault/tcgvault/pkg/pricing"
	"github.com/tcgvault/tcgvault/pkg/progress"
	"github.com/tcgvault/tcgvault/pkg/storage"
	"github.com/tcgvault/tcgvault/pkg/tcgsync"
	"github.com/tcgvault/tcgvault/pkg/upstream"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	syncCfgFile     string
	syncSetsOnly    bool
	syncMaxSets     int
	syncBatchSize   int
	syncWithPricing bool
	syncCapture     bool
)

//nolint:gochecknoglobals // Cobra commands are typically global
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one full sync and exit",
	Long:  `Fetches sets and cards from upstream, upserts them into storage, optionally refreshes pricing, then exits.`,
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&syncCfgFile, "config", "config.yaml", "config file (default is config.yaml)")
	syncCmd.Flags().BoolVar(&syncSetsOnly, "sets-only", false, "sync the set catalog only, skip cards")
	syncCmd.Flags().IntVar(&syncMaxSets, "max-sets", 0, "cap on most recent sets to sync cards for (0 uses the configured default)")
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "records per storage write (0 uses the configured default)")
	syncCmd.Flags().BoolVar(&syncWithPricing, "with-pricing", false, "also refresh pricing from both sources after the sync")
	syncCmd.Flags().BoolVar(&syncCapture, "capture-snapshots", false, "record price history snapshots after the pricing refresh")
}

func runSync(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfigFromFile(syncCfgFile)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(config.Logging)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storageClient, err := storage.NewClient(log, &config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	if err := storageClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start storage client: %w", err)
	}

	defer func() {
		if stopErr := storageClient.Stop(); stopErr != nil {
			log.WithError(stopErr).Error("Failed to stop storage client")
		}
	}()

	upstreamClient, err := upstream.NewClient(log, &config.Upstream)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}

	store := storage.NewCatalogStore(log, storageClient, config.Storage.Database)
	syncer := tcgsync.NewSyncer(log, upstreamClient, store)
	tracker := progress.NewTracker(log)
	orchestrator := tcgsync.NewOrchestrator(log, syncer, tracker, cache.New(), config.Orchestrator)

	result, err := orchestrator.Run(ctx, tcgsync.RunOptions{
		BatchSize: syncBatchSize,
		SetsOnly:  syncSetsOnly,
		MaxSets:   syncMaxSets,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Status: %s\nSets processed: %d\nCard sets synced: %d\nErrors: %d\nDuration: %dms\n",
		result.Status, result.Sets.ItemsProcessed, len(result.Cards), len(result.Errors), result.DurationMs)

	for _, msg := range result.Errors {
		fmt.Printf("  - %s\n", msg)
	}

	if result.Status == tcgsync.StatusFatal {
		return fmt.Errorf("full sync failed: %s", result.Errors[0])
	}

	if syncWithPricing {
		pricingResult := syncer.UpdatePricing(ctx, tcgsync.PricingOptions{
			BatchSize: syncBatchSize,
			Source:    tcgsync.SourceAll,
		})

		fmt.Printf("Pricing updated: %d cards, %d errors\n", pricingResult.CardsUpdated, len(pricingResult.Errors))

		if syncCapture {
			captured, captureErrs := captureSnapshots(ctx, log, store)
			fmt.Printf("Snapshots captured: %d, %d errors\n", captured, captureErrs)
		}
	}

	return nil
}

// captureSnapshots writes a price snapshot for every stored card, one point
// per (variant, source) pair with current pricing.
func captureSnapshots(ctx context.Context, log *logrus.Logger, store storage.CatalogStore) (captured, failed int) {
	pricingService := pricing.NewService(log, store)

	sets, err := store.RecentSets(ctx, 0)
	if err != nil {
		log.WithError(err).Error("Failed to list sets for snapshot capture")
		return 0, 1
	}

	now := time.Now().UTC()

	for _, set := range sets {
		cards, err := store.CardsBySet(ctx, set.ID)
		if err != nil {
			log.WithError(err).WithField("set_id", set.ID).Error("Failed to load cards for snapshot capture")

			failed++

			continue
		}

		for i := range cards {
			n, err := pricingService.Capture(ctx, &cards[i], now)
			if err != nil {
				failed++
				continue
			}

			captured += n
		}
	}

	return captured, failed
}
