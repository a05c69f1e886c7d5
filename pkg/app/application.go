package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentionally exposed when pprofAddr is configured
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/api"
	"github.com/tcgvault/tcgvault/pkg/cache"
	"github.com/tcgvault/tcgvault/pkg/observability"
	"github.com/tcgvault/tcgvault/pkg/pricing"
	"github.com/tcgvault/tcgvault/pkg/progress"
	"github.com/tcgvault/tcgvault/pkg/scheduler"
	"github.com/tcgvault/tcgvault/pkg/storage"
	"github.com/tcgvault/tcgvault/pkg/tcgsync"
	"github.com/tcgvault/tcgvault/pkg/upstream"
)

// Application encapsulates the service lifecycle: storage, sync pipeline,
// API and scheduler.
type Application struct {
	config *Config
	logger *logrus.Logger

	storageClient storage.ClientInterface
	orchestrator  *tcgsync.Orchestrator
	apiService    api.Service
	schedService  scheduler.Service
	healthServer  *http.Server
	pprofServer   *http.Server
}

// NewApplication creates a new application
func NewApplication(cfg *Config, logger *logrus.Logger) *Application {
	return &Application{
		config: cfg,
		logger: logger,
	}
}

// Start initializes and starts all services
func (a *Application) Start(ctx context.Context) error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.logger.Info("Starting TCGVault...")

	observability.StartMetricsServer(a.config.MetricsAddr)
	a.logger.WithField("addr", a.config.MetricsAddr).Info("Started metrics server")

	if a.config.HealthCheckAddr != "" {
		a.startHealthCheck()
	}

	if a.config.PProfAddr != "" {
		a.startPProf()
	}

	storageClient, err := storage.NewClient(a.logger, &a.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	if err := storageClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start storage client: %w", err)
	}

	a.storageClient = storageClient

	upstreamClient, err := upstream.NewClient(a.logger, &a.config.Upstream)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}

	store := storage.NewCatalogStore(a.logger, storageClient, a.config.Storage.Database)

	syncer := tcgsync.NewSyncer(a.logger, upstreamClient, store)
	tracker := progress.NewTracker(a.logger)
	queryCache := cache.New()
	a.orchestrator = tcgsync.NewOrchestrator(a.logger, syncer, tracker, queryCache, a.config.Orchestrator)
	pricingService := pricing.NewService(a.logger, store)

	a.apiService = api.NewService(&a.config.API, a.orchestrator, syncer, pricingService, tracker, queryCache, store, a.logger)
	if err := a.apiService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API service: %w", err)
	}

	if a.config.Scheduler.Enabled {
		opt, parseErr := redis.ParseURL(a.config.Redis.URL)
		if parseErr != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", parseErr)
		}

		schedService, schedErr := scheduler.NewService(a.logger, &a.config.Scheduler, opt, a.orchestrator, syncer)
		if schedErr != nil {
			return fmt.Errorf("failed to create scheduler service: %w", schedErr)
		}

		if err := schedService.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler service: %w", err)
		}

		a.schedService = schedService
	}

	a.logger.Info("TCGVault started successfully")

	return nil
}

// Stop gracefully shuts down all services
func (a *Application) Stop() error {
	a.logger.Info("Shutting down TCGVault...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.orchestrator != nil {
		a.orchestrator.Stop()
	}

	if a.schedService != nil {
		if err := a.schedService.Stop(); err != nil {
			a.logger.WithError(err).Error("Failed to stop scheduler service")
		}
	}

	if a.apiService != nil {
		if err := a.apiService.Stop(); err != nil {
			a.logger.WithError(err).Error("Failed to stop API service")
		}
	}

	if a.healthServer != nil {
		if err := a.healthServer.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Error("Failed to shutdown health check server")
		}
	}

	if a.pprofServer != nil {
		if err := a.pprofServer.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Error("Failed to shutdown pprof server")
		}
	}

	if err := observability.StopMetricsServer(ctx); err != nil {
		a.logger.WithError(err).Error("Failed to stop metrics server")
	}

	if a.storageClient != nil {
		if err := a.storageClient.Stop(); err != nil {
			a.logger.WithError(err).Error("Failed to stop storage client")
		}
	}

	return nil
}

func (a *Application) startHealthCheck() {
	a.logger.WithField("addr", a.config.HealthCheckAddr).Info("Starting health check server")

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if a.storageClient != nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("READY"))
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT READY"))
		}
	})

	a.healthServer = &http.Server{
		Addr:              a.config.HealthCheckAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("Health check server failed")
		}
	}()
}

func (a *Application) startPProf() {
	a.logger.WithField("addr", a.config.PProfAddr).Info("Starting pprof server")

	a.pprofServer = &http.Server{
		Addr:              a.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	go func() {
		if err := a.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("Pprof server failed")
		}
	}()
}
