package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/api/handlers"
	"github.com/tcgvault/tcgvault/pkg/cache"
	"github.com/tcgvault/tcgvault/pkg/pricing"
	"github.com/tcgvault/tcgvault/pkg/progress"
	"github.com/tcgvault/tcgvault/pkg/storage"
	"github.com/tcgvault/tcgvault/pkg/tcgsync"
)

// Service defines the API service interface
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app    *fiber.App
	server *http.Server
	config *Config

	orchestrator *tcgsync.Orchestrator
	syncer       *tcgsync.Syncer
	pricing      *pricing.Service
	tracker      *progress.Tracker
	queryCache   *cache.Cache
	store        storage.CatalogStore

	log logrus.FieldLogger
}

// NewService creates a new API service
func NewService(
	cfg *Config,
	orchestrator *tcgsync.Orchestrator,
	syncer *tcgsync.Syncer,
	pricingService *pricing.Service,
	tracker *progress.Tracker,
	queryCache *cache.Cache,
	store storage.CatalogStore,
	log logrus.FieldLogger,
) Service {
	return &service{
		config:       cfg,
		orchestrator: orchestrator,
		syncer:       syncer,
		pricing:      pricingService,
		tracker:      tracker,
		queryCache:   queryCache,
		store:        store,
		log:          log.WithField("service", "api"),
	}
}

// Start initializes and starts the API server
func (s *service) Start(_ context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API service is disabled")
		return nil
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "TCGVault API",
	})

	setupMiddleware(s.app)

	server := handlers.NewServer(s.orchestrator, s.syncer, s.pricing, s.tracker, s.queryCache, s.store, s.log)

	apiV1 := s.app.Group("/api/v1")
	server.Register(apiV1)

	fiberHandler := adaptor.FiberApp(s.app)
	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           fiberHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting API server")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Server failed to start")
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server
func (s *service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
