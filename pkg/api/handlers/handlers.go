// Package handlers implements the request handlers for the sync and pricing API.
package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/cache"
	"github.com/tcgvault/tcgvault/pkg/pricing"
	"github.com/tcgvault/tcgvault/pkg/progress"
	"github.com/tcgvault/tcgvault/pkg/storage"
	"github.com/tcgvault/tcgvault/pkg/tcgsync"
)

// Server holds the pipeline components the handlers delegate to.
type Server struct {
	orchestrator *tcgsync.Orchestrator
	syncer       *tcgsync.Syncer
	pricing      *pricing.Service
	tracker      *progress.Tracker
	cache        *cache.Cache
	store        storage.CatalogStore
	log          logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(
	orchestrator *tcgsync.Orchestrator,
	syncer *tcgsync.Syncer,
	pricingService *pricing.Service,
	tracker *progress.Tracker,
	queryCache *cache.Cache,
	store storage.CatalogStore,
	log logrus.FieldLogger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		syncer:       syncer,
		pricing:      pricingService,
		tracker:      tracker,
		cache:        queryCache,
		store:        store,
		log:          log.WithField("component", "api.handlers"),
	}
}

// Register mounts all handlers under the given router group.
func (s *Server) Register(router fiber.Router) {
	router.Post("/sync/sets", s.SyncSets)
	router.Get("/sync/sets", s.SyncStatus)
	router.Post("/sync/cards", s.SyncCards)
	router.Put("/sync/cards", s.SyncCardLists)
	router.Post("/sync/all", s.SyncAll)
	router.Get("/sync/all", s.SyncStatus)
	router.Post("/sync/pricing", s.UpdatePricing)
	router.Get("/sync/progress", s.GetProgress)
	router.Post("/sync/progress", s.UpdateProgress)
	router.Delete("/sync/progress", s.ClearProgress)
	router.Get("/pricing/history", s.PricingHistory)
	router.Post("/pricing/history", s.PricingAction)
	router.Post("/bulk-import", s.BulkImport)
	router.Get("/bulk-import", s.BulkImportStatus)
}
