package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/tcgvault/tcgvault/pkg/tcgsync"
)

const countsCacheTTL = 30 * time.Second

type syncSetsRequest struct {
	BatchSize int `json:"batch_size"`
}

type syncCardsRequest struct {
	SetID     string `json:"set_id"`
	BatchSize int    `json:"batch_size"`
}

type syncCardListsRequest struct {
	SetIDs    []string `json:"set_ids"`
	BatchSize int      `json:"batch_size"`
}

type syncAllRequest struct {
	BatchSize    int    `json:"batch_size"`
	SetsOnly     bool   `json:"sets_only"`
	MaxSets      int    `json:"max_sets"`
	OperationKey string `json:"operation_key"`
}

type pricingUpdateRequest struct {
	BatchSize int    `json:"batch_size"`
	Source    string `json:"source"`
}

// SyncSets handles POST /api/v1/sync/sets
func (s *Server) SyncSets(c fiber.Ctx) error {
	var req syncSetsRequest
	if err := c.Bind().Body(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return badRequest(c, "invalid request body")
	}

	result := s.syncer.SyncSets(c.RequestCtx(), tcgsync.SyncOptions{
		BatchSize: req.BatchSize,
		OnProgress: func(current, total int) {
			s.tracker.Update("sync-sets", current, total, "sets")
		},
	})

	return respondStage(c, "set sync finished", result)
}

type catalogCounts struct {
	Sets  uint64 `json:"sets"`
	Cards uint64 `json:"cards"`
}

// SyncStatus handles GET /api/v1/sync/sets and GET /api/v1/sync/all
func (s *Server) SyncStatus(c fiber.Ctx) error {
	status := "idle"
	if s.orchestrator.Running() {
		status = "running"
	}

	counts, err := s.cachedCounts(c)
	if err != nil {
		return serverError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"status": status,
			"counts": counts,
		},
	})
}

// cachedCounts serves the stored set/card totals through the query cache.
// The orchestrator invalidates the entry after every run.
func (s *Server) cachedCounts(c fiber.Ctx) (catalogCounts, error) {
	if v, ok := s.cache.Get("sets:counts"); ok {
		if counts, valid := v.(catalogCounts); valid {
			return counts, nil
		}
	}

	sets, cards, err := s.store.Counts(c.RequestCtx())
	if err != nil {
		return catalogCounts{}, fmt.Errorf("failed to count stored records: %w", err)
	}

	counts := catalogCounts{Sets: sets, Cards: cards}
	s.cache.Set("sets:counts", counts, countsCacheTTL)

	return counts, nil
}

// SyncCards handles POST /api/v1/sync/cards
func (s *Server) SyncCards(c fiber.Ctx) error {
	var req syncCardsRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.SetID == "" {
		return badRequest(c, "set_id is required")
	}

	result := s.syncer.SyncCardsFromSet(c.RequestCtx(), req.SetID, tcgsync.SyncOptions{
		BatchSize: req.BatchSize,
		OnProgress: func(current, total int) {
			s.tracker.Update("sync-cards-"+req.SetID, current, total, req.SetID)
		},
	})

	return respondStage(c, "card sync finished", result)
}

// SyncCardLists handles PUT /api/v1/sync/cards, syncing several sets in order.
func (s *Server) SyncCardLists(c fiber.Ctx) error {
	var req syncCardListsRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if len(req.SetIDs) == 0 {
		return badRequest(c, "set_ids is required")
	}

	results := make([]tcgsync.SetRunResult, 0, len(req.SetIDs))
	failed := 0

	for _, setID := range req.SetIDs {
		result := s.syncer.SyncCardsFromSet(c.RequestCtx(), setID, tcgsync.SyncOptions{
			BatchSize: req.BatchSize,
		})

		if !result.Success {
			failed++
		}

		results = append(results, tcgsync.SetRunResult{SetID: setID, Result: result})
	}

	status := fiber.StatusOK
	if failed > 0 {
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"success": failed == 0,
		"message": fmt.Sprintf("synced cards for %d of %d sets", len(req.SetIDs)-failed, len(req.SetIDs)),
		"results": results,
	})
}

// SyncAll handles POST /api/v1/sync/all. A run already in flight is reported
// in the response body rather than as a 409: callers are expected to check
// GET /sync/all first.
func (s *Server) SyncAll(c fiber.Ctx) error {
	var req syncAllRequest
	if err := c.Bind().Body(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return badRequest(c, "invalid request body")
	}

	result, err := s.orchestrator.Run(c.RequestCtx(), tcgsync.RunOptions{
		BatchSize:    req.BatchSize,
		SetsOnly:     req.SetsOnly,
		MaxSets:      req.MaxSets,
		OperationKey: req.OperationKey,
	})

	if err != nil {
		if errors.Is(err, tcgsync.ErrAlreadyRunning) {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"success": false,
				"message": "a full sync is already running",
			})
		}

		return serverError(c, err)
	}

	return respondRun(c, result)
}

// respondRun maps an orchestration outcome to a status code: fatal runs are
// 500, partial success is 207.
func respondRun(c fiber.Ctx, result *tcgsync.RunResult) error {
	status := fiber.StatusOK

	switch result.Status {
	case tcgsync.StatusFatal:
		status = fiber.StatusInternalServerError
	case tcgsync.StatusCompletedWithErrors:
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"success": result.Success(),
		"message": "full sync " + result.Status,
		"results": result,
	})
}

// UpdatePricing handles POST /api/v1/sync/pricing
func (s *Server) UpdatePricing(c fiber.Ctx) error {
	var req pricingUpdateRequest
	if err := c.Bind().Body(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return badRequest(c, "invalid request body")
	}

	switch req.Source {
	case "", tcgsync.SourceAll, tcgsync.SourceCardmarket, tcgsync.SourceTCGPlayer:
	default:
		return badRequest(c, "source must be one of all, cardmarket, tcgplayer")
	}

	result := s.syncer.UpdatePricing(c.RequestCtx(), tcgsync.PricingOptions{
		BatchSize: req.BatchSize,
		Source:    req.Source,
		OnProgress: func(current, total int) {
			s.tracker.Update("pricing-update", current, total, "pricing")
		},
	})

	status := fiber.StatusOK
	if len(result.Errors) > 0 {
		status = fiber.StatusMultiStatus
	}

	s.cache.Clear("pricing:history")

	return c.Status(status).JSON(fiber.Map{
		"success":       result.Success,
		"message":       "pricing update finished",
		"cards_updated": result.CardsUpdated,
		"errors":        result.Errors,
		"duration_ms":   result.DurationMs,
	})
}
