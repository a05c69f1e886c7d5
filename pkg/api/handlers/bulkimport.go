package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/tcgvault/tcgvault/pkg/tcgsync"
)

type bulkImportRequest struct {
	MaxSets     int `json:"max_sets"`
	CardsPerSet int `json:"cards_per_set"`
	BatchSize   int `json:"batch_size"`
}

// BulkImport handles POST /api/v1/bulk-import. Unlike /sync/all, a run
// already in flight is rejected with 409.
func (s *Server) BulkImport(c fiber.Ctx) error {
	var req bulkImportRequest
	if err := c.Bind().Body(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return badRequest(c, "invalid request body")
	}

	result, err := s.orchestrator.Run(c.RequestCtx(), tcgsync.RunOptions{
		BatchSize:   req.BatchSize,
		MaxSets:     req.MaxSets,
		CardsPerSet: req.CardsPerSet,
	})

	if err != nil {
		if errors.Is(err, tcgsync.ErrAlreadyRunning) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "a bulk import is already running",
			})
		}

		return serverError(c, err)
	}

	return respondRun(c, result)
}

// BulkImportStatus handles GET /api/v1/bulk-import
func (s *Server) BulkImportStatus(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"running": s.orchestrator.Running(),
		},
	})
}
