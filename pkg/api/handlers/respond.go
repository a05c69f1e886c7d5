package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/tcgvault/tcgvault/pkg/tcgsync"
)

// stageStatus picks the HTTP status for a single stage result: 200 for full
// success, 207 for partial success, 500 when nothing was processed at all
// (a fatal upstream fetch failure).
func stageStatus(r tcgsync.Result) int {
	switch {
	case len(r.Errors) == 0:
		return fiber.StatusOK
	case r.ItemsProcessed == 0:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusMultiStatus
	}
}

func respondStage(c fiber.Ctx, message string, r tcgsync.Result) error {
	return c.Status(stageStatus(r)).JSON(fiber.Map{
		"success":         r.Success,
		"message":         message,
		"items_processed": r.ItemsProcessed,
		"errors":          r.Errors,
		"duration_ms":     r.DurationMs,
	})
}

func badRequest(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func notFound(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func serverError(c fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
