package handlers

import (
	"github.com/gofiber/fiber/v3"
)

type progressUpdateRequest struct {
	Operation  string `json:"operation"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	CurrentSet string `json:"current_set"`
}

// GetProgress handles GET /api/v1/sync/progress?operation=<key>
func (s *Server) GetProgress(c fiber.Ctx) error {
	operation := c.Query("operation")
	if operation == "" {
		return badRequest(c, "operation is required")
	}

	snapshot, ok := s.tracker.Get(operation)
	if !ok {
		return notFound(c, "unknown operation: "+operation)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    snapshot,
	})
}

// UpdateProgress handles POST /api/v1/sync/progress
func (s *Server) UpdateProgress(c fiber.Ctx) error {
	var req progressUpdateRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.Operation == "" {
		return badRequest(c, "operation is required")
	}

	s.tracker.Update(req.Operation, req.Current, req.Total, req.CurrentSet)

	snapshot, _ := s.tracker.Get(req.Operation)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    snapshot,
	})
}

// ClearProgress handles DELETE /api/v1/sync/progress?operation=<key>
func (s *Server) ClearProgress(c fiber.Ctx) error {
	operation := c.Query("operation")
	if operation == "" {
		return badRequest(c, "operation is required")
	}

	s.tracker.Clear(operation)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "progress cleared for " + operation,
	})
}
