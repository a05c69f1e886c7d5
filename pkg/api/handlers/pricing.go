package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/tcgvault/tcgvault/pkg/catalog"
	"github.com/tcgvault/tcgvault/pkg/pricing"
)

const historyCacheTTL = 5 * time.Minute

type historyParams struct {
	CardID   string `query:"card_id"`
	Days     int    `query:"days"`
	Variant  string `query:"variant"`
	FillGaps bool   `query:"fill_gaps"`
	Stats    bool   `query:"stats"`
}

type pricingActionRequest struct {
	Action     string                     `json:"action"`
	CardID     string                     `json:"card_id"`
	Card       *catalog.CardRecord        `json:"card"`
	CapturedAt time.Time                  `json:"captured_at"`
	Records    []pricing.HistoricalRecord `json:"records"`
	BatchSize  int                        `json:"batch_size"`
}

// PricingHistory handles GET /api/v1/pricing/history. With stats=true it
// returns the window statistics instead of the snapshot series.
func (s *Server) PricingHistory(c fiber.Ctx) error {
	var params historyParams
	if err := c.Bind().Query(&params); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	if params.CardID == "" {
		return badRequest(c, "card_id is required")
	}

	if params.Stats {
		stats, err := s.pricing.Stats(c.RequestCtx(), params.CardID, params.Days)
		if err != nil {
			return serverError(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
			"data":    stats,
		})
	}

	key := fmt.Sprintf("pricing:history:%s:%d:%s:%t", params.CardID, params.Days, params.Variant, params.FillGaps)
	if v, ok := s.cache.Get(key); ok {
		if series, valid := v.([]catalog.PriceSnapshot); valid {
			return respondHistory(c, series)
		}
	}

	series, err := s.pricing.History(c.RequestCtx(), pricing.HistoryQuery{
		CardID:   params.CardID,
		Days:     params.Days,
		Variant:  params.Variant,
		FillGaps: params.FillGaps,
	})
	if err != nil {
		return serverError(c, err)
	}

	s.cache.Set(key, series, historyCacheTTL)

	return respondHistory(c, series)
}

func respondHistory(c fiber.Ctx, series []catalog.PriceSnapshot) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    series,
		"points":  len(series),
	})
}

// PricingAction handles POST /api/v1/pricing/history, dispatching on the
// action field: capture writes a current snapshot set, backfill replays a
// batch of historical records.
func (s *Server) PricingAction(c fiber.Ctx) error {
	var req pricingActionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	switch req.Action {
	case "capture":
		return s.capturePricing(c, req)
	case "backfill":
		return s.backfillPricing(c, req)
	default:
		return badRequest(c, "action must be capture or backfill")
	}
}

func (s *Server) capturePricing(c fiber.Ctx, req pricingActionRequest) error {
	if req.CardID == "" {
		return badRequest(c, "card_id is required")
	}

	card := req.Card
	if card == nil {
		stored, err := s.store.GetCard(c.RequestCtx(), req.CardID)
		if err != nil {
			return serverError(c, err)
		}

		if stored == nil {
			return notFound(c, "unknown card: "+req.CardID)
		}

		card = stored
	}

	card.ID = req.CardID

	at := req.CapturedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	written, err := s.pricing.Capture(c.RequestCtx(), card, at)
	if err != nil {
		return serverError(c, err)
	}

	s.cache.Clear("pricing:history:" + req.CardID)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":           true,
		"message":           "pricing captured",
		"snapshots_written": written,
	})
}

func (s *Server) backfillPricing(c fiber.Ctx, req pricingActionRequest) error {
	if len(req.Records) == 0 {
		return badRequest(c, "records is required")
	}

	result := s.pricing.Backfill(c.RequestCtx(), pricing.BackfillOptions{
		Records:   req.Records,
		BatchSize: req.BatchSize,
	})

	s.cache.Clear("pricing:history")

	status := fiber.StatusOK
	if len(result.Errors) > 0 {
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"success":   len(result.Errors) == 0,
		"message":   "backfill finished",
		"processed": result.Processed,
		"errors":    result.Errors,
	})
}
