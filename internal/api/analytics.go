package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dkschrei/ai-research-agent/internal/services/analytics"
	"github.com/dkschrei/ai-research-agent/internal/services/research"
	"github.com/dkschrei/ai-research-agent/internal/services/response"
)

// AnalyticsHandler reports usage aggregates from the execution log.
type AnalyticsHandler struct {
	sink    analytics.Sink
	manager *research.Manager
	respSvc *response.Service
}

func NewAnalyticsHandler(sink analytics.Sink, manager *research.Manager, respSvc *response.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		sink:    sink,
		manager: manager,
		respSvc: respSvc,
	}
}

// Get handles GET /v1/analytics.
func (h *AnalyticsHandler) Get(c *fiber.Ctx) error {
	stats, err := h.sink.Stats(c.Context())
	if err != nil {
		return h.respSvc.AppError(c, err)
	}

	usage, err := h.sink.UsageByModel(c.Context())
	if err != nil {
		return h.respSvc.AppError(c, err)
	}

	recent, err := h.sink.Recent(c.Context(), 20)
	if err != nil {
		return h.respSvc.AppError(c, err)
	}

	mostUsed := ""
	if len(usage) > 0 {
		mostUsed = usage[0].Model
	}

	return h.respSvc.Success(c, fiber.Map{
		"stats":           stats,
		"usage_by_model":  usage,
		"most_used_model": mostUsed,
		"recent_records":  recent,
		"jobs": fiber.Map{
			"active": h.manager.ActiveCount(),
			"total":  h.manager.TotalCount(),
		},
	})
}
