package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/request"
	"github.com/dkschrei/ai-research-agent/internal/services/research"
	"github.com/dkschrei/ai-research-agent/internal/services/response"
)

// ResearchHandler serves background research jobs: submission returns a
// handle immediately, status is polled by handle.
type ResearchHandler struct {
	manager *research.Manager
	reqSvc  *request.Service
	respSvc *response.Service
}

func NewResearchHandler(manager *research.Manager, reqSvc *request.Service, respSvc *response.Service) *ResearchHandler {
	return &ResearchHandler{
		manager: manager,
		reqSvc:  reqSvc,
		respSvc: respSvc,
	}
}

// Submit handles POST /v1/research.
func (h *ResearchHandler) Submit(c *fiber.Ctx) error {
	requestID := h.reqSvc.RequestID(c)

	var req models.ResearchRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respSvc.BadRequest(c, "invalid request body")
	}

	job, err := h.manager.Submit(c.Context(), req, requestID)
	if err != nil {
		return h.respSvc.AppError(c, err)
	}

	return h.respSvc.Created(c, job)
}

// Get handles GET /v1/research/:id.
func (h *ResearchHandler) Get(c *fiber.Ctx) error {
	job, err := h.manager.Get(c.Params("id"))
	if err != nil {
		return h.respSvc.AppError(c, err)
	}
	return h.respSvc.Success(c, job)
}

// List handles GET /v1/research.
func (h *ResearchHandler) List(c *fiber.Ctx) error {
	jobs := h.manager.List()
	return h.respSvc.Success(c, fiber.Map{
		"jobs":  jobs,
		"total": len(jobs),
	})
}
