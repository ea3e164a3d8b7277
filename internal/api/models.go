package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/conductor"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
	"github.com/dkschrei/ai-research-agent/internal/services/request"
	"github.com/dkschrei/ai-research-agent/internal/services/response"
)

// ModelsHandler serves the model catalog, memory-gated warm-up, and task
// recommendations.
type ModelsHandler struct {
	conductor *conductor.Conductor
	runtime   *ollama.Client
	reqSvc    *request.Service
	respSvc   *response.Service
}

func NewModelsHandler(cond *conductor.Conductor, runtime *ollama.Client, reqSvc *request.Service, respSvc *response.Service) *ModelsHandler {
	return &ModelsHandler{
		conductor: cond,
		runtime:   runtime,
		reqSvc:    reqSvc,
		respSvc:   respSvc,
	}
}

// List handles GET /v1/models: the static catalog plus what the runtime has
// available on disk and resident in memory.
func (h *ModelsHandler) List(c *fiber.Ctx) error {
	catalog := h.conductor.Catalog().List()

	available := []string{}
	if infos, err := h.runtime.ListModels(c.Context()); err == nil {
		for _, info := range infos {
			available = append(available, info.Name)
		}
	} else {
		fiberlog.Warnf("Models: failed to list runtime models: %v", err)
	}

	loaded := []string{}
	if lms, err := h.runtime.LoadedModels(c.Context()); err == nil {
		for _, lm := range lms {
			loaded = append(loaded, lm.Name)
		}
	} else {
		fiberlog.Warnf("Models: failed to list loaded models: %v", err)
	}

	return h.respSvc.Success(c, fiber.Map{
		"catalog":   catalog,
		"available": available,
		"loaded":    loaded,
	})
}

// Load handles POST /v1/models/:name/load: warm a model up after checking
// the memory budget.
func (h *ModelsHandler) Load(c *fiber.Ctx) error {
	requestID := h.reqSvc.RequestID(c)
	name := c.Params("name")

	ok, err := h.conductor.CanLoad(c.Context(), name)
	if err != nil {
		return h.respSvc.AppError(c, err)
	}
	if !ok {
		return h.respSvc.Error(c, fiber.StatusConflict,
			"loading this model would exceed the memory budget",
			string(models.ErrorTypeValidation), "MEMORY_BUDGET_EXCEEDED")
	}

	// An empty-message chat makes the runtime pull the weights in.
	if _, err := h.runtime.Chat(c.Context(), name, []ollama.Message{}); err != nil {
		fiberlog.Errorf("[%s] Models: warm-up of %s failed: %v", requestID, name, err)
		return h.respSvc.AppError(c, models.NewDispatchError(name, "warm-up failed", err))
	}

	fiberlog.Infof("[%s] Models: %s loaded", requestID, name)
	return h.respSvc.Success(c, fiber.Map{
		"model":  name,
		"loaded": true,
	})
}

// Recommend handles POST /v1/models/recommend.
func (h *ModelsHandler) Recommend(c *fiber.Ctx) error {
	var req models.RecommendRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respSvc.BadRequest(c, "invalid request body")
	}
	if req.TaskDescription == "" {
		return h.respSvc.BadRequest(c, "task_description is required")
	}

	rec := h.conductor.Recommend(req.TaskDescription)
	return h.respSvc.Success(c, fiber.Map{
		"task_description": req.TaskDescription,
		"recommendations":  rec,
	})
}
