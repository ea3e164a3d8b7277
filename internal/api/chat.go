package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/cache"
	"github.com/dkschrei/ai-research-agent/internal/services/conductor"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
	"github.com/dkschrei/ai-research-agent/internal/services/request"
	"github.com/dkschrei/ai-research-agent/internal/services/response"
)

// ChatHandler serves synchronous chat requests: select a model, dispatch,
// return the generated text with routing metadata.
type ChatHandler struct {
	conductor   *conductor.Conductor
	promptCache *cache.PromptCache
	reqSvc      *request.Service
	respSvc     *response.Service
}

// NewChatHandler creates the chat handler. promptCache may be nil when
// caching is disabled.
func NewChatHandler(cond *conductor.Conductor, promptCache *cache.PromptCache, reqSvc *request.Service, respSvc *response.Service) *ChatHandler {
	return &ChatHandler{
		conductor:   cond,
		promptCache: promptCache,
		reqSvc:      reqSvc,
		respSvc:     respSvc,
	}
}

// Chat handles POST /v1/chat.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	requestID := h.reqSvc.RequestID(c)

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respSvc.BadRequest(c, "invalid request body")
	}
	if req.Message == "" {
		return h.respSvc.BadRequest(c, "message is required")
	}

	if h.promptCache != nil {
		if cached, tier, ok := h.promptCache.Lookup(c.Context(), req.Message, requestID); ok {
			cached.CacheTier = tier
			return h.respSvc.Success(c, cached)
		}
	}

	decision := h.conductor.Select(conductor.SelectInput{
		RequestID:  requestID,
		Complexity: req.Complexity,
		Model:      req.Model,
		TaskType:   models.TaskChat,
	})
	fiberlog.Infof("[%s] Chat: routed to %s (%s)", requestID, decision.Model, decision.Reason)

	resp, record, err := h.conductor.Dispatch(c.Context(), conductor.DispatchInput{
		RequestID: requestID,
		TaskType:  models.TaskChat,
		Messages: []ollama.Message{
			{Role: "user", Content: req.Message},
		},
	}, decision)
	if err != nil {
		return h.respSvc.AppError(c, err)
	}

	chatResp := &models.ChatResponse{
		Response:     resp.Message.Content,
		ModelUsed:    decision.Model,
		Reason:       decision.Reason,
		ResponseTime: float64(record.LatencyMs) / 1000.0,
		Timestamp:    time.Now(),
	}

	if h.promptCache != nil {
		h.promptCache.Store(c.Context(), req.Message, chatResp, requestID)
	}

	return h.respSvc.Success(c, chatResp)
}
