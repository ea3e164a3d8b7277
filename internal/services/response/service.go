package response

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

// Service renders JSON responses and maps application errors onto HTTP
// statuses.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the sanitized error information.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitzero"`
}

// Success sends a 200 OK response with the provided data.
func (s *Service) Success(c *fiber.Ctx, data any) error {
	return c.JSON(data)
}

// Created sends a 201 Created response with the provided data.
func (s *Service) Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

// Error sends an error response with an explicit status, type, and code.
func (s *Service) Error(c *fiber.Ctx, status int, message, errorType, code string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	})
}

// AppError sanitizes err and sends it with the status its category maps to.
func (s *Service) AppError(c *fiber.Ctx, err error) error {
	appErr := models.SanitizeError(err)
	return s.Error(c, appErr.GetStatusCode(), appErr.Message, string(appErr.Type), appErr.Code)
}

// BadRequest sends a 400 validation error.
func (s *Service) BadRequest(c *fiber.Ctx, message string) error {
	return s.Error(c, fiber.StatusBadRequest, message, string(models.ErrorTypeValidation), "")
}

// NotFound sends a 404 error.
func (s *Service) NotFound(c *fiber.Ctx, message string) error {
	return s.Error(c, fiber.StatusNotFound, message, string(models.ErrorTypeNotFound), "")
}
