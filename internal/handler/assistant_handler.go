package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/utils"
	"github.com/noah-isme/gema-chat-service/pkg/ai"
)

// AssistantHandler proxies prompts to the external completion service.
type AssistantHandler struct {
	completer ai.Completer
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAssistantHandler creates an assistant handler instance.
func NewAssistantHandler(completer ai.Completer, validator *validator.Validate, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		completer: completer,
		validator: validator,
		logger:    logger.With().Str("component", "assistant_handler").Logger(),
	}
}

// Register binds the completion route.
func (h *AssistantHandler) Register(router fiber.Router) {
	router.Post("/complete", h.complete)
}

func (h *AssistantHandler) complete(c *fiber.Ctx) error {
	if h.completer == nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "completion service not configured")
	}

	var payload dto.CompletionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.completer.Complete(requestContext(c), ai.CompletionInput{Prompt: payload.Prompt})
	if err != nil {
		h.logger.Error().Err(err).Msg("completion request failed")
		return utils.SendError(c, fiber.StatusBadGateway, "completion service unavailable")
	}

	return utils.SendSuccess(c, "completion", dto.CompletionResponse{Text: result.Text})
}
