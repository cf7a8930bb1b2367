package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/service"
	"github.com/noah-isme/gema-chat-service/internal/utils"
)

// PaymentHandler creates checkout sessions with the external payment gateway.
type PaymentHandler struct {
	service   service.PaymentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPaymentHandler creates a payment handler instance.
func NewPaymentHandler(service service.PaymentService, validator *validator.Validate, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "payment_handler").Logger(),
	}
}

// Register binds the checkout route.
func (h *PaymentHandler) Register(router fiber.Router) {
	router.Post("/checkout", h.checkout)
}

func (h *PaymentHandler) checkout(c *fiber.Ctx) error {
	var payload dto.CheckoutCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	session, err := h.service.Checkout(requestContext(c), payload)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "course not found")
		}
		h.logger.Error().Err(err).Uint("course_id", payload.CourseID).Msg("checkout failed")
		return utils.SendError(c, fiber.StatusBadGateway, "payment gateway unavailable")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "checkout session created", session)
}
