package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-chat-service/internal/dto"
	"github.com/noah-isme/gema-chat-service/internal/middleware"
	"github.com/noah-isme/gema-chat-service/internal/service"
	"github.com/noah-isme/gema-chat-service/internal/utils"
)

// ChatHandler wires chat endpoints including the websocket upgrade.
type ChatHandler struct {
	service   service.ChatService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, validator *validator.Validate, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Get("/messages", h.recentMessages)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	// Identity is optional: anonymous participation is permitted, the
	// optional-auth middleware only fills user_id when a valid token is sent.
	userID := websocketUserID(conn)
	room := strings.TrimSpace(conn.Query("room"))
	correlation := strings.TrimSpace(stringLocal(conn, "correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ChatConnectionOptions{
		UserID:        userID,
		Room:          room,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("room", room).Msg("chat websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Str("room", room).Msg("chat websocket disconnected")
}

func (h *ChatHandler) recentMessages(c *fiber.Ctx) error {
	room := strings.TrimSpace(c.Query("room"))
	if room == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "room required")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	query := dto.ChatHistoryQuery{
		Room:  room,
		Limit: limit,
	}

	if err := h.validator.Struct(query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))

	messages, err := h.service.History(ctx, query)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}

	return utils.SendSuccess(c, "recent messages", messages)
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case uint:
			return strconv.FormatUint(uint64(v), 10)
		case string:
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func stringLocal(conn *websocket.Conn, key string) string {
	if value := conn.Locals(key); value != nil {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}
