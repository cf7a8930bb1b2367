package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-chat-service/internal/config"
	"github.com/noah-isme/gema-chat-service/internal/handler"
	"github.com/noah-isme/gema-chat-service/internal/middleware"
	"github.com/noah-isme/gema-chat-service/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ChatHandler         *handler.ChatHandler
	NotificationHandler *handler.NotificationHandler
	CourseHandler       *handler.CourseHandler
	PaymentHandler      *handler.PaymentHandler
	AssistantHandler    *handler.AssistantHandler
	OptionalAuth        fiber.Handler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	optionalAuth := deps.OptionalAuth
	if optionalAuth == nil {
		optionalAuth = func(c *fiber.Ctx) error { return c.Next() }
	}
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Chat admits anonymous connections; identity is attached when present.
	if deps.ChatHandler != nil {
		chat := app.Group("/api/v2/chat", optionalAuth)
		deps.ChatHandler.Register(chat)
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v2/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.CourseHandler != nil {
		courses := app.Group("/api/v2/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)
	}

	if deps.PaymentHandler != nil {
		payments := app.Group("/api/v2/payments", jwtMiddleware,
			middleware.RateLimit("payments", 10, time.Minute))
		deps.PaymentHandler.Register(payments)
	}

	if deps.AssistantHandler != nil {
		assistant := app.Group("/api/v2/assistant", jwtMiddleware,
			middleware.RateLimit("assistant", 20, time.Minute))
		deps.AssistantHandler.Register(assistant)
	}
}
