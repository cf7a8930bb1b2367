package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-chat-service/internal/config"
	"github.com/noah-isme/gema-chat-service/internal/utils"
)

var processStart = time.Now().UTC()

// HealthResponse is the liveness payload. Uptime matters here because the
// realtime state (rooms, live connections) is process-local and resets on
// restart.
type HealthResponse struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Uptime      string    `json:"uptime"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now().UTC()
		payload := HealthResponse{
			Status:      "ok",
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Uptime:      now.Sub(processStart).Round(time.Second).String(),
			Timestamp:   now,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
