package api

import (
	"time"

	"github.com/strandhttp/strand/internal/services/stream/engine"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// OpsHandler serves the operational surface: health and engine counters.
// It runs on its own port, beside the stream engine, never in front of it.
type OpsHandler struct {
	eng *engine.Engine
}

// NewOpsHandler creates the ops handler for eng.
func NewOpsHandler(eng *engine.Engine) *OpsHandler {
	return &OpsHandler{eng: eng}
}

// NewOpsApp builds the fiber app carrying the ops endpoints.
func NewOpsApp(eng *engine.Engine) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "strand-ops",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	h := NewOpsHandler(eng)
	app.Get("/health", h.HealthCheck)

	return app
}

// HealthCheck reports engine state. Any double-completed stream means a
// handler bug is loose, so the service reports degraded.
func (h *OpsHandler) HealthCheck(c *fiber.Ctx) error {
	doubles := h.eng.DoubleCompletions()

	status := "healthy"
	statusCode := fiber.StatusOK
	if doubles > 0 {
		status = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"active_streams":     h.eng.ActiveStreams(),
			"double_completions": doubles,
		},
	})
}
