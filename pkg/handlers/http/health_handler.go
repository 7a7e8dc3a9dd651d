package http

import (
	"time"

	"github.com/PromptSentinel/SentinelGate/pkg/app/profile"
	"github.com/PromptSentinel/SentinelGate/pkg/version"
	"github.com/gofiber/fiber/v2"
)

type healthHandler struct {
	switcher profile.Switcher
}

func NewHealthHandler(switcher profile.Switcher) Handler {
	return &healthHandler{switcher: switcher}
}

// Handle @Summary Gateway liveness
// @Description Returns gateway status and the active guardrail profile
// @Tags Operations
// @Produce json
// @Success 200 {object} map[string]interface{} "Status"
// @Router /health [get]
func (h *healthHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "ok",
		"profile": h.switcher.Active(),
		"version": version.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}
