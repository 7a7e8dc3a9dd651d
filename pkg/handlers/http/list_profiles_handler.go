package http

import (
	"github.com/PromptSentinel/SentinelGate/pkg/app/profile"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type listProfilesHandler struct {
	logger   *logrus.Logger
	switcher profile.Switcher
	finder   profile.Finder
}

func NewListProfilesHandler(logger *logrus.Logger, switcher profile.Switcher, finder profile.Finder) Handler {
	return &listProfilesHandler{
		logger:   logger,
		switcher: switcher,
		finder:   finder,
	}
}

// Handle @Summary List guardrail profiles
// @Description Returns the active profile and every profile file available on disk
// @Tags Profiles
// @Produce json
// @Success 200 {object} map[string]interface{} "Profiles"
// @Router /api/profiles [get]
func (h *listProfilesHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"active_profile": h.switcher.Active(),
		"profiles":       h.finder.List(),
	})
}
