package http

import (
	"errors"
	"fmt"

	"github.com/PromptSentinel/SentinelGate/pkg/app/profile"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type switchProfileRequest struct {
	ProfileName string `json:"profile_name"`
}

type switchProfileHandler struct {
	logger   *logrus.Logger
	switcher profile.Switcher
}

func NewSwitchProfileHandler(logger *logrus.Logger, switcher profile.Switcher) Handler {
	return &switchProfileHandler{
		logger:   logger,
		switcher: switcher,
	}
}

// Handle @Summary Switch the active guardrail profile
// @Description Loads the named profile file, builds a new engine and swaps it in atomically
// @Tags Profiles
// @Accept json
// @Produce json
// @Param request body switchProfileRequest true "Profile switch payload"
// @Success 200 {object} map[string]interface{} "Switch applied"
// @Failure 400 {object} map[string]interface{} "Missing profile_name"
// @Failure 404 {object} map[string]interface{} "Profile not found"
// @Failure 500 {object} map[string]interface{} "Profile failed to load; previous profile stays active"
// @Router /api/profiles/switch [post]
func (h *switchProfileHandler) Handle(c *fiber.Ctx) error {
	var req switchProfileRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Error("failed to parse profile switch request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
	}
	if req.ProfileName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "profile_name is required"})
	}

	active, err := h.switcher.Switch(c.Context(), req.ProfileName)
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		h.logger.WithError(err).WithField("profile", req.ProfileName).Error("failed to load profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to load profile: %v", err),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":         "success",
		"active_profile": active,
	})
}
