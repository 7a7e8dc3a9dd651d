package http

import (
	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// latestLogCount is the fixed page size served by the logs endpoint.
const latestLogCount = 20

type getAuditLogsHandler struct {
	logger *logrus.Logger
	store  audit.Store
}

func NewGetAuditLogsHandler(logger *logrus.Logger, store audit.Store) Handler {
	return &getAuditLogsHandler{
		logger: logger,
		store:  store,
	}
}

// Handle @Summary Latest audit log entries
// @Description Returns the 20 most recent gateway decisions, newest first
// @Tags Operations
// @Produce json
// @Success 200 {array} audit.Entry "Entries"
// @Failure 503 {object} map[string]interface{} "No audit store configured"
// @Router /api/logs [get]
func (h *getAuditLogsHandler) Handle(c *fiber.Ctx) error {
	if h.store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no audit store configured"})
	}

	entries, err := h.store.Latest(c.Context(), latestLogCount)
	if err != nil {
		h.logger.WithError(err).Error("failed to fetch audit logs")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch audit logs"})
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	return c.Status(fiber.StatusOK).JSON(entries)
}
