package router

import (
	"errors"

	handlers "github.com/PromptSentinel/SentinelGate/pkg/handlers/http"
	"github.com/gofiber/fiber/v2"
)

var ErrIncompleteHandlerTransport = errors.New("incomplete handler transport")

const (
	HealthPath          = "/health"
	ChatCompletionsPath = "/v1/chat/completions"
	ProfilesPath        = "/api/profiles"
	ProfileSwitchPath   = "/api/profiles/switch"
	AuditLogsPath       = "/api/logs"
)

type gatewayRouter struct {
	handlerTransport handlers.HandlerTransport
}

func NewGatewayRouter(handlerTransport handlers.HandlerTransport) ServerRouter {
	return &gatewayRouter{handlerTransport: handlerTransport}
}

func (r *gatewayRouter) BuildRoutes(router *fiber.App) error {
	t := r.handlerTransport
	if t.ChatCompletionsHandler == nil || t.HealthHandler == nil ||
		t.ListProfilesHandler == nil || t.SwitchProfileHandler == nil ||
		t.GetAuditLogsHandler == nil {
		return ErrIncompleteHandlerTransport
	}

	router.Get(HealthPath, t.HealthHandler.Handle)

	router.Post(ChatCompletionsPath, t.ChatCompletionsHandler.Handle)

	api := router.Group("/api")
	{
		api.Get("/profiles", t.ListProfilesHandler.Handle)
		api.Post("/profiles/switch", t.SwitchProfileHandler.Handle)
		api.Get("/logs", t.GetAuditLogsHandler.Handle)
	}

	return nil
}
