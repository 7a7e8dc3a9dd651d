package http

import "github.com/gofiber/fiber/v2"

const ErrInvalidJsonPayload = "invalid json payload"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Proxy
	ChatCompletionsHandler Handler

	// Operations
	HealthHandler        Handler
	ListProfilesHandler  Handler
	SwitchProfileHandler Handler
	GetAuditLogsHandler  Handler
}
