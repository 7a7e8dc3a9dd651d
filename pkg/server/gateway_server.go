package server

import (
	"fmt"

	"github.com/PromptSentinel/SentinelGate/pkg/config"
	handlers "github.com/PromptSentinel/SentinelGate/pkg/handlers/http"
	"github.com/PromptSentinel/SentinelGate/pkg/server/router"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type (
	GatewayServerDI struct {
		Config           *config.Config
		Logger           *logrus.Logger
		HandlerTransport handlers.HandlerTransport
	}
	GatewayServer struct {
		*BaseServer
		handlerTransport handlers.HandlerTransport
	}
)

func NewGatewayServer(di GatewayServerDI) *GatewayServer {
	s := &GatewayServer{
		BaseServer:       NewBaseServer(di.Config, di.Logger),
		handlerTransport: di.HandlerTransport,
	}
	s.setupMetricsEndpoint()
	return s
}

func (s *GatewayServer) Run() error {
	s.Router.Use(recover.New())
	s.WithRouters(router.NewGatewayRouter(s.handlerTransport))

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("Starting gateway server")
	return s.Router.Listen(addr)
}

func (s *GatewayServer) Shutdown() error {
	return s.Router.Shutdown()
}
