package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/PromptSentinel/SentinelGate/pkg/app/profile"
	"github.com/PromptSentinel/SentinelGate/pkg/config"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
	"github.com/PromptSentinel/SentinelGate/pkg/domain/embedding"
	"github.com/PromptSentinel/SentinelGate/pkg/guardrail"
	handlers "github.com/PromptSentinel/SentinelGate/pkg/handlers/http"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/auditlogs"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/database"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/embedding/factory"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/events"
	infraLogger "github.com/PromptSentinel/SentinelGate/pkg/infra/logger"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/metrics"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/upstream"
	"github.com/PromptSentinel/SentinelGate/pkg/router"
	"github.com/PromptSentinel/SentinelGate/pkg/server"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()
	envFile := os.Getenv("ENV_FILE")

	if envFile == "" {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config"
	}
	if err := config.Load(configPath); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	metrics.Initialize()

	// Guardrail engine: the boot profile degrades to the fallback instead
	// of failing, so the gateway never starts unprotected.
	creator := buildEmbeddingCreator(logger, cfg)
	builder := guardrail.NewBuilder(creator, cfg.Embedding.Model, logger)
	activeProfile := filepath.Join(cfg.Guardrails.ProfilesDir, cfg.Guardrails.ActiveProfile)
	handle := guardrail.NewHandle(builder.BuildFromFile(ctx, activeProfile))

	// Redis propagates profile switches across replicas; disabled means
	// switches stay local.
	var publisher events.Publisher
	var listener events.Listener
	if cfg.Redis.Enabled {
		redisClient, err := events.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize redis: %v", err)
		}
		publisher = events.NewRedisPublisher(redisClient, events.ProfileChannel)
		listener = events.NewRedisListener(logger, redisClient, events.Registry)
	}

	switcher := profile.NewSwitcher(
		logger, cfg.Guardrails.ProfilesDir, cfg.Guardrails.ActiveProfile, builder, handle, publisher,
	)
	finder := profile.NewFinder(logger, cfg.Guardrails.ProfilesDir)

	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()
	if listener != nil {
		events.RegisterSubscriber[events.ProfileSwitchedEvent](
			listener, profile.NewSwitchSubscriber(logger, switcher),
		)
		go listener.Listen(listenCtx, events.ProfileChannel)
	}

	// Audit trail: the file sink always runs; postgres adds the queryable
	// store and kafka fans entries out to external consumers.
	fileSink, err := auditlogs.NewFileSink(cfg.Audit.LogFile)
	if err != nil {
		logger.Fatalf("Failed to initialize audit log file: %v", err)
	}
	sinks := []audit.Sink{fileSink}
	var store audit.Store = fileSink

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.NewDB(logger, cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		defer func() { _ = db.Close() }()

		pgStore, err := auditlogs.NewPostgresStore(db)
		if err != nil {
			logger.Fatalf("Failed to initialize audit store: %v", err)
		}
		sinks = append(sinks, pgStore)
		store = pgStore
	}

	if cfg.Audit.Kafka.Enabled {
		kafkaSink, err := auditlogs.NewKafkaSink(cfg.Audit.Kafka)
		if err != nil {
			logger.Fatalf("Failed to initialize kafka sink: %v", err)
		}
		sinks = append(sinks, kafkaSink)
	}

	auditQueue := auditlogs.NewQueue(logger, cfg.Audit.QueueSize, sinks...)
	auditQueue.StartWorkers(cfg.Audit.Workers)

	// Handler Transport
	handlerTransport := handlers.HandlerTransport{
		// Proxy
		ChatCompletionsHandler: handlers.NewChatCompletionsHandler(handlers.ChatCompletionsHandlerDeps{
			Logger:       logger,
			Handle:       handle,
			Router:       router.New(cfg.Providers),
			Forwarder:    upstream.NewForwarder(cfg.Upstream, logger),
			StreamClient: &http.Client{},
			Recorder:     auditQueue,
			StreamConfig: cfg.Guardrails.Stream,
		}),
		// Operations
		HealthHandler:        handlers.NewHealthHandler(switcher),
		ListProfilesHandler:  handlers.NewListProfilesHandler(logger, switcher, finder),
		SwitchProfileHandler: handlers.NewSwitchProfileHandler(logger, switcher),
		GetAuditLogsHandler:  handlers.NewGetAuditLogsHandler(logger, store),
	}

	srv := server.NewGatewayServer(server.GatewayServerDI{
		Config:           cfg,
		Logger:           logger,
		HandlerTransport: handlerTransport,
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	fmt.Println("shutting down server...")
	stopListening()
	if err := srv.Shutdown(); err != nil {
		fmt.Println("error shutting down server:", err)
		os.Exit(1)
	}
	auditQueue.Shutdown()
	fmt.Println("server gracefully stopped")
}

// buildEmbeddingCreator resolves the configured embedding provider. The
// semantic detector is optional: without a creator it stays inactive and
// the rest of the pipeline runs as usual.
func buildEmbeddingCreator(logger *logrus.Logger, cfg *config.Config) embedding.Creator {
	locator := factory.NewServiceLocator(logger, cfg.Providers, cfg.Embedding)
	creator, err := locator.GetService(cfg.Embedding.Provider)
	if err != nil {
		logger.WithError(err).Warn("embedding provider unavailable, semantic detection disabled")
		return nil
	}
	return creator
}
