package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"sheetgrid-be/internal/config"
	"sheetgrid-be/internal/controller"
	"sheetgrid-be/internal/handler"
	"sheetgrid-be/internal/pkg/logger"
	"sheetgrid-be/internal/repository/memory"
	"sheetgrid-be/internal/repository/unitofwork"
	"sheetgrid-be/internal/service"
	"sheetgrid-be/internal/websocket"
	"sheetgrid-be/pkg/agent"
	"sheetgrid-be/pkg/llm/factory"
	"sheetgrid-be/pkg/mcp"
	"sheetgrid-be/pkg/sheet"
	"sheetgrid-be/pkg/tools"

	pktNats "sheetgrid-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatbotController    controller.IChatbotController
	WorkbookController   controller.IWorkbookController
	CredentialController controller.ICredentialController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Spreadsheet runtime, exposed for tooling and tests
	Engine *sheet.Engine
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	sysLogger.Info("Bootstrap", "Container wiring started", map[string]interface{}{
		"environment": cfg.App.Environment,
	})

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Spreadsheet Runtime
	engine := sheet.NewEngine()
	engine.Load(sheet.NewWorkbook("Workbook"))

	// Remote tools are optional. Without an MCP endpoint every tool
	// dispatches locally.
	var remote tools.RemoteExecutor
	var remoteTools []tools.Descriptor
	if cfg.Mcp.BaseURL != "" {
		mcpClient := mcp.NewClient(cfg.Mcp.BaseURL, cfg.Keys.UniverMcp, cfg.Mcp.SessionId)
		listed, err := mcpClient.ListTools(context.Background())
		if err != nil {
			log.Printf("[WARN] MCP tool listing failed, running local-only: %v", err)
		} else {
			remote = mcpClient
			for _, t := range listed {
				remoteTools = append(remoteTools, tools.Descriptor{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				})
			}
			log.Printf("[INFO] MCP endpoint provides %d remote tools", len(remoteTools))
		}
	}
	dispatcher := tools.NewDispatcher(engine, remote, remoteTools)

	// LLM Provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.BaseURL,
		cfg.Keys.OpenRouter,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	loop := agent.NewLoop(llmProvider, dispatcher, cfg.Ai.MaxToolRounds, initToolLogger())

	// In-Memory Exchange Storage
	exchangeRepo := memory.NewExchangeRepository()

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Services
	publisherService := service.NewPublisherService(cfg.Keys.SnapshotTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.SnapshotTopic,
		uowFactory,
	)

	chatbotService := service.NewChatbotService(
		uowFactory,
		loop,
		dispatcher,
		exchangeRepo,
		wsHub,
		natsPub,
	)
	workbookService := service.NewWorkbookService(
		engine,
		uowFactory,
		publisherService,
		wsHub,
		natsPub,
	)
	credentialService := service.NewCredentialService(uowFactory)

	notifHandler := handler.NewNotificationHandler(wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		NotificationHandler:  notifHandler,
		WebSocketHub:         wsHub,
		Engine:               engine,
		ChatbotController:    controller.NewChatbotController(chatbotService),
		WorkbookController:   controller.NewWorkbookController(workbookService),
		CredentialController: controller.NewCredentialController(credentialService),

		ConsumerService: consumerService,
	}
}

func initToolLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_tools.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-TOOLS] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
