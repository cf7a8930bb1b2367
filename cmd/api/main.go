package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-chat-service/internal/config"
	"github.com/noah-isme/gema-chat-service/internal/database"
	"github.com/noah-isme/gema-chat-service/internal/handler"
	"github.com/noah-isme/gema-chat-service/internal/middleware"
	"github.com/noah-isme/gema-chat-service/internal/models"
	"github.com/noah-isme/gema-chat-service/internal/repository"
	"github.com/noah-isme/gema-chat-service/internal/router"
	"github.com/noah-isme/gema-chat-service/internal/service"
	"github.com/noah-isme/gema-chat-service/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.ChatMessage{}, &models.Notification{}, &models.Course{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, cross-node fan-out and room cache disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, cross-node fan-out over nats disabled")
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	broadcaster := service.NewBroadcaster(logger)
	notificationService := service.NewNotificationService(notificationRepo, broadcaster, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	chatService := service.NewChatService(messageRepo, broadcaster, notificationService, redisClient, cfg.ChannelBase, natsConn, validate, cfg.StoreTimeout, logger)
	courseService := service.NewCourseService(courseRepo, validate, logger)
	paymentGateway := service.NewHTTPPaymentGateway(cfg.PaymentEndpoint, cfg.PaymentAPIKey, 10*time.Second)
	paymentService := service.NewPaymentService(courseRepo, paymentGateway, logger)

	var completer ai.Completer
	if cfg.OpenAIAPIKey != "" {
		openaiCompleter, err := ai.NewOpenAICompleter(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create completion client: %v", err)
		}
		completer = openaiCompleter
	}

	chatHandler := handler.NewChatHandler(chatService, validate, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive)
	courseHandler := handler.NewCourseHandler(courseService, validate, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, validate, logger)
	assistantHandler := handler.NewAssistantHandler(completer, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		ChatHandler:         chatHandler,
		NotificationHandler: notificationHandler,
		CourseHandler:       courseHandler,
		PaymentHandler:      paymentHandler,
		AssistantHandler:    assistantHandler,
		OptionalAuth:        middleware.OptionalAuth(cfg.JWTSecret),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	chatService.Start(runCtx)
	notificationService.Start(runCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
