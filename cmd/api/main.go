package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"famledger/internal/config"
	"famledger/internal/database"
	"famledger/internal/handlers"
	"famledger/internal/logger"
	"famledger/internal/queue"
	"famledger/internal/router"
	"famledger/internal/services"
	"famledger/internal/validator"

	_ "famledger/internal/docs" // Import swagger docs
)

// @title           FamLedger API
// @version         1.0
// @description     FamLedger is a shared family finance ledger. Forwarded bank SMS and email alerts are parsed into transactions and reconciled against family accounts.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Shared key for trusted message gateways.

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(appConfig.Env, appConfig.LogLevel)
	defer logger.Sync()
	log := logger.Get()

	// Create database manager
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	familyService := services.NewFamilyService(db, appConfig.DefaultCurrency)
	accountService := services.NewAccountService(db, familyService)
	transactionService := services.NewTransactionService(db, accountService)
	dashboardService := services.NewDashboardService(db, familyService)
	messageService := services.NewMessageService(db, accountService, familyService, auditService,
		services.WithDefaultCurrency(appConfig.DefaultCurrency))

	// Initialize handlers and router
	engine := router.New(router.Handlers{
		Auth:        handlers.NewAuthHandler(userService, auditService),
		Family:      handlers.NewFamilyHandler(familyService, auditService),
		Account:     handlers.NewAccountHandler(accountService, auditService),
		Transaction: handlers.NewTransactionHandler(transactionService, auditService),
		Message:     handlers.NewMessageHandler(messageService),
		Dashboard:   handlers.NewDashboardHandler(dashboardService),
	}, router.Options{
		InternalAPIKey: appConfig.InternalAPIKey,
		Swagger:        appConfig.Env != "production",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Forwarded message consumer
	if appConfig.RabbitMQURL != "" {
		consumer, err := queue.NewConsumer(appConfig.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("failed to start message consumer: %w", err)
		}
		defer consumer.Close()

		topo := queue.Topology{
			Exchange:   appConfig.MessageExchange,
			Queue:      appConfig.MessageQueue,
			RoutingKey: appConfig.MessageRoutingKey,
		}
		go func() {
			if err := consumer.Consume(ctx, topo, queue.NewHandler(messageService).HandleDelivery); err != nil {
				log.Errorf("message consumer stopped: %v", err)
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; forwarded message consumer disabled")
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting FamLedger backend server on port %s", appConfig.Port)
		if appConfig.Env != "production" {
			log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
