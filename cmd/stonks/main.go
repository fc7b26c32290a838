package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stonkshq/stonks/api"
	"github.com/stonkshq/stonks/internal/broker"
	"github.com/stonkshq/stonks/internal/config"
	"github.com/stonkshq/stonks/internal/database"
	"github.com/stonkshq/stonks/internal/marketdata"
	"github.com/stonkshq/stonks/internal/orders"
	"github.com/stonkshq/stonks/internal/users"
	"github.com/stonkshq/stonks/pkg/logger"
	"github.com/stonkshq/stonks/pkg/models"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	store := database.NewStore(db)

	// Quote feed and per-tick snapshot builder
	quoteClient := marketdata.NewFinnhubClient(cfg.Finnhub)
	snapshotBuilder := marketdata.NewSnapshotBuilder(
		quoteClient,
		models.Symbols(),
		cfg.Finnhub.RetryAttempts,
		zapLogger,
	)

	commissionRate, err := cfg.Broker.Rate()
	if err != nil {
		zapLogger.Fatal("Invalid commission rate", zap.Error(err))
	}

	brokerSvc := broker.NewService(zapLogger, store, snapshotBuilder, commissionRate, cfg.Broker.TickInterval)
	usersSvc := users.NewService(zapLogger, store)
	ordersSvc := orders.NewService(zapLogger, store, brokerSvc)

	apiServer := api.NewServer(zapLogger, usersSvc, ordersSvc, quoteClient)

	if err := brokerSvc.Start(); err != nil {
		zapLogger.Fatal("Failed to start broker service", zap.Error(err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", addr))
		if err := apiServer.Start(addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout); err != nil {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shut down API server", zap.Error(err))
	}

	// Stop the settlement scheduler last; it finishes its in-flight tick.
	if err := brokerSvc.Stop(); err != nil {
		zapLogger.Error("Failed to stop broker service", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
