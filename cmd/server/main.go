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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/staturevogue/storefront/internal/api"
	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/events"
	"github.com/staturevogue/storefront/internal/evidence"
	"github.com/staturevogue/storefront/internal/gateway"
	"github.com/staturevogue/storefront/internal/lifecycle"
	"github.com/staturevogue/storefront/internal/repository/postgres"
	"github.com/staturevogue/storefront/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	repos := postgres.NewRepositories(db, logger)

	store, err := evidence.NewStore(cfg.Evidence, logger)
	if err != nil {
		logger.Fatal("Failed to open evidence store", zap.Error(err))
	}

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	defer publisher.Close()

	// Online payments stay disabled until gateway keys are configured
	var gw service.PaymentGateway
	if cfg.Gateway.KeyID != "" && cfg.Gateway.KeySecret != "" {
		gw = gateway.NewClient(cfg.Gateway, logger)
	} else {
		logger.Warn("Payment gateway keys not set, only COD checkout is available")
	}

	svc := service.New(service.Dependencies{
		Repos:    repos,
		Gateway:  gw,
		Evidence: store,
		Events:   publisher,
		Window:   lifecycle.Days(cfg.Lifecycle.ReturnWindowDays),
		Logger:   logger,
	})

	router := api.NewRouter(cfg, repos, svc, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
