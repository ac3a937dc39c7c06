package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/adapters/audio"
	"github.com/satriahrh/rekam/adapters/backend"
	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/internal/config"
	"github.com/satriahrh/rekam/internal/control"
	"github.com/satriahrh/rekam/internal/health"
	"github.com/satriahrh/rekam/usecase"
)

func main() {
	// Optional .env for development overrides
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	configPath := os.Getenv("REKAM_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	store := config.Load(configPath, logger)

	session := entities.NewSession()

	sources := audio.NewFactory(func() (string, string) {
		cfg := store.Get()
		return cfg.InputDeviceName, cfg.OutputDeviceName
	}, logger)

	backendClient := backend.NewClient(func() (string, string) {
		cfg := store.Get()
		return cfg.APIBaseURL(), cfg.APIToken
	}, clock.New(), logger)

	service, err := usecase.NewSessionService(session, sources, backendClient, func() time.Duration {
		return store.Get().MinMeetingDuration()
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceDone := make(chan struct{})
	go func() {
		defer close(serviceDone)
		service.Run(ctx)
	}()

	checker := health.NewChecker(backendClient, session, clock.New(), logger)
	go checker.Run(ctx)

	server := control.NewServer(service, sources, backendClient, store, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Control server stopped", zap.Error(err))
		}
	}()

	logger.Info("Recording agent started")

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Cancelling stops an active recording and drains outstanding
	// uploads and the finalize call; Run returns only when that is done.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Control server shutdown failed", zap.Error(err))
	}

	<-serviceDone

	logger.Info("Recording agent exited")
}
