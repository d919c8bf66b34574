package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"search-agent/internal/adapter/httpapi"
	"search-agent/internal/di"
	"search-agent/internal/infrastructure/env"
	"search-agent/internal/infrastructure/logger"

	"github.com/go-chi/httplog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envService := env.NewEnvService()
	cfg, err := di.ConfigFromEnv(envService)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	appLogger, err := logger.NewStdoutLogger(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.NewContainer(ctx, cfg, appLogger, nil)
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer container.Close()

	handler := httpapi.NewHandler(container.Search, cfg.Extract, appLogger)
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler.Router("search-agent", httplog.Options{JSON: true}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Shutdown failed", "error", err)
		}
	}()

	appLogger.Info("Server listening", "addr", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Server stopped")
}
