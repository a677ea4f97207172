package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mpr131/whiskey-inventory-app-sub000/config"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/app"
	httpDelivery "github.com/mpr131/whiskey-inventory-app-sub000/internal/delivery/http"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/logging"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	slog.SetDefault(logger)

	logger.Info("starting caskledger catalog service",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Type)

	if cfg.Feed.BaseURL != "" && cfg.Feed.APIKey == "" {
		logger.Warn("external feed configured without an API key", "base_url", cfg.Feed.BaseURL)
	}

	engine, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to start catalog engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(engine.Resolver, engine.Store, httpDelivery.HandlerOptions{
		Feed:         engine.Feed,
		Health:       engine,
		FeedPageSize: cfg.Feed.PageSize,
		Logger:       logger.With("component", "http"),
	})

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // bulk imports and feed syncs run inside the request
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
}
