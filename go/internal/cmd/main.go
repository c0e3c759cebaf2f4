package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "pennant").Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file loaded")
	}

	config, err := loadConfig(getEnv("ENGINE_CONFIG", "config/engine.yaml"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load engine config")
	}

	database, err := setupDatabase(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up database")
	}
	defer database.Close()

	services := setupServices(database, config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The orchestrator's deadline sweep is self-sufficient; the NATS consumer
	// only shortens its reaction time, so a missing broker is not fatal.
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		if err := services.Orchestrator.ConnectEvents(ctx, natsURL); err != nil {
			logger.Warn().Err(err).Str("nats_url", natsURL).Msg("event consumer unavailable, deadline sweep only")
		} else {
			defer services.Orchestrator.Close()
		}
	}

	orchDone := make(chan error, 1)
	go func() {
		orchDone <- services.Orchestrator.Run(ctx)
	}()

	server := setupServer(services, logger)
	serverDone := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("draft service listening")
		serverDone <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
		}
	case err := <-orchDone:
		if err != nil {
			logger.Error().Err(err).Msg("orchestrator stopped")
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SEC", 10))*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("draft service stopped")
}
