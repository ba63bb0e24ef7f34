package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	server "github.com/ThatsOurJake/simhorse-racing"
	"github.com/ThatsOurJake/simhorse-racing/internal/store"
	"github.com/ThatsOurJake/simhorse-racing/logging"
)

const shutdownGrace = 5 * time.Second

// Run wires the store, hub, and HTTP server together and serves until ctx
// is cancelled. Configuration comes from the environment (optionally via a
// .env file): SIMHORSE_ADDR, SIMHORSE_DB_PATH, SIMHORSE_SEED,
// SIMHORSE_LOG_LEVEL.
func Run(ctx context.Context) error {
	_ = godotenv.Load() // a .env file is optional

	log := newLogger()

	seed := time.Now().UnixNano()
	if raw := os.Getenv("SIMHORSE_SEED"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			seed = value
		} else {
			log.Warn().Str("value", raw).Msg("ignoring invalid SIMHORSE_SEED")
		}
	}

	dbPath := envOr("SIMHORSE_DB_PATH", "./data/races")
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("failed to close store")
		}
	}()

	hub := server.NewHub(server.HubConfig{
		Seed:      seed,
		Publisher: logging.NewZerologPublisher(log),
		Results:   st,
		Logger:    log,
	})

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	srv := &http.Server{
		Addr:    envOr("SIMHORSE_ADDR", ":8080"),
		Handler: server.NewRouter(hub, st, log),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Error().Err(serr).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", srv.Addr).Int64("seed", seed).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("app: server failed: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("SIMHORSE_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
