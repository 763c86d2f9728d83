package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cueview/cueview/internal/auth"
	"github.com/cueview/cueview/internal/config"
	"github.com/cueview/cueview/internal/httpapi"
	"github.com/cueview/cueview/internal/rooms"
	"github.com/cueview/cueview/internal/session"
	"github.com/cueview/cueview/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("level", cfg.Server.LogLevel).Msg("unknown log level, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()

	st, cleanup := setupStore(ctx, cfg)
	defer cleanup()

	registry := rooms.NewRegistry(st, clock, cfg.RoomTTL())
	hub := session.NewHub(session.DefaultConnectionConfig())
	handler := session.NewHandler(registry, hub, setupVerifier(cfg, clock), clock, session.LogSink{})
	hub.SetHandler(handler)

	reconciler := session.NewReconciler(registry, hub, clock, cfg.ReconcileInterval())

	api := httpapi.NewServer(registry, hub, clock)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.Handler(httpapi.Options{
			CORSOrigin:     cfg.Server.CORSOrigin,
			RateLimit:      float64(cfg.Server.RateLimit),
			RateLimitBurst: cfg.Server.RateLimitBurst,
		}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go hub.Start(ctx)
	go reconciler.Run(ctx)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	cancel()

	log.Info().Msg("shutdown complete")
}

// setupStore connects to Postgres when configured, otherwise falls back to
// the in-memory store. Rooms in memory do not survive a restart; the log
// makes that explicit.
func setupStore(ctx context.Context, cfg *config.Config) (store.Store, func()) {
	if cfg.Database.Host == "" {
		log.Info().Msg("no database configured, rooms are ephemeral")
		return store.NewMemory(), func() {}
	}

	pg, err := store.NewPostgres(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error().Err(err).Msg("database unavailable, falling back to in-memory store")
		return store.NewMemory(), func() {}
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Database).
		Msg("connected to database")
	return pg, pg.Close
}

func setupVerifier(cfg *config.Config, clock clockwork.Clock) auth.Verifier {
	if cfg.Auth.PublicKey == "" {
		log.Info().Msg("no auth public key configured, rooms are ownerless")
		return auth.Anonymous{}
	}

	key, err := base64.StdEncoding.DecodeString(cfg.Auth.PublicKey)
	if err != nil || len(key) != ed25519.PublicKeySize {
		log.Fatal().Err(err).Msg("AUTH_PUBLIC_KEY must be a base64-encoded Ed25519 public key")
	}
	return auth.NewJWT(ed25519.PublicKey(key), clock)
}
