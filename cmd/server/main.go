package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/pairline/pairline/internal/adapters/http"
	ws "github.com/pairline/pairline/internal/adapters/signal"
	"github.com/pairline/pairline/internal/app"
	"github.com/pairline/pairline/internal/auth"
	"github.com/pairline/pairline/internal/config"
	"github.com/pairline/pairline/internal/core"
	"github.com/pairline/pairline/internal/directory"
	"github.com/pairline/pairline/internal/moderation"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	filter, err := moderation.NewFilter(cfg.RestrictedWords)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build restricted word filter")
	}

	gate := core.NewRestrictionGate()
	go gate.RunSweeper(ctx, cfg.SweepInterval)

	dir := directory.New()
	broker := app.NewBroker(gate, filter, dir, cfg.RestrictionCooldown)
	validator := auth.NewValidator(cfg.Secret)
	limiter := ws.NewChatRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	ctl := ws.NewController(broker, validator, dir, limiter, cfg.ReadLimit, cfg.PingPeriod)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("pairline server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
