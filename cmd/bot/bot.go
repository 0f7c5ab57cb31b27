package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abelzeko/reservoir-dashboard/internal/api"
	"github.com/abelzeko/reservoir-dashboard/internal/config"
	"github.com/abelzeko/reservoir-dashboard/internal/integration"
	"github.com/abelzeko/reservoir-dashboard/internal/observability"
	"github.com/abelzeko/reservoir-dashboard/internal/repository"
	"github.com/abelzeko/reservoir-dashboard/internal/usecases"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := observability.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logger: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("Starting reservoir bot...")

	if err := cfg.RequireTelegram(); err != nil {
		log.Fatal().Err(err).Msg("Bot is not configured")
	}

	clock := clockwork.NewRealClock()

	// Initialize preference store
	prefs, err := repository.NewSQLiteCookieStore(cfg.CookieDBPath, cfg.CookieTTL, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize preference store")
	}
	defer prefs.Close()

	metrics := observability.NewMetrics()
	client := integration.NewAPIClient(cfg.APIBaseURL, cfg.HTTPTimeout, cfg.CatalogCacheTTL, metrics)

	useCase, err := usecases.NewDashboardUseCase(client, prefs, metrics, clock, cfg.DefaultPeriodDays)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}

	telegramBot, err := api.NewTelegramBot(cfg.TelegramBotToken, useCase, prefs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramBot.Start(ctx)
}
