package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/abelzeko/reservoir-dashboard/internal/config"
	"github.com/abelzeko/reservoir-dashboard/internal/cookies"
	"github.com/abelzeko/reservoir-dashboard/internal/integration"
	"github.com/abelzeko/reservoir-dashboard/internal/observability"
	"github.com/abelzeko/reservoir-dashboard/internal/repository"
	"github.com/abelzeko/reservoir-dashboard/internal/usecases"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// catalogCache drops cached catalog responses
type catalogCache interface {
	InvalidateCatalog()
}

// refresher renders the dashboard page to a file
type refresher struct {
	useCase    *usecases.DashboardUseCase
	catalog    catalogCache
	metrics    *observability.Metrics
	outputPath string
	textfile   string
	reservoir  string // explicit slug, overrides the remembered one
}

func main() {
	once := flag.Bool("once", false, "render the dashboard once and exit")
	reservoir := flag.String("reservoir", "", "reservoir slug to show instead of the remembered one")
	dismissAlert := flag.Bool("dismiss-cookie-alert", false, "hide the cookie banner on generated pages")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := observability.SetupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logger: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("Starting reservoir dashboard...")

	clock := clockwork.NewRealClock()

	prefs, err := repository.NewSQLiteCookieStore(cfg.CookieDBPath, cfg.CookieTTL, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize preference store")
	}
	defer prefs.Close()

	if *dismissAlert {
		if err := cookies.DismissCookieAlert(prefs); err != nil {
			log.Fatal().Err(err).Msg("Failed to dismiss cookie alert")
		}
	}

	metrics := observability.NewMetrics()
	client := integration.NewAPIClient(cfg.APIBaseURL, cfg.HTTPTimeout, cfg.CatalogCacheTTL, metrics)

	useCase, err := usecases.NewDashboardUseCase(client, prefs, metrics, clock, cfg.DefaultPeriodDays)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}

	r := &refresher{
		useCase:    useCase,
		catalog:    client,
		metrics:    metrics,
		outputPath: cfg.OutputPath,
		textfile:   cfg.MetricsTextfile,
		reservoir:  *reservoir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run immediately on startup
	if err := r.refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Initial dashboard refresh failed")
		if *once {
			os.Exit(1)
		}
	}
	if *once {
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.RefreshSchedule, func() {
		if err := r.refresh(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled dashboard refresh failed")
		}
		purgeExpired(prefs)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up cron job")
	}

	log.Info().Str("schedule", cfg.RefreshSchedule).Msg("Dashboard refresh has been scheduled")
	c.Start()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	<-c.Stop().Done()
}

// refresh loads the catalog, shows the selected reservoir and its forecast,
// then writes the page and the metrics textfile. A failed refresh drops the
// cached catalog so the next run fetches it again.
func (r *refresher) refresh(ctx context.Context) error {
	err := r.render(ctx)
	if err != nil && r.catalog != nil {
		log.Info().Msg("Dropping cached catalog after failed refresh")
		r.catalog.InvalidateCatalog()
	}
	return err
}

func (r *refresher) render(ctx context.Context) error {
	log.Info().Msg("Starting dashboard refresh")

	selected, err := r.useCase.LoadCatalog(ctx, false)
	if err != nil {
		return err
	}
	slug := selected.Slug
	if r.reservoir != "" {
		slug = r.reservoir
	}

	var errs []error
	if _, err := r.useCase.Select(ctx, slug, r.useCase.DefaultRange()); err != nil {
		errs = append(errs, err)
	}
	if _, err := r.useCase.ShowForecast(ctx, slug); err != nil {
		if errors.Is(err, usecases.ErrNoPredictors) {
			log.Info().Str("reservoir", slug).Msg("Reservoir has no forecast")
		} else {
			errs = append(errs, err)
		}
	}

	if err := r.writePage(); err != nil {
		errs = append(errs, err)
	}
	if r.textfile != "" {
		if err := r.metrics.WriteTextfile(r.textfile); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info().Str("reservoir", slug).Str("output", r.outputPath).Msg("Dashboard refreshed")
	return nil
}

// writePage renders into a temporary file next to the output and renames it into place
func (r *refresher) writePage() error {
	dir := filepath.Dir(r.outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dashboard-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temporary page: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set page permissions: %w", err)
	}

	if err := r.useCase.RenderPage(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.outputPath); err != nil {
		return fmt.Errorf("failed to move page into place: %w", err)
	}
	return nil
}

func purgeExpired(prefs repository.CookieRepository) {
	if _, err := prefs.Purge(); err != nil {
		log.Warn().Err(err).Msg("Failed to purge expired preferences")
	}
}
