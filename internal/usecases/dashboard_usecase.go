// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/abelzeko/reservoir-dashboard/internal/cookies"
	"github.com/abelzeko/reservoir-dashboard/internal/entities"
	"github.com/abelzeko/reservoir-dashboard/internal/page"
	"github.com/abelzeko/reservoir-dashboard/internal/presenters"
	"github.com/abelzeko/reservoir-dashboard/internal/selector"
	"github.com/abelzeko/reservoir-dashboard/internal/shaper"
	"github.com/abelzeko/reservoir-dashboard/internal/statcard"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultPeriodDays is the length of the default observation window
const DefaultPeriodDays = 90

var (
	// ErrNoReservoirs is returned when the catalog is empty
	ErrNoReservoirs = errors.New("no reservoirs in catalog")
	// ErrUnknownReservoir is returned for a slug missing from the catalog
	ErrUnknownReservoir = errors.New("unknown reservoir")
	// ErrNoPredictors is returned when a reservoir has no forecasting models
	ErrNoPredictors = errors.New("reservoir has no predictors")
)

// Backend is the reservoir API used by the dashboard
type Backend interface {
	FetchReservoirs(ctx context.Context, hasPredictors bool) ([]entities.Reservoir, error)
	FetchSituations(ctx context.Context, slug string, period entities.DateRange) ([]entities.Observation, error)
	FetchActualSituation(ctx context.Context, url string) (entities.Situation, error)
	FetchYearSummary(ctx context.Context, reservoirID int64) ([]entities.YearSummary, error)
	FetchPredictors(ctx context.Context, reservoirID int64) ([]entities.Predictor, error)
	FetchForecast(ctx context.Context, url string) ([]entities.ForecastPoint, error)
}

// Recorder receives chart and stat card events
type Recorder interface {
	presenters.Observer
	statcard.Recorder
}

// Selection is the result of showing one reservoir
type Selection struct {
	Reservoir entities.Reservoir
	Period    entities.DateRange
	Stat      statcard.Outcome
	Volumes   shaper.Volumes
}

// DashboardUseCase drives the dashboard page: catalog, selection and the fetch fan-out
type DashboardUseCase struct {
	backend    Backend
	prefs      cookies.Store
	clock      clockwork.Clock
	periodDays int

	doc       *page.Document
	charts    *presenters.Set
	stat      *statcard.Renderer
	selectors *selector.Renderer

	mu         sync.RWMutex
	reservoirs []entities.Reservoir
}

// NewDashboardUseCase creates the page driver with a fresh page document.
// recorder may be nil; a nil clock uses the real clock.
func NewDashboardUseCase(backend Backend, prefs cookies.Store, recorder Recorder, clock clockwork.Clock, periodDays int) (*DashboardUseCase, error) {
	doc, err := page.New()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}

	var (
		observer presenters.Observer
		stats    statcard.Recorder
	)
	if recorder != nil {
		observer, stats = recorder, recorder
	}

	return &DashboardUseCase{
		backend:    backend,
		prefs:      prefs,
		clock:      clock,
		periodDays: periodDays,
		doc:        doc,
		charts:     presenters.NewSet(observer),
		stat:       statcard.NewRenderer(doc, backend, stats),
		selectors:  selector.NewRenderer(doc),
	}, nil
}

// Charts returns the chart presenters
func (uc *DashboardUseCase) Charts() *presenters.Set {
	return uc.charts
}

// Document returns the shared page document
func (uc *DashboardUseCase) Document() *page.Document {
	return uc.doc
}

// Reservoirs returns the last loaded catalog
func (uc *DashboardUseCase) Reservoirs() []entities.Reservoir {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.reservoirs
}

// DefaultRange returns the window of the last periodDays days ending today
func (uc *DashboardUseCase) DefaultRange() entities.DateRange {
	now := uc.clock.Now()
	end := entities.NewDate(now.Year(), now.Month(), now.Day())
	return entities.DateRange{
		Start: entities.Date{Time: end.AddDate(0, 0, -uc.periodDays)},
		End:   end,
	}
}

// LoadCatalog fetches the reservoirs, renders the selector and resolves the
// remembered reservoir, falling back to the first one
func (uc *DashboardUseCase) LoadCatalog(ctx context.Context, hasPredictors bool) (entities.Reservoir, error) {
	log.Info().Bool("has_predictors", hasPredictors).Msg("Loading reservoir catalog")

	reservoirs, err := uc.backend.FetchReservoirs(ctx, hasPredictors)
	if err != nil {
		return entities.Reservoir{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := uc.selectors.RenderReservoirOptions(reservoirs); err != nil {
		return entities.Reservoir{}, err
	}

	uc.mu.Lock()
	uc.reservoirs = reservoirs
	uc.mu.Unlock()

	remembered := cookies.SelectedReservoir(uc.prefs)
	res, ok := selector.BySlug(reservoirs, remembered)
	if !ok && remembered != "" {
		log.Warn().Str("reservoir", remembered).Msg("Remembered reservoir is not in the catalog, using the first one")
		res, ok = selector.BySlug(reservoirs, "")
	}
	if !ok {
		return entities.Reservoir{}, ErrNoReservoirs
	}

	uc.remember(res)
	log.Info().Str("reservoir", res.Slug).Int("count", len(reservoirs)).Msg("Catalog loaded")
	return res, nil
}

// Select shows a reservoir: charts of the period, the year summary, the stat
// card and the period volumes. The fetches run in parallel.
func (uc *DashboardUseCase) Select(ctx context.Context, slug string, period entities.DateRange) (Selection, error) {
	res, err := uc.lookup(ctx, slug)
	if err != nil {
		return Selection{}, err
	}
	uc.remember(res)

	logger := log.With().Str("reservoir", res.Slug).Str("start", period.Start.String()).Str("end", period.End.String()).Logger()
	logger.Info().Msg("Selecting reservoir")

	var (
		wg           sync.WaitGroup
		sel          = Selection{Reservoir: res, Period: period}
		situationErr error
		summaryErr   error
	)

	stat := uc.stat.UpdateStatAsync(ctx, res)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sel.Volumes, situationErr = uc.showSituations(ctx, res, period)
	}()
	go func() {
		defer wg.Done()
		summaryErr = uc.showYearSummary(ctx, res)
	}()
	wg.Wait()
	sel.Stat = <-stat

	if err := errors.Join(situationErr, summaryErr); err != nil {
		logger.Error().Err(err).Msg("Reservoir shown with errors")
		return sel, err
	}
	logger.Info().Str("stat", sel.Stat.Kind.String()).Msg("Reservoir shown")
	return sel, nil
}

func (uc *DashboardUseCase) showSituations(ctx context.Context, res entities.Reservoir, period entities.DateRange) (shaper.Volumes, error) {
	records, err := uc.backend.FetchSituations(ctx, res.Slug, period)
	if err != nil {
		return shaper.Volumes{}, fmt.Errorf("failed to load situations: %w", err)
	}

	series := shaper.ShapeObservations(records)
	if err := uc.charts.Levels.Update(series); err != nil {
		return shaper.Volumes{}, err
	}
	if err := uc.charts.Flows.Update(series); err != nil {
		return shaper.Volumes{}, err
	}

	volumes := shaper.ComputeVolumes(series)
	if err := uc.stat.RenderVolumes(volumes); err != nil {
		return volumes, fmt.Errorf("failed to render volumes: %w", err)
	}
	return volumes, nil
}

func (uc *DashboardUseCase) showYearSummary(ctx context.Context, res entities.Reservoir) error {
	records, err := uc.backend.FetchYearSummary(ctx, res.ID)
	if err != nil {
		return fmt.Errorf("failed to load year summary: %w", err)
	}
	series := shaper.ShapeYearSummary(records, shaper.DetectPeakMetric(records))
	return uc.charts.YearSummary.Update(series)
}

// ShowForecast renders the predictors of a reservoir and charts the forecast of the first one
func (uc *DashboardUseCase) ShowForecast(ctx context.Context, slug string) (entities.Predictor, error) {
	res, err := uc.lookup(ctx, slug)
	if err != nil {
		return entities.Predictor{}, err
	}

	predictors, err := uc.backend.FetchPredictors(ctx, res.ID)
	if err != nil {
		return entities.Predictor{}, fmt.Errorf("failed to load predictors: %w", err)
	}
	if err := uc.selectors.RenderPredictorOptions(predictors); err != nil {
		return entities.Predictor{}, err
	}
	if len(predictors) == 0 {
		return entities.Predictor{}, fmt.Errorf("%s: %w", res.Slug, ErrNoPredictors)
	}

	predictor := predictors[0]
	points, err := uc.backend.FetchForecast(ctx, predictor.Forecast)
	if err != nil {
		return predictor, fmt.Errorf("failed to load forecast: %w", err)
	}
	if err := uc.charts.Forecast.Update(shaper.ShapeForecast(points)); err != nil {
		return predictor, err
	}

	log.Info().Str("reservoir", res.Slug).Int64("predictor", predictor.ID).Int("points", len(points)).Msg("Forecast shown")
	return predictor, nil
}

// SituationText returns the plain-text stat card of a reservoir
func (uc *DashboardUseCase) SituationText(ctx context.Context, slug string) (string, error) {
	res, err := uc.lookup(ctx, slug)
	if err != nil {
		return "", err
	}
	if res.ActualSituation == "" {
		return "", statcard.ErrNoSituationURL
	}
	situation, err := uc.backend.FetchActualSituation(ctx, res.ActualSituation)
	if err != nil {
		return "", fmt.Errorf("failed to load actual situation: %w", err)
	}
	return statcard.Text(res, situation), nil
}

// RenderPage embeds the charts into the page document and writes it to w
func (uc *DashboardUseCase) RenderPage(w io.Writer) error {
	elements, scripts := uc.charts.Snippets()
	if err := uc.doc.SetInnerHTML(page.Charts, elements); err != nil {
		return fmt.Errorf("failed to embed charts: %w", err)
	}
	if err := uc.doc.SetInnerHTML(page.ChartScripts, scripts); err != nil {
		return fmt.Errorf("failed to embed chart scripts: %w", err)
	}
	if cookies.CookieAlertDismissed(uc.prefs) {
		uc.doc.Remove(page.CookieAlert)
	}
	return uc.doc.Render(w)
}

// Catalog returns the loaded reservoirs, loading them on first use
func (uc *DashboardUseCase) Catalog(ctx context.Context) ([]entities.Reservoir, error) {
	if reservoirs := uc.Reservoirs(); reservoirs != nil {
		return reservoirs, nil
	}
	if _, err := uc.LoadCatalog(ctx, false); err != nil {
		return nil, err
	}
	return uc.Reservoirs(), nil
}

func (uc *DashboardUseCase) lookup(ctx context.Context, slug string) (entities.Reservoir, error) {
	reservoirs, err := uc.Catalog(ctx)
	if err != nil {
		return entities.Reservoir{}, err
	}
	res, ok := selector.BySlug(reservoirs, slug)
	if !ok {
		if len(reservoirs) == 0 {
			return entities.Reservoir{}, ErrNoReservoirs
		}
		return entities.Reservoir{}, fmt.Errorf("%s: %w", slug, ErrUnknownReservoir)
	}
	return res, nil
}

func (uc *DashboardUseCase) remember(res entities.Reservoir) {
	if err := cookies.RememberReservoir(uc.prefs, res.Slug); err != nil {
		log.Warn().Err(err).Str("reservoir", res.Slug).Msg("Failed to remember reservoir")
	}
	if err := uc.selectors.MarkReservoir(res.Slug); err != nil {
		log.Warn().Err(err).Str("reservoir", res.Slug).Msg("Failed to mark reservoir option")
	}
}
