// Package integration handles the reservoir backend API
package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/abelzeko/reservoir-dashboard/internal/entities"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// Endpoint names used for logging and metrics
const (
	EndpointReservoirs      = "reservoirs"
	EndpointSituations      = "situations"
	EndpointActualSituation = "actual_situation"
	EndpointYearSummary     = "year_summary"
	EndpointPredictors      = "predictors"
	EndpointForecast        = "forecast"
)

// Request outcomes
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeCached  = "cached"
)

// ErrUnexpectedStatus is wrapped by errors for non-2xx responses
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Recorder counts backend requests
type Recorder interface {
	APIRequest(endpoint, outcome string)
}

// APIClient provides typed access to the reservoir backend
type APIClient struct {
	client   *resty.Client
	catalog  *cache.Cache
	recorder Recorder
}

// NewAPIClient creates a backend client. Catalog responses are cached for cacheTTL;
// recorder may be nil.
func NewAPIClient(baseURL string, timeout, cacheTTL time.Duration, recorder Recorder) *APIClient {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "reservoir-dashboard/1.0",
		}).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &APIClient{
		client:   client,
		catalog:  cache.New(cacheTTL, 2*cacheTTL),
		recorder: recorder,
	}
}

// FetchReservoirs returns the reservoir catalog, optionally limited to reservoirs with predictors
func (c *APIClient) FetchReservoirs(ctx context.Context, hasPredictors bool) ([]entities.Reservoir, error) {
	key := "reservoirs"
	params := map[string]string{}
	if hasPredictors {
		key += "?has_predictors=true"
		params["has_predictors"] = "true"
	}

	if cached, ok := c.catalog.Get(key); ok {
		reservoirs := cached.([]entities.Reservoir)
		log.Debug().Int("count", len(reservoirs)).Bool("has_predictors", hasPredictors).Msg("Using cached reservoir catalog")
		c.record(EndpointReservoirs, OutcomeCached)
		return reservoirs, nil
	}

	var reservoirs []entities.Reservoir
	if err := c.get(ctx, EndpointReservoirs, "/api/v1/reservoirs/", params, &reservoirs); err != nil {
		return nil, err
	}
	c.catalog.Set(key, reservoirs, cache.DefaultExpiration)
	log.Info().Int("count", len(reservoirs)).Bool("has_predictors", hasPredictors).Msg("Fetched reservoir catalog")
	return reservoirs, nil
}

// FetchSituations returns daily observations of a reservoir within the range, ordered by date
func (c *APIClient) FetchSituations(ctx context.Context, slug string, period entities.DateRange) ([]entities.Observation, error) {
	params := map[string]string{"reservoir": slug}
	if !period.Start.IsZero() {
		params["start"] = period.Start.String()
	}
	if !period.End.IsZero() {
		params["end"] = period.End.String()
	}

	var observations []entities.Observation
	if err := c.get(ctx, EndpointSituations, "/api/v1/situations/", params, &observations); err != nil {
		return nil, err
	}
	log.Info().Str("reservoir", slug).Int("count", len(observations)).Msg("Fetched situations")
	return observations, nil
}

// FetchActualSituation returns the latest snapshot from the absolute URL listed in the catalog
func (c *APIClient) FetchActualSituation(ctx context.Context, url string) (entities.Situation, error) {
	var situation entities.Situation
	if err := c.get(ctx, EndpointActualSituation, url, nil, &situation); err != nil {
		return entities.Situation{}, err
	}
	return situation, nil
}

// FetchYearSummary returns per-year aggregates of a reservoir
func (c *APIClient) FetchYearSummary(ctx context.Context, reservoirID int64) ([]entities.YearSummary, error) {
	path := "/api/v1/reservoirs/" + strconv.FormatInt(reservoirID, 10) + "/statistics/year-summary/"

	var summary []entities.YearSummary
	if err := c.get(ctx, EndpointYearSummary, path, nil, &summary); err != nil {
		return nil, err
	}
	log.Info().Int64("reservoir_id", reservoirID).Int("years", len(summary)).Msg("Fetched year summary")
	return summary, nil
}

// FetchPredictors returns the forecasting models attached to a reservoir
func (c *APIClient) FetchPredictors(ctx context.Context, reservoirID int64) ([]entities.Predictor, error) {
	params := map[string]string{"reservoir": strconv.FormatInt(reservoirID, 10)}

	var predictors []entities.Predictor
	if err := c.get(ctx, EndpointPredictors, "/api/v1/predictors/", params, &predictors); err != nil {
		return nil, err
	}
	log.Info().Int64("reservoir_id", reservoirID).Int("count", len(predictors)).Msg("Fetched predictors")
	return predictors, nil
}

// FetchForecast returns the forecast series from a predictor's forecast URL
func (c *APIClient) FetchForecast(ctx context.Context, url string) ([]entities.ForecastPoint, error) {
	var points []entities.ForecastPoint
	if err := c.get(ctx, EndpointForecast, url, nil, &points); err != nil {
		return nil, err
	}
	log.Info().Str("url", url).Int("count", len(points)).Msg("Fetched forecast")
	return points, nil
}

// InvalidateCatalog drops cached catalog responses
func (c *APIClient) InvalidateCatalog() {
	c.catalog.Flush()
}

func (c *APIClient) get(ctx context.Context, endpoint, url string, params map[string]string, out interface{}) error {
	log.Debug().Str("endpoint", endpoint).Str("url", url).Msg("Sending request to backend")

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		c.record(endpoint, OutcomeError)
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Backend request failed")
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}

	if !resp.IsSuccess() {
		c.record(endpoint, OutcomeError)
		log.Error().Str("endpoint", endpoint).Int("status", resp.StatusCode()).Msg("Received unexpected status code")
		return fmt.Errorf("failed to fetch %s: %w: %s", endpoint, ErrUnexpectedStatus, resp.Status())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		c.record(endpoint, OutcomeError)
		log.Error().Err(err).Str("endpoint", endpoint).Msg("Failed to decode backend response")
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	c.record(endpoint, OutcomeSuccess)
	return nil
}

func (c *APIClient) record(endpoint, outcome string) {
	if c.recorder != nil {
		c.recorder.APIRequest(endpoint, outcome)
	}
}
