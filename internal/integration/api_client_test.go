package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelzeko/reservoir-dashboard/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorder) APIRequest(endpoint, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[endpoint+"/"+outcome]++
}

func (r *recorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

const reservoirsJSON = `[
	{"id": 1, "slug": "sayano", "name": "Саяно-Шушенское", "actual_situation": "%[1]s/api/v1/reservoirs/1/situations/actual/"},
	{"id": 2, "slug": "krasnoyarsk", "name": "Красноярское", "actual_situation": "%[1]s/api/v1/reservoirs/2/situations/actual/"}
]`

func newMockBackend(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var catalogHits atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/api/v1/reservoirs/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/reservoirs/" {
			http.NotFound(w, r)
			return
		}
		catalogHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("has_predictors") == "true" {
			fmt.Fprintf(w, `[{"id": 1, "slug": "sayano", "name": "Саяно-Шушенское", "actual_situation": "%s/x/"}]`, srv.URL)
			return
		}
		fmt.Fprintf(w, reservoirsJSON, srv.URL)
	})
	mux.HandleFunc("/api/v1/reservoirs/1/situations/actual/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"date": "2024-03-15", "level": 539.12, "inflow": 700, "outflow": 1200, "spillway": null,
			"level_offset": "+0.12", "inflow_offset": "-300", "outflow_offset": "+15", "spillway_offset": "н/д"}`)
	})
	mux.HandleFunc("/api/v1/reservoirs/3/situations/actual/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"date": "2024-03-15", "level": null, "inflow": 700, "outflow": 1200, "spillway": 0,
			"level_offset": "н/д", "inflow_offset": "-300", "outflow_offset": "+15", "spillway_offset": "0"}`)
	})
	mux.HandleFunc("/api/v1/reservoirs/2/situations/actual/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/v1/situations/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("reservoir") != "sayano" || q.Get("start") != "2024-01-01" || q.Get("end") != "2024-01-02" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"date": "2024-01-01", "level": 539.1, "inflow": 700, "outflow": 1200, "spillway": 0, "avg_inflow": 650.5},
			{"date": "2024-01-02", "level": 539.0, "inflow": null, "outflow": 1150, "spillway": null, "avg_inflow": 640}
		]`)
	})
	mux.HandleFunc("/api/v1/reservoirs/1/statistics/year-summary/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"year": 2022, "max_level": 539.5, "inflow_volume": 45.1, "outflow_volume": 44.0, "spillway_volume": 1.2}]`)
	})
	mux.HandleFunc("/api/v1/predictors/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `[{"id": 7, "name": "Линейная регрессия", "reservoir": %s, "forecast": "%s/api/v1/predictors/7/forecast/"}]`,
			r.URL.Query().Get("reservoir"), srv.URL)
	})
	mux.HandleFunc("/api/v1/predictors/7/forecast/", func(w http.ResponseWriter, r *http.Request) {
		// plain text content type on purpose, decoding must not depend on it
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, `[{"date": "2024-04-01", "inflow": 800, "fact": 790}, {"date": "2024-04-02", "inflow": 820, "fact": null}]`)
	})
	mux.HandleFunc("/broken/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"date": `)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &catalogHits
}

func TestFetchReservoirsIsCachedPerVariant(t *testing.T) {
	srv, hits := newMockBackend(t)
	rec := &recorder{}
	client := NewAPIClient(srv.URL, 5*time.Second, time.Hour, rec)
	ctx := context.Background()

	all, err := client.FetchReservoirs(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "sayano", all[0].Slug)
	assert.Equal(t, srv.URL+"/api/v1/reservoirs/1/situations/actual/", all[0].ActualSituation)

	again, err := client.FetchReservoirs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, all, again)
	assert.Equal(t, int32(1), hits.Load())

	withPredictors, err := client.FetchReservoirs(ctx, true)
	require.NoError(t, err)
	assert.Len(t, withPredictors, 1)
	assert.Equal(t, int32(2), hits.Load())

	assert.Equal(t, 2, rec.count("reservoirs/success"))
	assert.Equal(t, 1, rec.count("reservoirs/cached"))

	client.InvalidateCatalog()
	_, err = client.FetchReservoirs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchSituations(t *testing.T) {
	srv, _ := newMockBackend(t)
	client := NewAPIClient(srv.URL, 5*time.Second, time.Hour, nil)

	obs, err := client.FetchSituations(context.Background(), "sayano", entities.DateRange{
		Start: entities.NewDate(2024, 1, 1),
		End:   entities.NewDate(2024, 1, 2),
	})
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, entities.NewDate(2024, 1, 1), obs[0].Date)
	assert.Equal(t, 650.5, obs[0].AvgInflow)
	assert.Equal(t, 0.0, obs[1].Inflow)
	assert.Equal(t, 0.0, obs[1].Spillway)
	assert.Equal(t, 1150.0, obs[1].Outflow)
}

func TestFetchActualSituation(t *testing.T) {
	srv, _ := newMockBackend(t)
	rec := &recorder{}
	client := NewAPIClient(srv.URL, 5*time.Second, time.Hour, rec)
	ctx := context.Background()

	s, err := client.FetchActualSituation(ctx, srv.URL+"/api/v1/reservoirs/1/situations/actual/")
	require.NoError(t, err)
	assert.Equal(t, entities.NewDate(2024, 3, 15), s.Date)
	require.NotNil(t, s.Level)
	assert.Equal(t, 539.12, *s.Level)
	require.NotNil(t, s.Inflow)
	assert.Equal(t, 700.0, *s.Inflow)
	assert.Nil(t, s.Spillway)
	assert.Equal(t, "н/д", s.SpillwayOffset)

	s, err = client.FetchActualSituation(ctx, srv.URL+"/api/v1/reservoirs/3/situations/actual/")
	require.NoError(t, err)
	assert.Nil(t, s.Level)
	assert.Equal(t, "н/д", s.LevelOffset)

	_, err = client.FetchActualSituation(ctx, srv.URL+"/api/v1/reservoirs/2/situations/actual/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), EndpointActualSituation)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, 1, rec.count("actual_situation/error"))
}

func TestFetchYearSummary(t *testing.T) {
	srv, _ := newMockBackend(t)
	client := NewAPIClient(srv.URL, 5*time.Second, time.Hour, nil)

	summary, err := client.FetchYearSummary(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 2022, summary[0].Year)
	assert.Nil(t, summary[0].MaxInflow)
	require.NotNil(t, summary[0].MaxLevel)
	assert.Equal(t, 539.5, *summary[0].MaxLevel)

	_, err = client.FetchYearSummary(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestFetchPredictorsAndForecast(t *testing.T) {
	srv, _ := newMockBackend(t)
	client := NewAPIClient(srv.URL, 5*time.Second, time.Hour, nil)
	ctx := context.Background()

	predictors, err := client.FetchPredictors(ctx, 1)
	require.NoError(t, err)
	require.Len(t, predictors, 1)
	assert.Equal(t, int64(7), predictors[0].ID)
	assert.Equal(t, int64(1), predictors[0].Reservoir)

	points, err := client.FetchForecast(ctx, predictors[0].Forecast)
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.NotNil(t, points[0].Fact)
	assert.Equal(t, 790.0, *points[0].Fact)
	assert.Nil(t, points[1].Fact)
	assert.Equal(t, 820.0, points[1].Inflow)
}

func TestDecodeFailureNamesEndpoint(t *testing.T) {
	srv, _ := newMockBackend(t)
	rec := &recorder{}
	client := NewAPIClient(srv.URL, 5*time.Second, time.Hour, rec)

	_, err := client.FetchForecast(context.Background(), srv.URL+"/broken/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode forecast response")
	assert.Equal(t, 1, rec.count("forecast/error"))
}

func TestCanceledContext(t *testing.T) {
	srv, _ := newMockBackend(t)
	client := NewAPIClient(srv.URL, 5*time.Second, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchReservoirs(ctx, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
