package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	logger, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = logger
		zerolog.SetGlobalLevel(level)
	})
}

func TestSetupLoggerJSON(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	require.NoError(t, setupLogger(&buf, "warn", "json"))

	log.Info().Msg("hidden")
	log.Warn().Str("reservoir", "sayano").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"reservoir":"sayano"`)
}

func TestSetupLoggerConsole(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	require.NoError(t, setupLogger(&buf, "DEBUG", "console"))
	log.Debug().Msg("Fetching catalog")
	assert.Contains(t, buf.String(), "Fetching catalog")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestSetupLoggerInvalid(t *testing.T) {
	restoreLogger(t)

	testData := map[string]struct {
		level  string
		format string
	}{
		"bad level":  {level: "loud", format: "json"},
		"bad format": {level: "info", format: "xml"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, setupLogger(&bytes.Buffer{}, td.level, td.format))
		})
	}
}

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) != len(labels) {
		return false
	}
	for _, l := range metric.GetLabel() {
		if labels[l.GetName()] != l.GetValue() {
			return false
		}
	}
	return true
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetricsForTesting()

	m.APIRequest("reservoirs", "success")
	m.APIRequest("reservoirs", "success")
	m.APIRequest("situations", "error")
	m.StatCardRendered("superseded")
	m.ChartUpdated("levels")
	m.ChartUpdated("levels")
	m.ChartUpdated("flows")

	assert.Equal(t, 2.0, counterValue(t, m, "reservoir_dashboard_api_requests_total", map[string]string{"endpoint": "reservoirs", "outcome": "success"}))
	assert.Equal(t, 1.0, counterValue(t, m, "reservoir_dashboard_api_requests_total", map[string]string{"endpoint": "situations", "outcome": "error"}))
	assert.Equal(t, 1.0, counterValue(t, m, "reservoir_dashboard_stat_card_renders_total", map[string]string{"outcome": "superseded"}))
	assert.Equal(t, 2.0, counterValue(t, m, "reservoir_dashboard_chart_updates_total", map[string]string{"chart": "levels"}))
	assert.Equal(t, 1.0, counterValue(t, m, "reservoir_dashboard_chart_updates_total", map[string]string{"chart": "flows"}))
}

func TestMetricsForTestingAreIndependent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()
	a.ChartUpdated("forecast")

	assert.Equal(t, 1.0, counterValue(t, a, "reservoir_dashboard_chart_updates_total", map[string]string{"chart": "forecast"}))
	assert.Equal(t, 0.0, counterValue(t, b, "reservoir_dashboard_chart_updates_total", map[string]string{"chart": "forecast"}))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetricsForTesting()
	m.StatCardRendered("rendered")

	path := filepath.Join(t.TempDir(), "dashboard.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `reservoir_dashboard_stat_card_renders_total{outcome="rendered"} 1`)

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
