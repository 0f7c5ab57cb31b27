package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "reservoir_dashboard"

// Metrics holds the Prometheus counters of the dashboard
type Metrics struct {
	APIRequests     *prometheus.CounterVec // labels: endpoint, outcome={success,error,cached}
	StatCardRenders *prometheus.CounterVec // labels: outcome={rendered,failed,superseded}
	ChartUpdates    *prometheus.CounterVec // labels: chart

	gatherer prometheus.Gatherer
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Backend API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		StatCardRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stat_card_renders_total",
			Help:      "Stat card updates by outcome.",
		}, []string{"outcome"}),
		ChartUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_updates_total",
			Help:      "Chart redraws by chart.",
		}, []string{"chart"}),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(m.APIRequests, m.StatCardRenders, m.ChartUpdates)
}

// NewMetrics creates and registers all metrics with the default Prometheus registry
func NewMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.DefaultRegisterer)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	m.register(reg)
	m.gatherer = reg
	return m
}

// APIRequest counts one backend request
func (m *Metrics) APIRequest(endpoint, outcome string) {
	m.APIRequests.WithLabelValues(endpoint, outcome).Inc()
}

// StatCardRendered counts one stat card update
func (m *Metrics) StatCardRendered(outcome string) {
	m.StatCardRenders.WithLabelValues(outcome).Inc()
}

// ChartUpdated counts one chart redraw
func (m *Metrics) ChartUpdated(chart string) {
	m.ChartUpdates.WithLabelValues(chart).Inc()
}

// Gather returns the current metric families
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.gatherer.Gather()
}

// WriteTextfile dumps the metrics in the text exposition format for the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
