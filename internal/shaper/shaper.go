// Package shaper turns API records into the parallel sequences consumed by the charts
package shaper

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/abelzeko/reservoir-dashboard/internal/entities"
	"gonum.org/v1/gonum/floats"
)

// PeakMetric selects which yearly maximum feeds the year summary peak series
type PeakMetric int

const (
	PeakMaxInflow PeakMetric = iota
	PeakMaxLevel
)

// String returns the JSON field name of the metric
func (m PeakMetric) String() string {
	if m == PeakMaxLevel {
		return "max_level"
	}
	return "max_inflow"
}

// ObservationSeries holds one sequence per observation field, index-aligned with the source
type ObservationSeries struct {
	Dates      []string
	Levels     []float64
	Inflows    []float64
	Outflows   []float64
	Spillway   []float64
	AvgInflows []float64
}

// Len returns the number of observations in the series
func (s ObservationSeries) Len() int {
	return len(s.Dates)
}

// YearSeries holds one sequence per year summary field
type YearSeries struct {
	Metric          PeakMetric
	Years           []int
	Peaks           []float64
	InflowVolumes   []float64
	OutflowVolumes  []float64
	SpillwayVolumes []float64
}

// Labels returns the years formatted as axis categories
func (s YearSeries) Labels() []string {
	labels := make([]string, len(s.Years))
	for i, y := range s.Years {
		labels[i] = strconv.Itoa(y)
	}
	return labels
}

// ForecastSeries holds predicted and observed inflows. A nil fact means not observed yet.
type ForecastSeries struct {
	Dates   []string
	Inflows []float64
	Facts   []*float64
}

// Volumes is the cumulative volume over the displayed window in km³, two decimals
type Volumes struct {
	Inflow    string
	Outflow   string
	Spillway  string
	AvgInflow string
}

// ShapeObservations projects every observation field across the input in order
func ShapeObservations(records []entities.Observation) ObservationSeries {
	n := len(records)
	s := ObservationSeries{
		Dates:      make([]string, 0, n),
		Levels:     make([]float64, 0, n),
		Inflows:    make([]float64, 0, n),
		Outflows:   make([]float64, 0, n),
		Spillway:   make([]float64, 0, n),
		AvgInflows: make([]float64, 0, n),
	}
	for _, r := range records {
		s.Dates = append(s.Dates, r.Date.String())
		s.Levels = append(s.Levels, r.Level)
		s.Inflows = append(s.Inflows, r.Inflow)
		s.Outflows = append(s.Outflows, r.Outflow)
		s.Spillway = append(s.Spillway, r.Spillway)
		s.AvgInflows = append(s.AvgInflows, r.AvgInflow)
	}
	return s
}

// ShapeYearSummary projects the year summaries, taking the peak from the given metric.
// A record missing the selected maximum contributes 0.
func ShapeYearSummary(records []entities.YearSummary, metric PeakMetric) YearSeries {
	n := len(records)
	s := YearSeries{
		Metric:          metric,
		Years:           make([]int, 0, n),
		Peaks:           make([]float64, 0, n),
		InflowVolumes:   make([]float64, 0, n),
		OutflowVolumes:  make([]float64, 0, n),
		SpillwayVolumes: make([]float64, 0, n),
	}
	for _, r := range records {
		peak := r.MaxInflow
		if metric == PeakMaxLevel {
			peak = r.MaxLevel
		}
		s.Years = append(s.Years, r.Year)
		s.Peaks = append(s.Peaks, valueOrZero(peak))
		s.InflowVolumes = append(s.InflowVolumes, r.InflowVolume)
		s.OutflowVolumes = append(s.OutflowVolumes, r.OutflowVolume)
		s.SpillwayVolumes = append(s.SpillwayVolumes, r.SpillwayVolume)
	}
	return s
}

// DetectPeakMetric picks max_level when the records carry levels but no inflow maxima
func DetectPeakMetric(records []entities.YearSummary) PeakMetric {
	for _, r := range records {
		if r.MaxInflow != nil {
			return PeakMaxInflow
		}
	}
	for _, r := range records {
		if r.MaxLevel != nil {
			return PeakMaxLevel
		}
	}
	return PeakMaxInflow
}

// ShapeForecast projects forecast points, keeping absent facts as nil
func ShapeForecast(records []entities.ForecastPoint) ForecastSeries {
	n := len(records)
	s := ForecastSeries{
		Dates:   make([]string, 0, n),
		Inflows: make([]float64, 0, n),
		Facts:   make([]*float64, 0, n),
	}
	for _, r := range records {
		s.Dates = append(s.Dates, r.Date.String())
		s.Inflows = append(s.Inflows, r.Inflow)
		var fact *float64
		if r.Fact != nil {
			v := *r.Fact
			fact = &v
		}
		s.Facts = append(s.Facts, fact)
	}
	return s
}

// ComputeVolumes sums each flow sequence and converts it to km³
func ComputeVolumes(s ObservationSeries) Volumes {
	return Volumes{
		Inflow:    formatVolume(s.Inflows),
		Outflow:   formatVolume(s.Outflows),
		Spillway:  formatVolume(s.Spillway),
		AvgInflow: formatVolume(s.AvgInflows),
	}
}

// formatVolume converts a sum of daily mean flows in m³/s into km³ (86400 s / 1e9 m³)
func formatVolume(flows []float64) string {
	var total float64
	if len(flows) > 0 {
		// sequential running sum, the last element is the total
		running := floats.CumSum(make([]float64, len(flows)), flows)
		total = running[len(running)-1]
	}
	return toFixed2(total * 864 / 10_000_000)
}

// toFixed2 formats v with two decimals, rounding the exact binary value half
// away from zero the way JavaScript's Number.prototype.toFixed does
func toFixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}

	sign := ""
	if math.Signbit(v) && v != 0 {
		sign = "-"
	}

	// |v| * 100 + 0.5 is exact at this precision, truncation then floors it
	x := new(big.Float).SetPrec(128).SetFloat64(math.Abs(v))
	x.Mul(x, big.NewFloat(100))
	x.Add(x, big.NewFloat(0.5))
	n, _ := x.Int(nil)

	hundred := big.NewInt(100)
	whole, frac := new(big.Int).QuoRem(n, hundred, new(big.Int))
	return fmt.Sprintf("%s%s.%02d", sign, whole.String(), frac.Int64())
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
