package presenters

import (
	"github.com/abelzeko/reservoir-dashboard/internal/shaper"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ForecastChartName identifies the forecast chart
const ForecastChartName = "forecast"

var (
	forecastStyle = red.labelled("Прогноз притока, м³/с")
	factStyle     = grey.labelled("Фактический приток, м³/с")
)

// ForecastPresenter draws predicted inflow against the observed inflow
type ForecastPresenter struct {
	canvas
	line *charts.Line
}

// NewForecastPresenter creates the forecast chart with empty series
func NewForecastPresenter() *ForecastPresenter {
	line := charts.NewLine()
	line.SetGlobalOptions(chartGlobals("forecastChart", "Прогноз притока", true)...)
	line.SetXAxis([]string{}).
		AddSeries(forecastStyle.label, []opts.LineData{}, lineSeriesOpts(forecastStyle)...).
		AddSeries(factStyle.label, []opts.LineData{}, lineSeriesOpts(factStyle)...)

	p := &ForecastPresenter{
		canvas: canvas{name: ForecastChartName, chart: line},
		line:   line,
	}
	p.initial()
	return p
}

// Chart returns the underlying chart instance
func (p *ForecastPresenter) Chart() *charts.Line {
	return p.line
}

// Charter exposes the chart for page composition
func (p *ForecastPresenter) Charter() components.Charter {
	return p.line
}

// Update replaces the predicted and observed inflows, then redraws.
// Days without an observation are emitted as Missing.
func (p *ForecastPresenter) Update(s shaper.ForecastSeries) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.line.SetXAxis(s.Dates)
	p.line.MultiSeries[0].Data = lineData(s.Inflows)
	p.line.MultiSeries[1].Data = optionalLineData(s.Facts)
	return p.redraw()
}
