package presenters

import (
	"github.com/abelzeko/reservoir-dashboard/internal/shaper"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// FlowsChartName identifies the flows chart
const FlowsChartName = "flows"

// Series order is fixed: inflow, outflow, spillway, multi-year average inflow
var flowsStyles = []seriesStyle{
	red.labelled("Приток, м³/с"),
	blue.labelled("Сброс, м³/с"),
	purple.labelled("Холостой сброс, м³/с"),
	grey.labelled("Приток сред. многолетний, м³/с"),
}

// FlowsPresenter draws inflow, outflow, spillway and average inflow on one canvas
type FlowsPresenter struct {
	canvas
	line *charts.Line
}

// NewFlowsPresenter creates the flows chart with four empty series
func NewFlowsPresenter() *FlowsPresenter {
	line := charts.NewLine()
	line.SetGlobalOptions(chartGlobals("flowsChart", "Притоки и сбросы", true)...)
	line.SetXAxis([]string{})
	for _, style := range flowsStyles {
		line.AddSeries(style.label, []opts.LineData{}, lineSeriesOpts(style)...)
	}

	p := &FlowsPresenter{
		canvas: canvas{name: FlowsChartName, chart: line},
		line:   line,
	}
	p.initial()
	return p
}

// Chart returns the underlying chart instance
func (p *FlowsPresenter) Chart() *charts.Line {
	return p.line
}

// Charter exposes the chart for page composition
func (p *FlowsPresenter) Charter() components.Charter {
	return p.line
}

// Update replaces the labels and all four flow series, then redraws
func (p *FlowsPresenter) Update(s shaper.ObservationSeries) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.line.SetXAxis(s.Dates)
	p.line.MultiSeries[0].Data = lineData(s.Inflows)
	p.line.MultiSeries[1].Data = lineData(s.Outflows)
	p.line.MultiSeries[2].Data = lineData(s.Spillway)
	p.line.MultiSeries[3].Data = lineData(s.AvgInflows)
	return p.redraw()
}
