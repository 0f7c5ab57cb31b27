package presenters

import (
	"github.com/abelzeko/reservoir-dashboard/internal/shaper"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LevelsChartName identifies the water level chart
const LevelsChartName = "levels"

var levelsStyle = orange.labelled("УВБ, м")

// LevelsPresenter draws the upstream water level over the selected period
type LevelsPresenter struct {
	canvas
	line *charts.Line
}

// NewLevelsPresenter creates the level chart with an empty series
func NewLevelsPresenter() *LevelsPresenter {
	line := charts.NewLine()
	line.SetGlobalOptions(chartGlobals("levelsChart", "Уровень воды", true)...)
	line.SetXAxis([]string{}).
		AddSeries(levelsStyle.label, []opts.LineData{}, lineSeriesOpts(levelsStyle)...)

	p := &LevelsPresenter{
		canvas: canvas{name: LevelsChartName, chart: line},
		line:   line,
	}
	p.initial()
	return p
}

// Chart returns the underlying chart instance
func (p *LevelsPresenter) Chart() *charts.Line {
	return p.line
}

// Charter exposes the chart for page composition
func (p *LevelsPresenter) Charter() components.Charter {
	return p.line
}

// Update replaces the labels and level values, then redraws
func (p *LevelsPresenter) Update(s shaper.ObservationSeries) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.line.SetXAxis(s.Dates)
	p.line.MultiSeries[0].Data = lineData(s.Levels)
	return p.redraw()
}
