package presenters

import (
	"github.com/abelzeko/reservoir-dashboard/internal/shaper"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// YearSummaryChartName identifies the yearly summary chart
const YearSummaryChartName = "year_summary"

const (
	peakSeries = iota
	inflowVolumeSeries
	spillwayVolumeSeries
)

var (
	peakInflowStyle     = blue.labelled("Максимум притока, м³/с").withWidth(1.5)
	peakLevelStyle      = blue.labelled("Максимум УВБ, м").withWidth(1.5)
	inflowVolumeStyle   = red.labelled("Годовой объём притока, км³")
	spillwayVolumeStyle = purple.labelled("Годовой объём холостых сбросов, км³")
)

// YearSummaryPresenter draws yearly volumes as bars and the yearly peak as a
// line on a secondary right-hand axis
type YearSummaryPresenter struct {
	canvas
	bar *charts.Bar
}

// NewYearSummaryPresenter creates the summary chart: peak line first, then the two volume bars
func NewYearSummaryPresenter() *YearSummaryPresenter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(chartGlobals("yearSummaryChart", "Итоги по годам", false)...)
	bar.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{Type: "value", Position: "left"}))
	bar.ExtendYAxis(opts.YAxis{
		Type:      "value",
		Position:  "right",
		Scale:     opts.Bool(true),
		SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
	})
	bar.SetXAxis([]string{})

	peak := charts.NewLine()
	peak.AddSeries(peakInflowStyle.label, []opts.LineData{}, peakSeriesOpts(peakInflowStyle)...)
	bar.Overlap(peak)

	bar.AddSeries(inflowVolumeStyle.label, []opts.BarData{}, barSeriesOpts(inflowVolumeStyle)...).
		AddSeries(spillwayVolumeStyle.label, []opts.BarData{}, barSeriesOpts(spillwayVolumeStyle)...)

	p := &YearSummaryPresenter{
		canvas: canvas{name: YearSummaryChartName, chart: bar},
		bar:    bar,
	}
	p.initial()
	return p
}

func peakSeriesOpts(s seriesStyle) []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1, ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: s.border, Width: s.width}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: s.fill, BorderColor: s.border}),
	}
}

// Chart returns the underlying chart instance
func (p *YearSummaryPresenter) Chart() *charts.Bar {
	return p.bar
}

// Charter exposes the chart for page composition
func (p *YearSummaryPresenter) Charter() components.Charter {
	return p.bar
}

// Update replaces the years, the peak line and both volume bars, then redraws.
// The peak label follows the metric of the series.
func (p *YearSummaryPresenter) Update(s shaper.YearSeries) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	peakStyle := peakInflowStyle
	if s.Metric == shaper.PeakMaxLevel {
		peakStyle = peakLevelStyle
	}

	p.bar.SetXAxis(s.Labels())
	p.bar.MultiSeries[peakSeries].Name = peakStyle.label
	p.bar.MultiSeries[peakSeries].Data = lineData(s.Peaks)
	p.bar.MultiSeries[inflowVolumeSeries].Data = barData(s.InflowVolumes)
	p.bar.MultiSeries[spillwayVolumeSeries].Data = barData(s.SpillwayVolumes)
	return p.redraw()
}
