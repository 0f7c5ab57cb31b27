// Package presenters owns the dashboard charts and keeps their option documents in sync with shaped data
package presenters

import (
	"fmt"
	"io"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Missing is the ECharts marker for a value that is not available
const Missing = "-"

// Presenter is a chart bound to one dashboard canvas
type Presenter interface {
	// Name identifies the chart in logs and metrics
	Name() string
	// Option returns the current ECharts option document
	Option() []byte
	// Revision counts the redraws since construction
	Revision() uint64
	// Render writes the chart as a standalone HTML page
	Render(w io.Writer) error
	// Charter exposes the underlying chart for page composition
	Charter() components.Charter
}

// Observer is notified after every redraw
type Observer interface {
	ChartUpdated(chart string)
}

type drawable interface {
	Validate()
	JSON() map[string]interface{}
	Render(w io.Writer) error
	RenderSnippet() render.ChartSnippet
}

// canvas holds the state shared by every presenter: the encoded option
// document and a redraw counter. Callers hold mu while mutating the chart.
type canvas struct {
	mu       sync.Mutex
	name     string
	chart    drawable
	option   []byte
	revision uint64
	observer Observer
}

// Name returns the chart identifier
func (c *canvas) Name() string {
	return c.name
}

// SetObserver registers a redraw observer
func (c *canvas) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

func (c *canvas) lock()   { c.mu.Lock() }
func (c *canvas) unlock() { c.mu.Unlock() }

// Option returns a copy of the last encoded option document
func (c *canvas) Option() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.option))
	copy(out, c.option)
	return out
}

// Revision returns how many times the chart was redrawn
func (c *canvas) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Render writes the chart as a standalone HTML page
func (c *canvas) Render(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.chart.Render(w); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", c.name, err)
	}
	return nil
}

func (c *canvas) snippet() render.ChartSnippet {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chart.Validate()
	return c.chart.RenderSnippet()
}

// encode validates the chart and stores its option document
func (c *canvas) encode() error {
	c.chart.Validate()
	doc, err := json.Marshal(c.chart.JSON())
	if err != nil {
		return fmt.Errorf("failed to encode %s chart options: %w", c.name, err)
	}
	c.option = doc
	return nil
}

// redraw re-encodes the chart after its data changed. Must be called with mu held.
func (c *canvas) redraw() error {
	if err := c.encode(); err != nil {
		return err
	}
	c.revision++
	if c.observer != nil {
		c.observer.ChartUpdated(c.name)
	}
	log.Debug().Str("chart", c.name).Uint64("revision", c.revision).Int("bytes", len(c.option)).Msg("Chart redrawn")
	return nil
}

// initial encodes the empty chart so Option is usable before the first update
func (c *canvas) initial() {
	if err := c.encode(); err != nil {
		log.Error().Err(err).Str("chart", c.name).Msg("Failed to encode initial chart")
	}
}

// seriesStyle is the fill and border of one dataset
type seriesStyle struct {
	label  string
	fill   string
	border string
	width  float32
}

var (
	orange = seriesStyle{fill: "rgba(255, 159, 64, 0.2)", border: "rgba(255, 159, 64, 1)", width: 1}
	red    = seriesStyle{fill: "rgba(255, 99, 132, 0.2)", border: "rgba(255, 99, 132, 1)", width: 1}
	blue   = seriesStyle{fill: "rgba(54, 162, 235, 0.2)", border: "rgba(54, 162, 235, 1)", width: 1}
	purple = seriesStyle{fill: "rgba(153, 102, 255, 0.2)", border: "rgba(153, 102, 255, 1)", width: 1}
	grey   = seriesStyle{fill: "rgba(201, 203, 207, 0.2)", border: "rgba(201, 203, 207, 1)", width: 1}
)

func (s seriesStyle) labelled(label string) seriesStyle {
	s.label = label
	return s
}

func (s seriesStyle) withWidth(width float32) seriesStyle {
	s.width = width
	return s
}

// chartGlobals are the options every dashboard chart starts with
func chartGlobals(id, title string, scale bool) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			ChartID:   id,
			PageTitle: title,
			Width:     "100%",
			Height:    "400px",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Scale: opts.Bool(scale)}),
	}
}

func lineSeriesOpts(s seriesStyle) []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: s.fill, Opacity: opts.Float(1)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: s.border, Width: s.width}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: s.border}),
	}
}

func barSeriesOpts(s seriesStyle) []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithItemStyleOpts(opts.ItemStyle{Color: s.fill, BorderColor: s.border, BorderWidth: s.width}),
	}
}

func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}

// optionalLineData emits Missing for nil values so gaps are not drawn as zero
func optionalLineData(values []*float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if v == nil {
			data[i] = opts.LineData{Value: Missing}
			continue
		}
		data[i] = opts.LineData{Value: *v}
	}
	return data
}

func barData(values []float64) []opts.BarData {
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}
	return data
}
