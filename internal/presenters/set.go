package presenters

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/render"
)

// Set groups the four dashboard charts
type Set struct {
	Levels      *LevelsPresenter
	Flows       *FlowsPresenter
	YearSummary *YearSummaryPresenter
	Forecast    *ForecastPresenter
}

// NewSet creates all charts. A nil observer disables redraw notifications.
func NewSet(observer Observer) *Set {
	s := &Set{
		Levels:      NewLevelsPresenter(),
		Flows:       NewFlowsPresenter(),
		YearSummary: NewYearSummaryPresenter(),
		Forecast:    NewForecastPresenter(),
	}
	if observer != nil {
		for _, p := range s.all() {
			p.SetObserver(observer)
		}
	}
	return s
}

type observable interface {
	Presenter
	SetObserver(o Observer)
	snippet() render.ChartSnippet
	lock()
	unlock()
}

func (s *Set) all() []observable {
	return []observable{s.Levels, s.Flows, s.YearSummary, s.Forecast}
}

// Presenters returns the charts in page order
func (s *Set) Presenters() []Presenter {
	out := make([]Presenter, 0, 4)
	for _, p := range s.all() {
		out = append(out, p)
	}
	return out
}

// RenderPage writes a standalone HTML page containing every chart
func (s *Set) RenderPage(w io.Writer, title string) error {
	page := components.NewPage()
	page.SetPageTitle(title)
	page.SetLayout(components.PageFlexLayout)
	for _, p := range s.all() {
		p.lock()
		defer p.unlock()
		page.AddCharts(p.Charter())
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart page: %w", err)
	}
	return nil
}

// Snippets returns the chart containers and their init scripts for embedding
// into an existing page
func (s *Set) Snippets() (elements, scripts string) {
	var el, sc strings.Builder
	for _, p := range s.all() {
		snippet := p.snippet()
		el.WriteString(snippet.Element)
		sc.WriteString(snippet.Script)
	}
	return el.String(), sc.String()
}
