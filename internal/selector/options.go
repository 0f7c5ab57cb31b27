// Package selector renders the reservoir and predictor drop-downs
package selector

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/abelzeko/reservoir-dashboard/internal/entities"
	"github.com/abelzeko/reservoir-dashboard/internal/page"
	"github.com/rs/zerolog/log"
)

// Slugged is anything addressable by slug
type Slugged interface {
	GetSlug() string
}

// BySlug returns the first element whose slug equals slug. An empty slug
// selects the first element. The second result is false when nothing matches.
func BySlug[T Slugged](list []T, slug string) (T, bool) {
	var zero T
	if slug == "" {
		if len(list) == 0 {
			return zero, false
		}
		return list[0], true
	}
	for _, item := range list {
		if item.GetSlug() == slug {
			return item, true
		}
	}
	return zero, false
}

type option struct {
	ID    string
	Value string
	Label string
}

var optionsTpl = template.Must(template.New("options").Parse(
	`{{range .}}<option{{if .ID}} id="{{.ID}}"{{end}} value="{{.Value}}">{{.Label}}</option>{{end}}`,
))

// Renderer regenerates the option lists of the page selects
type Renderer struct {
	doc *page.Document
}

// NewRenderer creates a selector renderer for the page
func NewRenderer(doc *page.Document) *Renderer {
	return &Renderer{doc: doc}
}

// RenderReservoirOptions replaces the reservoir options, one per reservoir in order
func (r *Renderer) RenderReservoirOptions(reservoirs []entities.Reservoir) error {
	options := make([]option, 0, len(reservoirs))
	for _, res := range reservoirs {
		options = append(options, option{ID: res.Slug, Value: res.Slug, Label: res.Name})
	}
	log.Debug().Int("count", len(options)).Msg("Rendering reservoir options")
	return r.render(page.SelectReservoir, options)
}

// RenderPredictorOptions replaces the predictor options, valued by predictor id
func (r *Renderer) RenderPredictorOptions(predictors []entities.Predictor) error {
	options := make([]option, 0, len(predictors))
	for _, p := range predictors {
		options = append(options, option{Value: strconv.FormatInt(p.ID, 10), Label: p.Name})
	}
	log.Debug().Int("count", len(options)).Msg("Rendering predictor options")
	return r.render(page.SelectPredictor, options)
}

// MarkReservoir selects the option of the given reservoir slug
func (r *Renderer) MarkReservoir(slug string) error {
	return r.doc.SelectOption(page.SelectReservoir, slug)
}

func (r *Renderer) render(selector string, options []option) error {
	var buf bytes.Buffer
	if err := optionsTpl.Execute(&buf, options); err != nil {
		return fmt.Errorf("failed to render %s options: %w", selector, err)
	}
	return r.doc.SetInnerHTML(selector, buf.String())
}
