// Package statcard renders the summary statistics card of the selected reservoir
package statcard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/abelzeko/reservoir-dashboard/internal/entities"
	"github.com/abelzeko/reservoir-dashboard/internal/page"
	"github.com/abelzeko/reservoir-dashboard/internal/shaper"
	"github.com/rs/zerolog/log"
)

const volumesRowID = "statTableVolumes"

// ErrNoSituationURL is returned for reservoirs without a snapshot endpoint
var ErrNoSituationURL = errors.New("reservoir has no actual situation url")

// SituationFetcher loads the latest snapshot from an absolute URL
type SituationFetcher interface {
	FetchActualSituation(ctx context.Context, url string) (entities.Situation, error)
}

// Recorder counts card renders by outcome
type Recorder interface {
	StatCardRendered(outcome string)
}

// OutcomeKind tells how an update ended
type OutcomeKind int

const (
	// Rendered means the card shows the fetched snapshot
	Rendered OutcomeKind = iota
	// Failed means the fetch failed and the card shows the error state
	Failed
	// Superseded means a newer update was started and this response was dropped
	Superseded
)

// String returns the lowercase outcome name
func (k OutcomeKind) String() string {
	switch k {
	case Rendered:
		return "rendered"
	case Failed:
		return "failed"
	case Superseded:
		return "superseded"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of one card update
type Outcome struct {
	Kind      OutcomeKind
	Reservoir string
	Situation *entities.Situation // set when Rendered
	Err       error               // set when Failed
}

// Renderer writes the card fragments into the page. Only the most recently
// started update may change the card.
type Renderer struct {
	doc      *page.Document
	fetcher  SituationFetcher
	recorder Recorder

	ticket atomic.Uint64
	mu     sync.Mutex
}

// NewRenderer creates a card renderer. recorder may be nil.
func NewRenderer(doc *page.Document, fetcher SituationFetcher, recorder Recorder) *Renderer {
	return &Renderer{
		doc:      doc,
		fetcher:  fetcher,
		recorder: recorder,
	}
}

// UpdateStat fetches the snapshot of the reservoir once and renders either the
// values or the error state. Responses of superseded calls are discarded.
func (r *Renderer) UpdateStat(ctx context.Context, reservoir entities.Reservoir) Outcome {
	ticket := r.ticket.Add(1)
	logger := log.With().Str("reservoir", reservoir.Slug).Uint64("ticket", ticket).Logger()
	logger.Info().Msg("Fetching actual situation")

	var (
		situation entities.Situation
		err       error
	)
	if reservoir.ActualSituation == "" {
		err = ErrNoSituationURL
	} else {
		situation, err = r.fetcher.FetchActualSituation(ctx, reservoir.ActualSituation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if latest := r.ticket.Load(); ticket != latest {
		logger.Info().Uint64("latest", latest).Msg("Dropping stale situation response")
		return r.finish(Outcome{Kind: Superseded, Reservoir: reservoir.Slug})
	}

	if err != nil {
		logger.Error().Err(err).Msg("Failed to load actual situation")
		if renderErr := r.renderError(reservoir); renderErr != nil {
			logger.Error().Err(renderErr).Msg("Failed to render stat card error state")
		}
		return r.finish(Outcome{Kind: Failed, Reservoir: reservoir.Slug, Err: err})
	}

	if err := r.renderStat(reservoir, situation); err != nil {
		logger.Error().Err(err).Msg("Failed to render stat card")
		return r.finish(Outcome{Kind: Failed, Reservoir: reservoir.Slug, Err: err})
	}

	logger.Info().Str("date", situation.Date.String()).Msg("Rendered stat card")
	return r.finish(Outcome{Kind: Rendered, Reservoir: reservoir.Slug, Situation: &situation})
}

// UpdateStatAsync runs UpdateStat in a goroutine. The channel yields exactly one outcome.
func (r *Renderer) UpdateStatAsync(ctx context.Context, reservoir entities.Reservoir) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		out <- r.UpdateStat(ctx, reservoir)
	}()
	return out
}

// RenderVolumes writes the period volumes row, creating it under the card body on first use
func (r *Renderer) RenderVolumes(v shaper.Volumes) error {
	fragment, err := execute("volumes", v)
	if err != nil {
		return err
	}

	created, err := r.doc.EnsureChild(page.StatBody, "tr", volumesRowID)
	if err != nil {
		return fmt.Errorf("failed to create volumes row: %w", err)
	}
	if created {
		log.Debug().Msg("Created volumes row")
	}
	return r.doc.SetInnerHTML(page.StatVolumes, fragment)
}

func (r *Renderer) finish(o Outcome) Outcome {
	if r.recorder != nil {
		r.recorder.StatCardRendered(o.Kind.String())
	}
	return o
}

func (r *Renderer) renderStat(reservoir entities.Reservoir, s entities.Situation) error {
	return r.write(
		title{Name: reservoir.Name, Subtitle: "по состоянию на " + FormatDate(s.Date)},
		offsetsRow(s),
		actualRow(s),
	)
}

func (r *Renderer) renderError(reservoir entities.Reservoir) error {
	return r.write(
		title{Name: reservoir.Name, Subtitle: "Ошибка загрузки данных"},
		placeholderRow,
		placeholderRow,
	)
}

func (r *Renderer) write(t title, offsets, actual row) error {
	parts := []struct {
		selector string
		name     string
		data     interface{}
	}{
		{page.StatTitle, "title", t},
		{page.StatOffsets, "offsets", offsets},
		{page.StatActual, "actual", actual},
	}
	for _, p := range parts {
		fragment, err := execute(p.name, p.data)
		if err != nil {
			return err
		}
		if err := r.doc.SetInnerHTML(p.selector, fragment); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.selector, err)
		}
	}
	return nil
}

// Text formats a snapshot as plain text for chat front ends
func Text(reservoir entities.Reservoir, s entities.Situation) string {
	actual := actualRow(s)
	offsets := offsetsRow(s)

	var b strings.Builder
	fmt.Fprintf(&b, "%s водохранилище\n", reservoir.Name)
	fmt.Fprintf(&b, "по состоянию на %s\n\n", FormatDate(s.Date))
	fmt.Fprintf(&b, "УВБ: %s м (%s)\n", actual.Level, offsets.Level)
	fmt.Fprintf(&b, "Приток: %s м³/с (%s)\n", actual.Inflow, offsets.Inflow)
	fmt.Fprintf(&b, "Сброс: %s м³/с (%s)\n", actual.Outflow, offsets.Outflow)
	fmt.Fprintf(&b, "Холостой сброс: %s м³/с (%s)", actual.Spillway, offsets.Spillway)
	return b.String()
}
