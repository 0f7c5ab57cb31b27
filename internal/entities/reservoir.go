// Package entities contains the core domain objects for the reservoir dashboard
package entities

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the backend API
const DateLayout = "2006-01-02"

// Date is a calendar date encoded as "YYYY-MM-DD" on the wire
type Date struct {
	time.Time
}

// NewDate builds a Date from its components
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the wire representation, or an empty string for the zero date
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON encodes the date as a quoted "YYYY-MM-DD" string
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD", a full RFC 3339 timestamp, or null
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = Date{t}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	*d = NewDate(t.Year(), t.Month(), t.Day())
	return nil
}

// DateRange is an inclusive window of calendar dates
type DateRange struct {
	Start Date
	End   Date
}

// Reservoir is a managed body of water as listed by the backend catalog
type Reservoir struct {
	ID              int64    `json:"id"`
	Slug            string   `json:"slug"`
	Name            string   `json:"name"`
	ActualSituation string   `json:"actual_situation"` // URL of the current situation snapshot
	ForceLevel      *float64 `json:"force_level,omitempty"`
	NormalLevel     *float64 `json:"normal_level,omitempty"`
	DeadLevel       *float64 `json:"dead_level,omitempty"`
	UsefulVolume    *float64 `json:"useful_volume,omitempty"` // km³
	FullVolume      *float64 `json:"full_volume,omitempty"`   // km³
	Area            *float64 `json:"area,omitempty"`          // km²
	MaxDepth        *float64 `json:"max_depth,omitempty"`
}

// GetSlug returns the reservoir slug
func (r Reservoir) GetSlug() string {
	return r.Slug
}

// Predictor is a forecasting model attached to a reservoir
type Predictor struct {
	ID        int64  `json:"id"`
	Slug      string `json:"slug,omitempty"`
	Name      string `json:"name"`
	Reservoir int64  `json:"reservoir"`
	Forecast  string `json:"forecast"` // URL of the forecast series
}

// GetSlug returns the predictor slug
func (p Predictor) GetSlug() string {
	return p.Slug
}
