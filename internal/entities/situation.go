package entities

// Observation is one day of measurements for a reservoir
type Observation struct {
	Date      Date    `json:"date"`
	Level     float64 `json:"level"`      // Upstream water level in m
	Inflow    float64 `json:"inflow"`     // m³/s
	Outflow   float64 `json:"outflow"`    // m³/s
	Spillway  float64 `json:"spillway"`   // Idle discharge in m³/s
	AvgInflow float64 `json:"avg_inflow"` // Multi-year average inflow for the same day of year, m³/s
}

// YearSummary aggregates one calendar year of observations.
// The backend emits either max_inflow or max_level depending on its version.
type YearSummary struct {
	Year           int      `json:"year"`
	MaxInflow      *float64 `json:"max_inflow,omitempty"`
	MaxLevel       *float64 `json:"max_level,omitempty"`
	InflowVolume   float64  `json:"inflow_volume"`   // km³
	OutflowVolume  float64  `json:"outflow_volume"`  // km³
	SpillwayVolume float64  `json:"spillway_volume"` // km³
}

// ForecastPoint is a predicted inflow with the observed value once it is known
type ForecastPoint struct {
	Date   Date     `json:"date"`
	Inflow float64  `json:"inflow"`
	Fact   *float64 `json:"fact"` // nil until the day has been observed
}

// Situation is the latest snapshot for a reservoir with day-over-day offsets.
// Offsets arrive preformatted with an explicit sign, or "н/д" when unknown.
type Situation struct {
	Date           Date     `json:"date"`
	Level          *float64 `json:"level"`
	Inflow         *float64 `json:"inflow"`
	Outflow        *float64 `json:"outflow"`
	Spillway       *float64 `json:"spillway"`
	FreeCapacity   *float64 `json:"free_capacity,omitempty"`
	LevelOffset    string   `json:"level_offset"`
	InflowOffset   string   `json:"inflow_offset"`
	OutflowOffset  string   `json:"outflow_offset"`
	SpillwayOffset string   `json:"spillway_offset"`
}
