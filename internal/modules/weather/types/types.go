package types

import "time"

// Station is the metadata record for one observation source.
// Timezone is the upstream IANA label, kept for display only; stored
// timestamps are always UTC regardless of it.
type Station struct {
	ID        string   `json:"station_id"`
	Name      string   `json:"station_name"`
	Timezone  string   `json:"station_timezone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Observation is one timestamped reading. Every numeric field is optional
// upstream, so each is a nullable pointer; values are rounded to two decimals
// before they reach the store.
type Observation struct {
	StationID             string    `json:"station_id"`
	Timestamp             time.Time `json:"observation_timestamp"`
	Temperature           *float64  `json:"temperature"`
	Dewpoint              *float64  `json:"dewpoint"`
	WindSpeed             *float64  `json:"wind_speed"`
	BarometricPressure    *float64  `json:"barometric_pressure"`
	RelativeHumidity      *float64  `json:"relative_humidity"`
	PrecipitationLastHour *float64  `json:"precipitation_last_hour"`
}

// TimeRange is a fetch window with an inclusive start. The watermark planner
// deliberately re-issues the boundary timestamp; the upsert absorbs it.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RunReport summarises one station's pipeline run. Transient; returned to the
// caller and never persisted.
type RunReport struct {
	StationID string    `json:"station_id"`
	Window    TimeRange `json:"window"`
	Upserted  int       `json:"upserted"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
}

// WeeklyAverage is the per-station mean temperature over the last full
// calendar week (Monday 00:00 UTC boundaries).
type WeeklyAverage struct {
	StationID        string    `json:"station_id"`
	AvgTemperature   float64   `json:"avg_temperature"`
	FirstObservation time.Time `json:"first_observation"`
	LastObservation  time.Time `json:"last_observation"`
}

// MaxWindDelta is the largest absolute wind-speed change between consecutive
// readings of one station inside a rolling window, with the timestamps of the
// pair that produced it.
type MaxWindDelta struct {
	StationID        string    `json:"station_id"`
	MaxWindDelta     float64   `json:"max_wind_speed_change"`
	FirstObservation time.Time `json:"first_observation"`
	LastObservation  time.Time `json:"last_observation"`
}
