// Package normalize maps raw upstream observation records into canonical
// observations: timestamps coerced to UTC, numeric fields rounded to two
// decimals (half away from zero), nulls passed through untouched.
package normalize

import (
	"log/slog"
	"strings"
	"time"

	"wxinfo-server/internal/modules/weather/nws"
	"wxinfo-server/internal/modules/weather/types"
	"wxinfo-server/internal/utils"
)

// Observations converts raw records into canonical observations. Records
// whose timestamp or station linkage cannot be parsed are dropped with a
// warning rather than failing the batch; missing optional fields pass through
// as nulls. The mapping is stateless, so re-normalizing the same input always
// yields identical output.
func Observations(raws []nws.RawObservation) []types.Observation {
	out := make([]types.Observation, 0, len(raws))
	for _, raw := range raws {
		stationID := stationIDFromURL(raw.Station)
		if stationID == "" {
			slog.Warn("dropping observation without station linkage", "station", raw.Station, "timestamp", raw.Timestamp)
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw.Timestamp)
		if err != nil {
			slog.Warn("dropping observation with unparseable timestamp",
				"station_id", stationID, "timestamp", raw.Timestamp, "error", err)
			continue
		}

		out = append(out, types.Observation{
			StationID:             stationID,
			Timestamp:             ts.UTC(),
			Temperature:           roundPtr(raw.Temperature.Value),
			Dewpoint:              roundPtr(raw.Dewpoint.Value),
			WindSpeed:             roundPtr(raw.WindSpeed.Value),
			BarometricPressure:    roundPtr(raw.BarometricPressure.Value),
			RelativeHumidity:      roundPtr(raw.RelativeHumidity.Value),
			PrecipitationLastHour: roundPtr(raw.PrecipitationLastHour.Value),
		})
	}
	return out
}

// stationIDFromURL extracts the identifier from the observation's station
// URL ("https://api.weather.gov/stations/KATL" -> "KATL"). Bare identifiers
// are returned as-is.
func stationIDFromURL(station string) string {
	station = strings.TrimSpace(station)
	if station == "" {
		return ""
	}
	if i := strings.LastIndex(station, "/"); i >= 0 {
		return station[i+1:]
	}
	return station
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := utils.Round2(*v)
	return &r
}
