// Package metrics computes the windowed analytics over stored observations.
// Both queries share one shape: the repository filters and orders, the engine
// reduces each per-station partition in memory. Keeping the reduction out of
// SQL means the algorithm survives a storage engine without window functions.
package metrics

import (
	"context"
	"time"

	"wxinfo-server/internal/modules/weather/repository"
	"wxinfo-server/internal/modules/weather/types"
	"wxinfo-server/internal/utils"
)

// DefaultRollingWindow is the wind-delta lookback used by the HTTP surface.
const DefaultRollingWindow = 7 * 24 * time.Hour

type Engine struct {
	repo repository.WeatherRepository
}

func NewEngine(repo repository.WeatherRepository) *Engine {
	return &Engine{repo: repo}
}

// StartOfWeek truncates t to the most recent Monday 00:00 UTC.
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	day := t.Truncate(24 * time.Hour)
	// Weekday() is Sunday==0; shift so Monday==0.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekAverage returns, per station, the mean of non-null temperatures over
// the last full calendar week before ref (Monday 00:00 UTC boundaries),
// with the first and last contributing timestamps. Stations with no
// qualifying readings are omitted.
func (e *Engine) WeekAverage(ctx context.Context, ref time.Time) ([]types.WeeklyAverage, error) {
	weekStart := StartOfWeek(ref)
	from := weekStart.AddDate(0, 0, -7)

	samples, err := e.repo.TemperaturesInRange(ctx, from, weekStart)
	if err != nil {
		return nil, err
	}

	out := []types.WeeklyAverage{}
	forEachStation(samples, func(stationID string, part []repository.Sample) {
		sum := 0.0
		for _, s := range part {
			sum += s.Value
		}
		out = append(out, types.WeeklyAverage{
			StationID:        stationID,
			AvgTemperature:   utils.Round2(sum / float64(len(part))),
			FirstObservation: part[0].Timestamp,
			LastObservation:  part[len(part)-1].Timestamp,
		})
	})
	return out, nil
}

// RollingMaxWindDelta returns, per station, the largest absolute change
// between consecutive non-null wind-speed readings in [ref-window, ref].
// Null readings were filtered out before pairing, so pairs always use the
// nearest non-null neighbours. When several pairs tie on the maximum, the
// pair whose later timestamp is earliest wins. Stations with fewer than two
// qualifying readings are omitted.
func (e *Engine) RollingMaxWindDelta(ctx context.Context, ref time.Time, window time.Duration) ([]types.MaxWindDelta, error) {
	from := ref.Add(-window)

	samples, err := e.repo.WindSpeedsInRange(ctx, from, ref)
	if err != nil {
		return nil, err
	}

	out := []types.MaxWindDelta{}
	forEachStation(samples, func(stationID string, part []repository.Sample) {
		if len(part) < 2 {
			return
		}
		best := types.MaxWindDelta{StationID: stationID}
		found := false
		for i := 1; i < len(part); i++ {
			delta := part[i].Value - part[i-1].Value
			if delta < 0 {
				delta = -delta
			}
			// Strictly greater keeps the earliest later timestamp on ties.
			if !found || delta > best.MaxWindDelta {
				found = true
				best.MaxWindDelta = delta
				best.FirstObservation = part[i-1].Timestamp
				best.LastObservation = part[i].Timestamp
			}
		}
		best.MaxWindDelta = utils.Round2(best.MaxWindDelta)
		out = append(out, best)
	})
	return out, nil
}

// forEachStation walks samples already ordered by (station, timestamp) and
// invokes fn once per station with that station's contiguous partition.
func forEachStation(samples []repository.Sample, fn func(stationID string, part []repository.Sample)) {
	start := 0
	for i := 1; i <= len(samples); i++ {
		if i == len(samples) || samples[i].StationID != samples[start].StationID {
			fn(samples[start].StationID, samples[start:i])
			start = i
		}
	}
}
