package pipeline

import (
	"context"
	"time"

	"wxinfo-server/internal/modules/weather/repository"
	"wxinfo-server/internal/modules/weather/types"
)

// Planner computes the fetch window for one station from its watermark.
// It holds no state between runs: the watermark is read fresh every time
// because a concurrent run may have advanced it.
type Planner struct {
	repo            repository.WeatherRepository
	bootstrapWindow time.Duration
	now             func() time.Time
}

func NewPlanner(repo repository.WeatherRepository, bootstrapWindow time.Duration, now func() time.Time) *Planner {
	if now == nil {
		now = time.Now
	}
	return &Planner{repo: repo, bootstrapWindow: bootstrapWindow, now: now}
}

// Plan returns [watermark, now] for a station with stored observations, or
// the bootstrap window [now-bootstrap, now] for a fresh station. The start is
// inclusive on purpose: the boundary record is fetched again and overwritten
// by the upsert instead of skipped, so a late upstream correction of that
// record is absorbed.
func (p *Planner) Plan(ctx context.Context, stationID string) (types.TimeRange, error) {
	end := p.now().UTC()

	last, err := p.repo.LatestTimestamp(ctx, stationID)
	if err != nil {
		return types.TimeRange{}, err
	}
	if last == nil {
		return types.TimeRange{Start: end.Add(-p.bootstrapWindow), End: end}, nil
	}
	return types.TimeRange{Start: last.UTC(), End: end}, nil
}
