// Package pipeline drives one ingestion run: per station, plan the fetch
// window from the watermark, pull metadata and observations from the source,
// normalize, and upsert into the store. Stations are independent; one
// station's failure is recorded in its run report and never stops the rest.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wxinfo-server/internal/modules/weather/normalize"
	"wxinfo-server/internal/modules/weather/nws"
	"wxinfo-server/internal/modules/weather/repository"
	"wxinfo-server/internal/modules/weather/types"
)

type Options struct {
	// Workers bounds concurrent station ingestion. Station keys never
	// overlap, and same-station races are safe because the upsert is
	// idempotent.
	Workers int

	// FetchTimeout bounds each source call; StoreTimeout bounds each store
	// batch. A deadline reads as the matching unavailable error.
	FetchTimeout time.Duration
	StoreTimeout time.Duration

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

type Pipeline struct {
	repo    repository.WeatherRepository
	source  nws.SourceClient
	planner *Planner
	opts    Options
}

func New(repo repository.WeatherRepository, source nws.SourceClient, bootstrapWindow time.Duration, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		repo:    repo,
		source:  source,
		planner: NewPlanner(repo, bootstrapWindow, opts.Now),
		opts:    opts,
	}
}

// Run ingests every station and returns one report per station, in input
// order. The call itself fails only on an empty station list; per-station
// failures live in the reports.
func (p *Pipeline) Run(ctx context.Context, stationIDs []string) ([]types.RunReport, error) {
	if len(stationIDs) == 0 {
		return nil, fmt.Errorf("no station ids given")
	}

	reports := make([]types.RunReport, len(stationIDs))
	sem := make(chan struct{}, p.opts.Workers)
	var wg sync.WaitGroup

	for i, id := range stationIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			reports[i] = p.runStation(ctx, id)
		}(i, id)
	}
	wg.Wait()

	return reports, nil
}

func (p *Pipeline) runStation(ctx context.Context, stationID string) types.RunReport {
	report := types.RunReport{StationID: stationID}

	window, err := p.planWindow(ctx, stationID)
	if err != nil {
		return failed(report, "plan window", err)
	}
	report.Window = window
	slog.Info("ingestion window planned",
		"station_id", stationID,
		"start", window.Start,
		"end", window.End,
	)

	station, err := p.fetchMetadata(ctx, stationID)
	if err != nil {
		return failed(report, "fetch metadata", err)
	}

	raws, err := p.fetchObservations(ctx, stationID, window)
	if err != nil {
		return failed(report, "fetch observations", err)
	}

	observations := normalize.Observations(raws)

	if err := p.upsertStation(ctx, station); err != nil {
		return failed(report, "upsert station", err)
	}

	count, err := p.upsertObservations(ctx, stationID, observations)
	if err != nil {
		return failed(report, "upsert observations", err)
	}

	report.Upserted = count
	report.Success = true
	slog.Info("station ingested",
		"station_id", stationID,
		"fetched", len(raws),
		"upserted", count,
	)
	return report
}

func (p *Pipeline) planWindow(ctx context.Context, stationID string) (types.TimeRange, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()
	return p.planner.Plan(ctx, stationID)
}

func (p *Pipeline) fetchMetadata(ctx context.Context, stationID string) (types.Station, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()
	return p.source.FetchStationMetadata(ctx, stationID)
}

func (p *Pipeline) fetchObservations(ctx context.Context, stationID string, window types.TimeRange) ([]nws.RawObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()
	return p.source.FetchObservations(ctx, stationID, window)
}

func (p *Pipeline) upsertStation(ctx context.Context, station types.Station) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()
	return p.repo.UpsertStation(ctx, station)
}

func (p *Pipeline) upsertObservations(ctx context.Context, stationID string, obs []types.Observation) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.StoreTimeout)
	defer cancel()
	return p.repo.UpsertObservations(ctx, stationID, obs)
}

func failed(report types.RunReport, step string, err error) types.RunReport {
	report.Success = false
	report.Message = fmt.Sprintf("%s: %v", step, err)
	slog.Error("station ingestion failed",
		"station_id", report.StationID,
		"step", step,
		"error", err,
	)
	return report
}
