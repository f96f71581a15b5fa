// Package service ties the ingestion pipeline and metrics engine together
// behind one API used by the HTTP controller and the scheduler.
package service

import (
	"context"
	"log/slog"
	"time"

	"wxinfo-server/internal/modules/weather/metrics"
	"wxinfo-server/internal/modules/weather/pipeline"
	"wxinfo-server/internal/modules/weather/types"
)

// ReportPublisher fans completed run reports out to interested consumers.
// Publishing is best-effort: a failure is logged and never fails the run.
type ReportPublisher interface {
	PublishReports(ctx context.Context, reports []types.RunReport) error
}

type Service struct {
	pipe            *pipeline.Pipeline
	engine          *metrics.Engine
	publisher       ReportPublisher
	defaultStations []string
}

func New(pipe *pipeline.Pipeline, engine *metrics.Engine, publisher ReportPublisher, defaultStations []string) *Service {
	return &Service{
		pipe:            pipe,
		engine:          engine,
		publisher:       publisher,
		defaultStations: defaultStations,
	}
}

// RunIngestion runs the pipeline for the given stations, or the configured
// default set when stationIDs is nil. Completed reports are published before
// being returned.
func (s *Service) RunIngestion(ctx context.Context, stationIDs []string) ([]types.RunReport, error) {
	if stationIDs == nil {
		stationIDs = s.defaultStations
	}

	reports, err := s.pipe.Run(ctx, stationIDs)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReports(ctx, reports); err != nil {
			slog.Warn("publish run reports", "error", err)
		}
	}
	return reports, nil
}

func (s *Service) WeekAverage(ctx context.Context) ([]types.WeeklyAverage, error) {
	return s.engine.WeekAverage(ctx, time.Now().UTC())
}

func (s *Service) MaxWindDelta(ctx context.Context) ([]types.MaxWindDelta, error) {
	return s.engine.RollingMaxWindDelta(ctx, time.Now().UTC(), metrics.DefaultRollingWindow)
}
