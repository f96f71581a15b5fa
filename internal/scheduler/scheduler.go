// Package scheduler runs the ingestion pipeline on a cron schedule
// in-process. The pipeline itself has no awareness of it; the scheduler is
// just another caller, equivalent to a POST against the trigger surface.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron *cron.Cron
}

// RunFunc triggers one pipeline run against the default station set.
type RunFunc func(ctx context.Context) error

// New builds a scheduler that invokes run on the given cron spec
// (standard 5-field specs and descriptors like "@hourly"). Each tick gets a
// fresh context bounded by runTimeout; a failed or overlong run is logged and
// the next tick proceeds normally.
func New(spec string, runTimeout time.Duration, run RunFunc) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		slog.Info("scheduled pipeline run starting", "schedule", spec)
		if err := run(ctx); err != nil {
			slog.Error("scheduled pipeline run failed", "error", err)
			return
		}
		slog.Info("scheduled pipeline run finished")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
