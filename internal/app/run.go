package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"wxinfo-server/internal/config"
	"wxinfo-server/internal/db"
	"wxinfo-server/internal/httpapi"
	"wxinfo-server/internal/migrate"
	"wxinfo-server/internal/modules/weather"
	"wxinfo-server/internal/modules/weather/service"
	"wxinfo-server/internal/mqtt"
	"wxinfo-server/internal/scheduler"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"nwsBaseURL", cfg.NWSBaseURL,
		"stationIDs", cfg.StationIDs,
		"bootstrapWindow", cfg.BootstrapWindow,
		"pipelineWorkers", cfg.PipelineWorkers,
		"pipelineSchedule", cfg.PipelineSchedule,
		"mqttBroker", cfg.MQTTBroker,
	)

	// Store and schema failures here are fatal: no ingestion or metrics can
	// work without a usable store.
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn); err != nil {
		return err
	}
	slog.Info("database ready")

	var publisher service.ReportPublisher
	var mqttPublisher *mqtt.Publisher
	if cfg.MQTTBroker != "" {
		mqttPublisher = mqtt.NewPublisher(cfg)
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = mqttPublisher.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		publisher = mqttPublisher
	}

	mux := httpapi.NewMux(dbConn)
	svc := weather.RegisterFeature(mux, dbConn, cfg, publisher)

	var sched *scheduler.Scheduler
	if cfg.PipelineSchedule != "" {
		runTimeout := time.Duration(len(cfg.StationIDs)) * (cfg.FetchTimeout + cfg.StoreTimeout)
		sched, err = scheduler.New(cfg.PipelineSchedule, runTimeout, func(runCtx context.Context) error {
			reports, err := svc.RunIngestion(runCtx, nil)
			if err != nil {
				return err
			}
			for _, r := range reports {
				if !r.Success {
					slog.Warn("station run failed", "station_id", r.StationID, "message", r.Message)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		sched.Start()
		slog.Info("scheduler started", "schedule", cfg.PipelineSchedule)
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		slog.Info("scheduler stopping")
		sched.Stop()
	}

	if mqttPublisher != nil {
		slog.Info("mqtt disconnecting")
		mqttPublisher.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
