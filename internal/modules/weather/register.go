package weather

import (
	"database/sql"
	"net/http"
	"time"

	"wxinfo-server/internal/config"
	"wxinfo-server/internal/modules/weather/controller"
	"wxinfo-server/internal/modules/weather/metrics"
	"wxinfo-server/internal/modules/weather/nws"
	"wxinfo-server/internal/modules/weather/pipeline"
	"wxinfo-server/internal/modules/weather/repository"
	"wxinfo-server/internal/modules/weather/service"
)

// RegisterFeature wires the weather module: repository over the shared DB,
// source client, pipeline, metrics engine, and the HTTP routes.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, cfg config.Config, publisher service.ReportPublisher) *service.Service {
	repo := repository.NewRepository(db)
	source := nws.NewClient(cfg.NWSBaseURL, cfg.FetchTimeout)
	pipe := pipeline.New(repo, source, cfg.BootstrapWindow, pipeline.Options{
		Workers:      cfg.PipelineWorkers,
		FetchTimeout: cfg.FetchTimeout,
		StoreTimeout: cfg.StoreTimeout,
		Now:          time.Now,
	})
	engine := metrics.NewEngine(repo)
	svc := service.New(pipe, engine, publisher, cfg.StationIDs)

	weatherController := controller.NewWeatherController(svc)
	weatherController.RegisterRoutes(mux)

	return svc
}
