package controller

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"wxinfo-server/internal/modules/weather/service"
	"wxinfo-server/internal/modules/weather/types"
	"wxinfo-server/internal/utils"
)

type WeatherController struct {
	svc *service.Service
}

func NewWeatherController(svc *service.Service) *WeatherController {
	return &WeatherController{svc: svc}
}

func (c *WeatherController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/run-pipeline", c.handleRunPipeline)
	mux.HandleFunc("GET /v1/metrics/average-temperature", c.handleWeekAverage)
	mux.HandleFunc("GET /v1/metrics/max-wind-speed-change", c.handleMaxWindDelta)
}

type runPipelineRequest struct {
	StationIDs []string `json:"station_ids"`
}

type runPipelineResponse struct {
	Reports []types.RunReport `json:"reports"`
}

// handleRunPipeline triggers an ingestion run. The body may carry
// {"station_ids": [...]} to override the configured set; an empty body uses
// the defaults. Per-station failures still answer 200 with the failure inside
// that station's report.
func (c *WeatherController) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	ids, err := parseRunPipelineBody(r.Body)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := c.svc.RunIngestion(r.Context(), ids)
	if err != nil {
		// Run only hard-fails on a precondition (empty station set).
		slog.Error("pipeline run rejected", "error", err)
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, runPipelineResponse{Reports: reports})
}

// parseRunPipelineBody returns nil for an absent override, or a validated
// non-empty station list.
func parseRunPipelineBody(body io.Reader) ([]string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.New("read request body")
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var req runPipelineRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if req.StationIDs == nil {
		return nil, nil
	}
	if len(req.StationIDs) == 0 {
		return nil, errors.New("station_ids must not be empty")
	}
	for _, id := range req.StationIDs {
		if id == "" {
			return nil, errors.New("station_ids contains an empty id")
		}
	}
	return req.StationIDs, nil
}

func (c *WeatherController) handleWeekAverage(w http.ResponseWriter, r *http.Request) {
	result, err := c.svc.WeekAverage(r.Context())
	if err != nil {
		slog.Error("week average query failed", "error", err)
		utils.WriteError(w, statusForError(err), "failed to compute weekly average")
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (c *WeatherController) handleMaxWindDelta(w http.ResponseWriter, r *http.Request) {
	result, err := c.svc.MaxWindDelta(r.Context())
	if err != nil {
		slog.Error("max wind delta query failed", "error", err)
		utils.WriteError(w, statusForError(err), "failed to compute max wind speed change")
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

// statusForError maps metric read failures: an unreachable store is 503,
// anything else is a plain 500 since there is no partial result to give.
func statusForError(err error) int {
	if errors.Is(err, types.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
