// Package nws talks to an api.weather.gov style observations API. It is the
// only place that knows the upstream wire format; everything downstream works
// with the canonical types.
package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"wxinfo-server/internal/modules/weather/types"
)

// QuantityValue is the NWS unit-wrapped numeric: {"value": 12.3, "unitCode": "wmoUnit:degC"}.
// Value is null when the instrument reported nothing.
type QuantityValue struct {
	Value    *float64 `json:"value"`
	UnitCode string   `json:"unitCode"`
}

// RawObservation is one feature's properties object, untouched. The
// normalizer turns these into canonical observations.
type RawObservation struct {
	Station               string        `json:"station"`
	Timestamp             string        `json:"timestamp"`
	Temperature           QuantityValue `json:"temperature"`
	Dewpoint              QuantityValue `json:"dewpoint"`
	WindSpeed             QuantityValue `json:"windSpeed"`
	BarometricPressure    QuantityValue `json:"barometricPressure"`
	RelativeHumidity      QuantityValue `json:"relativeHumidity"`
	PrecipitationLastHour QuantityValue `json:"precipitationLastHour"`
}

type observationsResponse struct {
	Features []struct {
		Properties RawObservation `json:"properties"`
	} `json:"features"`
}

type stationResponse struct {
	Properties struct {
		StationIdentifier string `json:"stationIdentifier"`
		Name              string `json:"name"`
		TimeZone          string `json:"timeZone"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
	} `json:"geometry"`
}

// SourceClient is the upstream consumed by the pipeline. Both methods fail
// with ErrSourceUnavailable (network, timeout, 5xx) or ErrSourceDataInvalid
// (4xx, undecodable payload); the client never retries on its own.
type SourceClient interface {
	FetchStationMetadata(ctx context.Context, stationID string) (types.Station, error)
	FetchObservations(ctx context.Context, stationID string, window types.TimeRange) ([]RawObservation, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP is used by tests to inject an httptest transport.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) FetchStationMetadata(ctx context.Context, stationID string) (types.Station, error) {
	var resp stationResponse
	if err := c.getJSON(ctx, c.baseURL+"/stations/"+url.PathEscape(stationID), &resp); err != nil {
		return types.Station{}, err
	}

	id := resp.Properties.StationIdentifier
	if id == "" {
		id = stationID
	}
	station := types.Station{
		ID:       id,
		Name:     resp.Properties.Name,
		Timezone: resp.Properties.TimeZone,
	}
	if len(resp.Geometry.Coordinates) == 2 {
		lon, lat := resp.Geometry.Coordinates[0], resp.Geometry.Coordinates[1]
		station.Longitude = &lon
		station.Latitude = &lat
	}
	return station, nil
}

func (c *Client) FetchObservations(ctx context.Context, stationID string, window types.TimeRange) ([]RawObservation, error) {
	params := url.Values{}
	params.Set("start", window.Start.UTC().Format(time.RFC3339))
	params.Set("end", window.End.UTC().Format(time.RFC3339))

	u := c.baseURL + "/stations/" + url.PathEscape(stationID) + "/observations?" + params.Encode()

	var resp observationsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	out := make([]RawObservation, 0, len(resp.Features))
	for _, f := range resp.Features {
		out = append(out, f.Properties)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", types.ErrSourceDataInvalid, err)
	}
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", "wxinfo-server")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: upstream returned %s", types.ErrSourceUnavailable, resp.Status)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: upstream returned %s", types.ErrSourceDataInvalid, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode payload: %w", types.ErrSourceDataInvalid, err)
	}
	return nil
}
