package normalize

import (
	"reflect"
	"testing"
	"time"

	"wxinfo-server/internal/modules/weather/nws"
)

func ptr(v float64) *float64 { return &v }

func TestObservations_AllFields(t *testing.T) {
	raws := []nws.RawObservation{{
		Station:               "https://api.weather.gov/stations/KATL",
		Timestamp:             "2024-01-01T00:00:00+00:00",
		Temperature:           nws.QuantityValue{Value: ptr(12.344)},
		Dewpoint:              nws.QuantityValue{Value: ptr(8.1)},
		WindSpeed:             nws.QuantityValue{Value: ptr(7.891)},
		BarometricPressure:    nws.QuantityValue{Value: ptr(1013.25)},
		RelativeHumidity:      nws.QuantityValue{Value: ptr(55.55)},
		PrecipitationLastHour: nws.QuantityValue{Value: ptr(0.25)},
	}}

	out := Observations(raws)
	if len(out) != 1 {
		t.Fatalf("got %d observations, want 1", len(out))
	}
	o := out[0]
	if o.StationID != "KATL" {
		t.Errorf("station id = %q, want KATL", o.StationID)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !o.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", o.Timestamp, want)
	}
	if *o.Temperature != 12.34 {
		t.Errorf("temperature = %v, want 12.34", *o.Temperature)
	}
	if *o.WindSpeed != 7.89 {
		t.Errorf("wind speed = %v, want 7.89", *o.WindSpeed)
	}
	if *o.RelativeHumidity != 55.55 {
		t.Errorf("relative humidity = %v, want 55.55", *o.RelativeHumidity)
	}
}

func TestObservations_TimestampCoercedToUTC(t *testing.T) {
	raws := []nws.RawObservation{{
		Station:   "stations/KATL",
		Timestamp: "2024-06-01T10:00:00-04:00",
	}}

	out := Observations(raws)
	if len(out) != 1 {
		t.Fatalf("got %d observations, want 1", len(out))
	}
	want := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	if !out[0].Timestamp.Equal(want) || out[0].Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp = %v, want %v in UTC", out[0].Timestamp, want)
	}
}

func TestObservations_NullsPassThrough(t *testing.T) {
	raws := []nws.RawObservation{{
		Station:     "stations/KATL",
		Timestamp:   "2024-01-01T00:00:00Z",
		Temperature: nws.QuantityValue{Value: ptr(10.0)},
		// every other field left null
	}}

	out := Observations(raws)
	if len(out) != 1 {
		t.Fatalf("got %d observations, want 1 (nulls must not drop the record)", len(out))
	}
	o := out[0]
	if o.Temperature == nil || *o.Temperature != 10.0 {
		t.Errorf("temperature = %v, want 10.0", o.Temperature)
	}
	if o.WindSpeed != nil || o.Dewpoint != nil || o.RelativeHumidity != nil {
		t.Errorf("null fields should stay nil: %+v", o)
	}
}

func TestObservations_DropsUnparseable(t *testing.T) {
	raws := []nws.RawObservation{
		{Station: "stations/KATL", Timestamp: "not-a-time"},
		{Station: "", Timestamp: "2024-01-01T00:00:00Z"},
		{Station: "stations/KATL", Timestamp: "2024-01-01T00:00:00Z"},
	}

	out := Observations(raws)
	if len(out) != 1 {
		t.Fatalf("got %d observations, want 1 (bad timestamp and missing linkage are dropped)", len(out))
	}
	if out[0].StationID != "KATL" {
		t.Errorf("surviving record station = %q, want KATL", out[0].StationID)
	}
}

func TestObservations_Idempotent(t *testing.T) {
	raws := []nws.RawObservation{{
		Station:     "stations/KATL",
		Timestamp:   "2024-01-01T00:00:00Z",
		Temperature: nws.QuantityValue{Value: ptr(12.345678)},
	}}

	first := Observations(raws)
	second := Observations(raws)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalizing twice differs: %+v vs %+v", first, second)
	}
}

func TestStationIDFromURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://api.weather.gov/stations/KATL", "KATL"},
		{"stations/003PG", "003PG"},
		{"KBOS", "KBOS"},
		{"", ""},
		{"  ", ""},
	}
	for _, c := range cases {
		if got := stationIDFromURL(c.in); got != c.want {
			t.Errorf("stationIDFromURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
