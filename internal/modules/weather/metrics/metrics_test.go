package metrics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wxinfo-server/internal/migrate"
	"wxinfo-server/internal/modules/weather/repository"
	"wxinfo-server/internal/modules/weather/types"
)

// Wednesday. Last full week is Mon 2025-06-09 00:00 .. Mon 2025-06-16 00:00.
var ref = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

func setupEngine(t *testing.T) (*Engine, repository.WeatherRepository) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate.Run(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	repo := repository.NewRepository(db)
	return NewEngine(repo), repo
}

func ptr(v float64) *float64 { return &v }

func seedStation(t *testing.T, repo repository.WeatherRepository, id string) {
	t.Helper()
	if err := repo.UpsertStation(context.Background(), types.Station{ID: id, Name: id}); err != nil {
		t.Fatalf("seed station %s: %v", id, err)
	}
}

func seedTemps(t *testing.T, repo repository.WeatherRepository, id string, base time.Time, temps []*float64) {
	t.Helper()
	obs := make([]types.Observation, len(temps))
	for i, v := range temps {
		obs[i] = types.Observation{Timestamp: base.Add(time.Duration(i) * time.Hour), Temperature: v}
	}
	if _, err := repo.UpsertObservations(context.Background(), id, obs); err != nil {
		t.Fatalf("seed temps for %s: %v", id, err)
	}
}

func seedWinds(t *testing.T, repo repository.WeatherRepository, id string, base time.Time, winds []*float64) {
	t.Helper()
	obs := make([]types.Observation, len(winds))
	for i, v := range winds {
		obs[i] = types.Observation{Timestamp: base.Add(time.Duration(i) * time.Hour), WindSpeed: v}
	}
	if _, err := repo.UpsertObservations(context.Background(), id, obs); err != nil {
		t.Fatalf("seed winds for %s: %v", id, err)
	}
}

func TestStartOfWeek(t *testing.T) {
	monday := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	cases := []time.Time{
		monday,                              // Monday maps to itself
		monday.Add(10 * time.Hour),          // Monday later in the day
		time.Date(2025, 6, 17, 3, 0, 0, 0, time.UTC),  // Tuesday
		time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC), // Wednesday
		time.Date(2025, 6, 21, 23, 59, 0, 0, time.UTC), // Saturday
		time.Date(2025, 6, 22, 23, 59, 0, 0, time.UTC), // Sunday
	}
	for _, c := range cases {
		if got := StartOfWeek(c); !got.Equal(monday) {
			t.Errorf("StartOfWeek(%v) = %v, want %v", c, got, monday)
		}
	}

	prevMonday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC)
	if got := StartOfWeek(sunday); !got.Equal(prevMonday) {
		t.Errorf("StartOfWeek(%v) = %v, want %v", sunday, got, prevMonday)
	}
}

func TestWeekAverage_ExcludesNulls(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")

	inWeek := time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC)
	seedTemps(t, repo, "E1", inWeek, []*float64{ptr(10), ptr(20), nil, ptr(30)})

	got, err := engine.WeekAverage(context.Background(), ref)
	if err != nil {
		t.Fatalf("week average: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].StationID != "E1" {
		t.Errorf("station = %q, want E1", got[0].StationID)
	}
	if got[0].AvgTemperature != 20.00 {
		t.Errorf("avg = %v, want 20.00 (null excluded)", got[0].AvgTemperature)
	}
	if !got[0].FirstObservation.Equal(inWeek) {
		t.Errorf("first observation = %v, want %v", got[0].FirstObservation, inWeek)
	}
	if want := inWeek.Add(3 * time.Hour); !got[0].LastObservation.Equal(want) {
		t.Errorf("last observation = %v, want %v", got[0].LastObservation, want)
	}
}

func TestWeekAverage_WindowBoundaries(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")

	// One reading inside the week, one before it, one at the exclusive end.
	before := time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC)
	inside := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC) // week start, inclusive
	atEnd := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC) // week end, exclusive
	obs := []types.Observation{
		{Timestamp: before, Temperature: ptr(100)},
		{Timestamp: inside, Temperature: ptr(42)},
		{Timestamp: atEnd, Temperature: ptr(100)},
	}
	if _, err := repo.UpsertObservations(context.Background(), "E1", obs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := engine.WeekAverage(context.Background(), ref)
	if err != nil {
		t.Fatalf("week average: %v", err)
	}
	if len(got) != 1 || got[0].AvgTemperature != 42.00 {
		t.Fatalf("got %+v, want only the inside reading (42.00)", got)
	}
}

func TestWeekAverage_OmitsStationsWithoutQualifyingRows(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")
	seedStation(t, repo, "E2")

	inWeek := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	seedTemps(t, repo, "E1", inWeek, []*float64{nil, nil}) // only nulls
	seedTemps(t, repo, "E2", inWeek, []*float64{ptr(5)})

	got, err := engine.WeekAverage(context.Background(), ref)
	if err != nil {
		t.Fatalf("week average: %v", err)
	}
	if len(got) != 1 || got[0].StationID != "E2" {
		t.Fatalf("got %+v, want only E2", got)
	}
}

func TestWeekAverage_Empty(t *testing.T) {
	engine, _ := setupEngine(t)

	got, err := engine.WeekAverage(context.Background(), ref)
	if err != nil {
		t.Fatalf("week average: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}
}

func TestRollingMaxWindDelta(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")

	base := ref.Add(-48 * time.Hour)
	// consecutive deltas: 4, 7, 0, 12
	seedWinds(t, repo, "E1", base, []*float64{ptr(5), ptr(9), ptr(2), ptr(2), ptr(14)})

	got, err := engine.RollingMaxWindDelta(context.Background(), ref, DefaultRollingWindow)
	if err != nil {
		t.Fatalf("rolling max wind delta: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].MaxWindDelta != 12.00 {
		t.Errorf("max delta = %v, want 12.00", got[0].MaxWindDelta)
	}
	if want := base.Add(3 * time.Hour); !got[0].FirstObservation.Equal(want) {
		t.Errorf("first observation = %v, want 4th reading at %v", got[0].FirstObservation, want)
	}
	if want := base.Add(4 * time.Hour); !got[0].LastObservation.Equal(want) {
		t.Errorf("last observation = %v, want 5th reading at %v", got[0].LastObservation, want)
	}
}

func TestRollingMaxWindDelta_NullsSkippedBeforePairing(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")

	base := ref.Add(-24 * time.Hour)
	// Null in the middle: pairs form across it (5,9 -> 4), never (5,0) or (0,9).
	seedWinds(t, repo, "E1", base, []*float64{ptr(5), nil, ptr(9)})

	got, err := engine.RollingMaxWindDelta(context.Background(), ref, DefaultRollingWindow)
	if err != nil {
		t.Fatalf("rolling max wind delta: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].MaxWindDelta != 4.00 {
		t.Errorf("max delta = %v, want 4.00 (null bridged, not zero-substituted)", got[0].MaxWindDelta)
	}
	if !got[0].FirstObservation.Equal(base) || !got[0].LastObservation.Equal(base.Add(2*time.Hour)) {
		t.Errorf("pair = (%v, %v), want nearest non-null neighbours", got[0].FirstObservation, got[0].LastObservation)
	}
}

func TestRollingMaxWindDelta_TieBreakEarliestLater(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")

	base := ref.Add(-24 * time.Hour)
	// deltas: 5, 5, 5; the first pair wins (earliest later timestamp).
	seedWinds(t, repo, "E1", base, []*float64{ptr(0), ptr(5), ptr(0), ptr(5)})

	got, err := engine.RollingMaxWindDelta(context.Background(), ref, DefaultRollingWindow)
	if err != nil {
		t.Fatalf("rolling max wind delta: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if !got[0].FirstObservation.Equal(base) || !got[0].LastObservation.Equal(base.Add(time.Hour)) {
		t.Errorf("tie broke to (%v, %v), want the first pair", got[0].FirstObservation, got[0].LastObservation)
	}
}

func TestRollingMaxWindDelta_OmitsUnderTwoReadings(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")
	seedStation(t, repo, "E2")

	base := ref.Add(-24 * time.Hour)
	seedWinds(t, repo, "E1", base, []*float64{ptr(5)})             // one reading
	seedWinds(t, repo, "E2", base, []*float64{ptr(5), nil})        // one after null filtering

	got, err := engine.RollingMaxWindDelta(context.Background(), ref, DefaultRollingWindow)
	if err != nil {
		t.Fatalf("rolling max wind delta: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %+v, want no results", got)
	}
}

func TestRollingMaxWindDelta_WindowExcludesOldReadings(t *testing.T) {
	engine, repo := setupEngine(t)
	seedStation(t, repo, "E1")

	old := ref.Add(-8 * 24 * time.Hour)
	obs := []types.Observation{
		{Timestamp: old, WindSpeed: ptr(0)},
		{Timestamp: old.Add(time.Hour), WindSpeed: ptr(100)},
		{Timestamp: ref.Add(-2 * time.Hour), WindSpeed: ptr(3)},
		{Timestamp: ref.Add(-1 * time.Hour), WindSpeed: ptr(4)},
	}
	if _, err := repo.UpsertObservations(context.Background(), "E1", obs); err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := engine.RollingMaxWindDelta(context.Background(), ref, DefaultRollingWindow)
	if err != nil {
		t.Fatalf("rolling max wind delta: %v", err)
	}
	if len(got) != 1 || got[0].MaxWindDelta != 1.00 {
		t.Fatalf("got %+v, want 1.00 from the in-window pair only", got)
	}
}
