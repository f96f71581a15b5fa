package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"wxinfo-server/internal/modules/weather/types"
)

//go:embed sql/upsert-station.sql
var upsertStationSQL string

//go:embed sql/upsert-observation.sql
var upsertObservationSQL string

//go:embed sql/latest-timestamp.sql
var latestTimestampSQL string

//go:embed sql/select-temperatures.sql
var selectTemperaturesSQL string

//go:embed sql/select-wind-speeds.sql
var selectWindSpeedsSQL string

// Sample is one non-null reading of a single field, already filtered and
// ordered by (station, timestamp) by the store. The metrics engine reduces
// these per-station partitions in memory, so the windowed queries do not
// depend on the storage engine having native window functions.
type Sample struct {
	StationID string
	Timestamp time.Time
	Value     float64
}

type WeatherRepository interface {
	// UpsertStation inserts or refreshes station metadata. Repeat calls with
	// identical data are not an error.
	UpsertStation(ctx context.Context, station types.Station) error

	// UpsertObservations writes a batch atomically: each observation is
	// inserted if its (station, timestamp) key is absent, otherwise all
	// fields are overwritten. Returns rows affected (inserted + updated).
	UpsertObservations(ctx context.Context, stationID string, obs []types.Observation) (int, error)

	// LatestTimestamp returns the watermark for a station, or nil when the
	// station has no observations yet.
	LatestTimestamp(ctx context.Context, stationID string) (*time.Time, error)

	// TemperaturesInRange returns non-null temperature samples with
	// from <= ts < to, ordered by (station, timestamp).
	TemperaturesInRange(ctx context.Context, from, to time.Time) ([]Sample, error)

	// WindSpeedsInRange returns non-null wind-speed samples with
	// from <= ts <= to, ordered by (station, timestamp).
	WindSpeedsInRange(ctx context.Context, from, to time.Time) ([]Sample, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) WeatherRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) UpsertStation(ctx context.Context, station types.Station) error {
	_, err := r.db.ExecContext(ctx, upsertStationSQL,
		station.ID, station.Name, station.Timezone, station.Latitude, station.Longitude)
	if err != nil {
		return classifyStoreErr(fmt.Errorf("upsert station %q: %w", station.ID, err))
	}
	return nil
}

func (r *repositoryImpl) UpsertObservations(ctx context.Context, stationID string, obs []types.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classifyStoreErr(fmt.Errorf("begin upsert batch: %w", err))
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback upsert batch", "station_id", stationID, "error", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertObservationSQL)
	if err != nil {
		return 0, classifyStoreErr(fmt.Errorf("prepare upsert: %w", err))
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close upsert stmt", "error", err)
		}
	}()

	count := 0
	for _, o := range obs {
		ts := o.Timestamp.UTC().Format(time.RFC3339Nano)
		res, err := stmt.ExecContext(ctx, stationID, ts,
			o.Temperature, o.Dewpoint, o.WindSpeed,
			o.BarometricPressure, o.RelativeHumidity, o.PrecipitationLastHour)
		if err != nil {
			return 0, classifyStoreErr(fmt.Errorf("upsert observation %s@%s: %w", stationID, ts, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, classifyStoreErr(fmt.Errorf("rows affected: %w", err))
		}
		count += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, classifyStoreErr(fmt.Errorf("commit upsert batch: %w", err))
	}
	return count, nil
}

func (r *repositoryImpl) LatestTimestamp(ctx context.Context, stationID string) (*time.Time, error) {
	var ts sql.NullString
	if err := r.db.QueryRowContext(ctx, latestTimestampSQL, stationID).Scan(&ts); err != nil {
		return nil, classifyStoreErr(fmt.Errorf("latest timestamp for %q: %w", stationID, err))
	}
	if !ts.Valid || ts.String == "" {
		return nil, nil
	}
	t, err := parseStoredTime(ts.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repositoryImpl) TemperaturesInRange(ctx context.Context, from, to time.Time) ([]Sample, error) {
	return r.selectSamples(ctx, selectTemperaturesSQL, from, to)
}

func (r *repositoryImpl) WindSpeedsInRange(ctx context.Context, from, to time.Time) ([]Sample, error) {
	return r.selectSamples(ctx, selectWindSpeedsSQL, from, to)
}

func (r *repositoryImpl) selectSamples(ctx context.Context, query string, from, to time.Time) ([]Sample, error) {
	fromStr := from.UTC().Format(time.RFC3339Nano)
	toStr := to.UTC().Format(time.RFC3339Nano)
	rows, err := r.db.QueryContext(ctx, query, fromStr, toStr)
	if err != nil {
		return nil, classifyStoreErr(fmt.Errorf("select samples: %w", err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close sample rows", "error", err)
		}
	}()

	var out []Sample
	for rows.Next() {
		var s Sample
		var ts string
		if err := rows.Scan(&s.StationID, &ts, &s.Value); err != nil {
			return nil, classifyStoreErr(fmt.Errorf("scan sample: %w", err))
		}
		t, err := parseStoredTime(ts)
		if err != nil {
			return nil, err
		}
		s.Timestamp = t
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyStoreErr(err)
	}
	return out, nil
}

func parseStoredTime(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", ts, err, err2)
		}
	}
	return t.UTC(), nil
}

// classifyStoreErr maps low-level sqlite failures to the store error taxonomy.
// Constraint errors should never happen with the upsert statements; when one
// does, it means the key derivation is broken and the caller logs it loudly.
func classifyStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", types.ErrStoreConstraint, err)
	}
	return fmt.Errorf("%w: %w", types.ErrStoreUnavailable, err)
}
