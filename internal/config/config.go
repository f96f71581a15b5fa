package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"wxinfo-server/internal/modules/weather/types"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	// NWSBaseURL is the observations API root, e.g. https://api.weather.gov.
	NWSBaseURL string
	// StationIDs is the default station set, parsed from NWS_STATION_ID
	// (bare id or JSON array) and normalized to a non-empty list.
	StationIDs []string

	BootstrapWindow time.Duration
	FetchTimeout    time.Duration
	StoreTimeout    time.Duration
	PipelineWorkers int

	// PipelineSchedule is an optional cron spec ("@hourly", "0 * * * *").
	// Empty disables the in-process scheduler.
	PipelineSchedule string

	// MQTTBroker empty disables run-report publishing.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := envOr("SQLITE_PATH", "data/wxinfo.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}

	baseURL := strings.TrimRight(envOr("NWS_API_BASE_URL", "https://api.weather.gov"), "/")

	stationIDs, err := types.ParseStationIDs(os.Getenv("NWS_STATION_ID"))
	if err != nil {
		return Config{}, fmt.Errorf("NWS_STATION_ID: %w", err)
	}

	bootstrapWindow, err := envDuration("BOOTSTRAP_WINDOW", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	if bootstrapWindow <= 0 {
		return Config{}, fmt.Errorf("BOOTSTRAP_WINDOW must be positive, got %s", bootstrapWindow)
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	storeTimeout, err := envDuration("STORE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	workers, err := envInt("PIPELINE_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}
	if workers < 1 {
		return Config{}, fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", workers)
	}

	schedule := strings.TrimSpace(os.Getenv("PIPELINE_SCHEDULE"))

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		NWSBaseURL:            baseURL,
		StationIDs:            stationIDs,
		BootstrapWindow:       bootstrapWindow,
		FetchTimeout:          fetchTimeout,
		StoreTimeout:          storeTimeout,
		PipelineWorkers:       workers,
		PipelineSchedule:      schedule,
		MQTTBroker:            mqttBroker,
		MQTTPort:              mqttPort,
		MQTTClientID:          envOr("MQTT_CLIENT_ID", "wxinfo-server"),
		MQTTTopic:             envOr("MQTT_TOPIC", "wxinfo/run-reports"),
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
