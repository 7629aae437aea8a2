package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default USGS gauge sites: major Texas river basins (Trinity, Fort Worth,
// Romayor, Spring Creek, Houston, Guadalupe, San Marcos, Colorado at Austin).
const defaultUSGSSites = "08057000,08048000,08066250,08068500,08074000,08167000,08171000,08158000"

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	CollectInterval      time.Duration
	ForecastHorizonHours int

	// Upstream data source configuration.
	USGSSites        []string
	USGSTimeout      time.Duration
	NOAAArea         string
	NOAATimeout      time.Duration
	OpenMeteoTimeout time.Duration
	SiteCacheSize    int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	collectInterval, err := parseDuration("COLLECT_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	usgsTimeout, err := parseDuration("USGS_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	noaaTimeout, err := parseDuration("NOAA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	openMeteoTimeout, err := parseDuration("OPENMETEO_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	horizon, err := parsePositiveInt("FORECAST_HORIZON_HOURS", 24)
	if err != nil {
		return nil, err
	}
	if horizon > 168 {
		return nil, errors.New("FORECAST_HORIZON_HOURS must be at most 168")
	}

	cacheSize, err := parsePositiveInt("SITE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:   splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "flood-risk-assessments"),
		KafkaEnabled:   kafkaEnabled,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CollectInterval:      collectInterval,
		ForecastHorizonHours: horizon,

		USGSSites:        splitList(envOrDefault("USGS_SITES", defaultUSGSSites)),
		USGSTimeout:      usgsTimeout,
		NOAAArea:         envOrDefault("NOAA_AREA", "TX"),
		NOAATimeout:      noaaTimeout,
		OpenMeteoTimeout: openMeteoTimeout,
		SiteCacheSize:    cacheSize,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}
	if len(cfg.USGSSites) == 0 {
		return nil, errors.New("USGS_SITES is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
