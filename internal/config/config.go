package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/firms-ingest/internal/domain"
)

// DefaultFIRMSBaseURL is the FIRMS area API serving CSV.
const DefaultFIRMSBaseURL = "https://firms.modaps.eosdis.nasa.gov/api/area/csv"

// Config holds all service settings, populated from environment variables.
type Config struct {
	FIRMSMapKey   string
	FIRMSBaseURL  string
	FIRMSArea     string
	FIRMSDayRange int
	FIRMSTimeout  time.Duration
	Sources       []domain.Source

	PollInterval time.Duration
	DataDir      string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka fan-out of newly discovered detections.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	firmsTimeout, err := parsePositiveDuration("FIRMS_TIMEOUT", "2m")
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("POLL_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	dayRange, err := parseDayRange()
	if err != nil {
		return nil, err
	}

	sources, err := parseSources(sharedcfg.EnvOrDefault("FIRMS_SOURCES", "SNPP,NOAA20,NOAA21"))
	if err != nil {
		return nil, err
	}

	brokers := splitList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		FIRMSMapKey:   os.Getenv("FIRMS_MAP_KEY"),
		FIRMSBaseURL:  strings.TrimRight(sharedcfg.EnvOrDefault("FIRMS_BASE_URL", DefaultFIRMSBaseURL), "/"),
		FIRMSArea:     sharedcfg.EnvOrDefault("FIRMS_AREA", "world"),
		FIRMSDayRange: dayRange,
		FIRMSTimeout:  firmsTimeout,
		Sources:       sources,

		PollInterval: pollInterval,
		DataDir:      sharedcfg.EnvOrDefault("DATA_DIR", "."),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "firms-detections"),
	}

	if cfg.FIRMSMapKey == "" {
		return nil, errors.New("FIRMS_MAP_KEY is required")
	}
	if cfg.FIRMSArea == "" {
		return nil, errors.New("FIRMS_AREA is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when Kafka is enabled")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseDayRange reads FIRMS_DAY_RANGE; the area API accepts 1 to 10 days.
func parseDayRange() (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault("FIRMS_DAY_RANGE", "1"))
	if err != nil || n < 1 || n > 10 {
		return 0, errors.New("invalid FIRMS_DAY_RANGE: must be 1-10")
	}
	return n, nil
}

func parseSources(s string) ([]domain.Source, error) {
	var out []domain.Source
	seen := make(map[domain.Source]bool)
	for _, name := range splitList(s) {
		src, err := domain.ParseSource(name)
		if err != nil {
			return nil, fmt.Errorf("invalid FIRMS_SOURCES: %w", err)
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, errors.New("FIRMS_SOURCES is required")
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
