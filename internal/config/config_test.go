package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/firms-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapKey = "0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testMapKey, cfg.FIRMSMapKey)
	assert.Equal(t, DefaultFIRMSBaseURL, cfg.FIRMSBaseURL)
	assert.Equal(t, "world", cfg.FIRMSArea)
	assert.Equal(t, 1, cfg.FIRMSDayRange)
	assert.Equal(t, 2*time.Minute, cfg.FIRMSTimeout)
	assert.Equal(t, domain.DefaultSources, cfg.Sources)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "firms-detections", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)
	t.Setenv("FIRMS_BASE_URL", "http://localhost:9000/api/area/csv/")
	t.Setenv("FIRMS_AREA", "-125,24,-66,50")
	t.Setenv("FIRMS_DAY_RANGE", "2")
	t.Setenv("FIRMS_TIMEOUT", "30s")
	t.Setenv("FIRMS_SOURCES", "noaa21, snpp")
	t.Setenv("POLL_INTERVAL", "1m")
	t.Setenv("DATA_DIR", "/var/lib/firms")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "detections")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api/area/csv", cfg.FIRMSBaseURL)
	assert.Equal(t, "-125,24,-66,50", cfg.FIRMSArea)
	assert.Equal(t, 2, cfg.FIRMSDayRange)
	assert.Equal(t, 30*time.Second, cfg.FIRMSTimeout)
	assert.Equal(t, []domain.Source{domain.SourceNOAA21, domain.SourceSNPP}, cfg.Sources)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, "/var/lib/firms", cfg.DataDir)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "detections", cfg.KafkaTopic)
}

func TestLoad_MissingMapKey(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIRMS_MAP_KEY")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"FIRMS_TIMEOUT", "bad"},
		{"POLL_INTERVAL", "0s"},
		{"FIRMS_DAY_RANGE", "11"},
		{"FIRMS_DAY_RANGE", "zero"},
		{"FIRMS_SOURCES", "SNPP,MODIS"},
		{"FIRMS_SOURCES", " , "},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("FIRMS_MAP_KEY", testMapKey)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_DuplicateSourcesCollapse(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)
	t.Setenv("FIRMS_SOURCES", "SNPP,snpp,NOAA20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []domain.Source{domain.SourceSNPP, domain.SourceNOAA20}, cfg.Sources)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("FIRMS_MAP_KEY", testMapKey)
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
