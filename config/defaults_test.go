package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotZero(t, cfg.Browser.ViewportWidth)
	assert.NotEqual(t, MemoryConfig{}, cfg.Memory)
	assert.NotEqual(t, MetabaseConfig{}, cfg.Metabase)
	assert.NotEqual(t, SearchConfig{}, cfg.Search)
	assert.NotEmpty(t, cfg.Log.Level)
	assert.NotEqual(t, MetricsConfig{}, cfg.Metrics)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

// --- Individual Default*Config functions ---

func TestDefaultBrowserConfig(t *testing.T) {
	cfg := DefaultBrowserConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, "./downloads", cfg.DownloadDir)
	assert.Equal(t, DefaultBlockedDomains, cfg.BlockedDomains)
	assert.Zero(t, cfg.ActionsPerSecond)

	// the slice is a copy
	cfg.BlockedDomains[0] = "changed.example"
	assert.Equal(t, "maliciousbook.com", DefaultBlockedDomains[0])
}

func TestDefaultMemoryConfig(t *testing.T) {
	cfg := DefaultMemoryConfig()
	assert.Equal(t, "file", cfg.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "uipilot", cfg.Redis.KeyPrefix)
	assert.Empty(t, cfg.SQLiteDSN)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "selector_memory", cfg.Mongo.Collection)
}

func TestDefaultMetabaseConfig(t *testing.T) {
	cfg := DefaultMetabaseConfig()
	assert.Equal(t, "http://localhost:3000", cfg.URL)
	assert.Equal(t, 60*time.Second, cfg.DownloadTimeout)
	assert.Empty(t, cfg.Username)
	assert.Empty(t, cfg.Password)
}

func TestDefaultSearchConfig(t *testing.T) {
	cfg := DefaultSearchConfig()
	assert.Equal(t, "llm", cfg.Provider)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestDefaultMetricsConfig(t *testing.T) {
	cfg := DefaultMetricsConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, ":9091", cfg.Addr)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "uipilot", cfg.ServiceName)
	assert.Equal(t, 0.1, cfg.SampleRate)
}
