// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 浏览器默认值
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1024, cfg.Browser.ViewportWidth)
	assert.Equal(t, 768, cfg.Browser.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Contains(t, cfg.Browser.BlockedDomains, "evilvideos.com")

	// 记忆默认值
	assert.Equal(t, "file", cfg.Memory.Backend)
	assert.Equal(t, "./cache", cfg.Memory.CacheDir)
	assert.Equal(t, 30, cfg.Memory.MaxAgeDays)

	// 搜索默认值
	assert.Equal(t, "llm", cfg.Search.Provider)
	assert.Equal(t, "gpt-4o", cfg.Search.Model)
	assert.Equal(t, 0.7, cfg.Search.Temperature)

	// 日志默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 1024, cfg.Browser.ViewportWidth)
	assert.Equal(t, "file", cfg.Memory.Backend)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
browser:
  headless: false
  timeout: 45s
  viewport_width: 1280
  blocked_domains:
    - example.org

memory:
  backend: redis
  cache_dir: /var/cache/uipilot
  max_age_days: 7
  redis:
    addr: "redis.example.com:6379"
    password: "secret"
    db: 1

metabase:
  url: "https://metabase.example.com"
  database: "Warehouse"

log:
  level: "debug"
  format: "json"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 768, cfg.Browser.ViewportHeight, "unset values keep defaults")
	assert.Equal(t, []string{"example.org"}, cfg.Browser.BlockedDomains)

	assert.Equal(t, "redis", cfg.Memory.Backend)
	assert.Equal(t, "/var/cache/uipilot", cfg.Memory.CacheDir)
	assert.Equal(t, 7, cfg.Memory.MaxAgeDays)
	assert.Equal(t, "redis.example.com:6379", cfg.Memory.Redis.Addr)
	assert.Equal(t, "secret", cfg.Memory.Redis.Password)
	assert.Equal(t, 1, cfg.Memory.Redis.DB)
	assert.Equal(t, "uipilot", cfg.Memory.Redis.KeyPrefix)

	assert.Equal(t, "https://metabase.example.com", cfg.Metabase.URL)
	assert.Equal(t, "Warehouse", cfg.Metabase.Database)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("UIPILOT_BROWSER_HEADLESS", "false")
	t.Setenv("UIPILOT_BROWSER_TIMEOUT", "10s")
	t.Setenv("UIPILOT_BROWSER_BLOCKED_DOMAINS", "a.com, b.com,")
	t.Setenv("UIPILOT_MEMORY_BACKEND", "sql")
	t.Setenv("UIPILOT_MEMORY_SQLITE_DSN", "/tmp/memory.db")
	t.Setenv("UIPILOT_MEMORY_REDIS_DB", "3")
	t.Setenv("UIPILOT_MEMORY_MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("UIPILOT_SEARCH_TEMPERATURE", "0.2")
	t.Setenv("UIPILOT_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 10*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, []string{"a.com", "b.com"}, cfg.Browser.BlockedDomains)
	assert.Equal(t, "sql", cfg.Memory.Backend)
	assert.Equal(t, "/tmp/memory.db", cfg.Memory.SQLiteDSN)
	assert.Equal(t, 3, cfg.Memory.Redis.DB)
	assert.Equal(t, "mongodb://mongo:27017", cfg.Memory.Mongo.URI)
	assert.Equal(t, 0.2, cfg.Search.Temperature)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
memory:
  cache_dir: "/yaml/cache"
  max_age_days: 10
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("UIPILOT_MEMORY_CACHE_DIR", "/env/cache")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "/env/cache", cfg.Memory.CacheDir)
	assert.Equal(t, 10, cfg.Memory.MaxAgeDays)
}

func TestLoader_DotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	content := "UIPILOT_METABASE_DATABASE=FromDotEnv\nUIPILOT_METABASE_URL=http://dotenv:3000\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0644))

	// existing variables win over the file
	t.Setenv("UIPILOT_METABASE_URL", "http://process:3000")
	t.Cleanup(func() { os.Unsetenv("UIPILOT_METABASE_DATABASE") })

	cfg, err := NewLoader().
		WithDotEnv(envPath, filepath.Join(tmpDir, "missing.env")).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "FromDotEnv", cfg.Metabase.Database)
	assert.Equal(t, "http://process:3000", cfg.Metabase.URL)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_MEMORY_CACHE_DIR", "/custom")

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)
	assert.Equal(t, "/custom", cfg.Memory.CacheDir)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("UIPILOT_BROWSER_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UIPILOT_BROWSER_TIMEOUT")
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("UIPILOT_MEMORY_BACKEND", "etcd")

	_, err := NewLoader().
		WithValidator(func(cfg *Config) error { return cfg.Validate() }).
		Load()
	assert.ErrorContains(t, err, "unknown memory backend")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Browser.ViewportWidth)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
browser:
  viewport_width: [invalid
  this is not valid yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	_, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "zero viewport",
			modify:  func(c *Config) { c.Browser.ViewportWidth = 0 },
			wantErr: "viewport",
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Browser.Timeout = 0 },
			wantErr: "browser timeout",
		},
		{
			name:    "redis backend without addr",
			modify:  func(c *Config) { c.Memory.Backend = "redis"; c.Memory.Redis.Addr = "" },
			wantErr: "memory.redis.addr",
		},
		{
			name:    "sql backend without dsn",
			modify:  func(c *Config) { c.Memory.Backend = "sql" },
			wantErr: "memory.sqlite_dsn",
		},
		{
			name:    "mongo backend without uri",
			modify:  func(c *Config) { c.Memory.Backend = "mongo"; c.Memory.Mongo.URI = "" },
			wantErr: "memory.mongo.uri",
		},
		{
			name:   "mongo backend with uri",
			modify: func(c *Config) { c.Memory.Backend = "mongo" },
		},
		{
			name:   "sql backend with dsn",
			modify: func(c *Config) { c.Memory.Backend = "sql"; c.Memory.SQLiteDSN = "m.db" },
		},
		{
			name:    "unknown search provider",
			modify:  func(c *Config) { c.Search.Provider = "google" },
			wantErr: "search provider",
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.Search.Temperature = 3.0 },
			wantErr: "temperature",
		},
		{
			name:    "search cache without addr",
			modify:  func(c *Config) { c.Search.Cache.Enabled = true; c.Search.Cache.Addr = "" },
			wantErr: "search.cache.addr",
		},
		{
			name:    "sample rate out of range",
			modify:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("browser:\n  viewport_width: 800\n"), 0644))

	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, 800, cfg.Browser.ViewportWidth)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: [yaml"), 0644))

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}
