// =============================================================================
// 📦 uipilot 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultBlockedDomains 默认禁止访问的域名
var DefaultBlockedDomains = []string{
	"maliciousbook.com",
	"evilvideos.com",
	"darkwebforum.com",
	"shadytok.com",
	"suspiciouspins.com",
	"ilanbigio.com",
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Browser:   DefaultBrowserConfig(),
		Memory:    DefaultMemoryConfig(),
		Metabase:  DefaultMetabaseConfig(),
		Search:    DefaultSearchConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultBrowserConfig 返回默认浏览器配置
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		Timeout:           30 * time.Second,
		ViewportWidth:     1024,
		ViewportHeight:    768,
		DownloadDir:       "./downloads",
		BlockedDomains:    append([]string(nil), DefaultBlockedDomains...),
		ScreenshotOnError: false,
		ActionsPerSecond:  0,
	}
}

// DefaultMemoryConfig 返回默认选择器记忆配置
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		Backend:    "file",
		CacheDir:   "./cache",
		MaxAgeDays: 30,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "uipilot",
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "uipilot",
			Collection: "selector_memory",
		},
	}
}

// DefaultMetabaseConfig 返回默认 Metabase 配置
func DefaultMetabaseConfig() MetabaseConfig {
	return MetabaseConfig{
		URL:             "http://localhost:3000",
		Database:        "Sample Database",
		DownloadDir:     "./downloads",
		DownloadTimeout: 60 * time.Second,
	}
}

// DefaultSearchConfig 返回默认搜索配置
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Provider:    "llm",
		Model:       "gpt-4o",
		Temperature: 0.7,
		Timeout:     2 * time.Minute,
		SnapshotDir: "./snapshots",
		Cache: SearchCacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     time.Hour,
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "uipilot",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "uipilot",
		SampleRate:   0.1,
	}
}
