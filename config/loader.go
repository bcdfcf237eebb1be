// =============================================================================
// 📦 uipilot 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + .env 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithDotEnv(".env").
//	    WithEnvPrefix("UIPILOT").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（.env 中的值不覆盖已有环境变量）
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "UIPILOT"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 uipilot 的完整配置结构
type Config struct {
	// Browser 浏览器配置
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// Memory 选择器记忆配置
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`

	// Metabase Metabase 智能体配置
	Metabase MetabaseConfig `yaml:"metabase" env:"METABASE"`

	// Search 搜索配置
	Search SearchConfig `yaml:"search" env:"SEARCH"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	// 无头模式
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// 单个动作超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 视口宽度
	ViewportWidth int `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	// 视口高度
	ViewportHeight int `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	// User-Agent
	UserAgent string `yaml:"user_agent" env:"USER_AGENT"`
	// 代理地址
	ProxyURL string `yaml:"proxy_url" env:"PROXY_URL"`
	// Chrome 可执行文件路径（为空时自动查找）
	ExecPath string `yaml:"exec_path" env:"EXEC_PATH"`
	// 下载目录
	DownloadDir string `yaml:"download_dir" env:"DOWNLOAD_DIR"`
	// 禁止访问的域名（含子域名）
	BlockedDomains []string `yaml:"blocked_domains" env:"BLOCKED_DOMAINS"`
	// 出错时截图
	ScreenshotOnError bool `yaml:"screenshot_on_error" env:"SCREENSHOT_ON_ERROR"`
	// 每秒最多动作数，0 表示不限速
	ActionsPerSecond float64 `yaml:"actions_per_second" env:"ACTIONS_PER_SECOND"`
}

// MemoryConfig 选择器记忆配置
type MemoryConfig struct {
	// 后端类型: file, redis, sql, mongo
	Backend string `yaml:"backend" env:"BACKEND"`
	// 文件后端根目录
	CacheDir string `yaml:"cache_dir" env:"CACHE_DIR"`
	// 清理阈值（天）
	MaxAgeDays int `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	// Redis 后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// SQL 后端的 SQLite 文件
	SQLiteDSN string `yaml:"sqlite_dsn" env:"SQLITE_DSN"`
	// MongoDB 后端配置
	Mongo MongoConfig `yaml:"mongo" env:"MONGO"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	// 连接串，例如 mongodb://localhost:27017
	URI string `yaml:"uri" env:"URI"`
	// 数据库名
	Database string `yaml:"database" env:"DATABASE"`
	// 集合名
	Collection string `yaml:"collection" env:"COLLECTION"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// MetabaseConfig Metabase 智能体配置
type MetabaseConfig struct {
	// Metabase 地址
	URL string `yaml:"url" env:"URL"`
	// 用户名（为空时读取 METABASE_USERNAME）
	Username string `yaml:"username" env:"USERNAME"`
	// 密码（为空时读取 METABASE_PASSWORD）
	Password string `yaml:"password" env:"PASSWORD"`
	// 默认数据库
	Database string `yaml:"database" env:"DATABASE"`
	// CSV 下载目录
	DownloadDir string `yaml:"download_dir" env:"DOWNLOAD_DIR"`
	// 等待下载完成的超时
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"DOWNLOAD_TIMEOUT"`
}

// SearchConfig 搜索配置
type SearchConfig struct {
	// 搜索实现: llm, browser
	Provider string `yaml:"provider" env:"PROVIDER"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// API Key（为空时读取 OPENAI_API_KEY）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 浏览器搜索截图目录
	SnapshotDir string `yaml:"snapshot_dir" env:"SNAPSHOT_DIR"`
	// 搜索结果缓存
	Cache SearchCacheConfig `yaml:"cache" env:"CACHE"`
}

// SearchCacheConfig 搜索结果 Redis 缓存配置
type SearchCacheConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Redis 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 缓存有效期
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否暴露 /metrics
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 不使用 TLS 连接 OTLP 端点
	Insecure bool `yaml:"insecure" env:"INSECURE"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	dotEnv     []string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithDotEnv 设置需要加载的 .env 文件，缺失的文件会被忽略
func (l *Loader) WithDotEnv(files ...string) *Loader {
	l.dotEnv = append(l.dotEnv, files...)
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. .env 文件注入进程环境
	if err := l.loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 4. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadDotEnv 逐个加载 .env 文件; godotenv.Load 不覆盖已存在的变量
func (l *Loader) loadDotEnv() error {
	for _, file := range l.dotEnv {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			out := parts[:0]
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, "viewport dimensions must be positive")
	}
	if c.Browser.Timeout <= 0 {
		errs = append(errs, "browser timeout must be positive")
	}
	if c.Browser.ActionsPerSecond < 0 {
		errs = append(errs, "actions_per_second must not be negative")
	}

	switch c.Memory.Backend {
	case "", "file":
	case "redis":
		if c.Memory.Redis.Addr == "" {
			errs = append(errs, "memory.redis.addr is required for the redis backend")
		}
	case "sql":
		if c.Memory.SQLiteDSN == "" {
			errs = append(errs, "memory.sqlite_dsn is required for the sql backend")
		}
	case "mongo":
		if c.Memory.Mongo.URI == "" {
			errs = append(errs, "memory.mongo.uri is required for the mongo backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown memory backend %q", c.Memory.Backend))
	}
	if c.Memory.MaxAgeDays < 0 {
		errs = append(errs, "memory.max_age_days must not be negative")
	}

	switch c.Search.Provider {
	case "llm", "browser":
	default:
		errs = append(errs, fmt.Sprintf("unknown search provider %q", c.Search.Provider))
	}
	if c.Search.Temperature < 0 || c.Search.Temperature > 2 {
		errs = append(errs, "temperature must be between 0 and 2")
	}
	if c.Search.Cache.Enabled && c.Search.Cache.Addr == "" {
		errs = append(errs, "search.cache.addr is required when the cache is enabled")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
