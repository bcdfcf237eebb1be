package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/agent/browser"
	"github.com/BaSui01/uipilot/agent/memory"
	"github.com/BaSui01/uipilot/config"
	"github.com/BaSui01/uipilot/internal/metrics"
	"github.com/BaSui01/uipilot/internal/server"
	"github.com/BaSui01/uipilot/internal/telemetry"
)

// =============================================================================
// 🧩 运行时装配
// =============================================================================

// commonFlags 所有子命令共享的参数
type commonFlags struct {
	configPath string
	envFile    string
}

func bindCommonFlags(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.configPath, "config", "", "Path to config file")
	fs.StringVar(&f.envFile, "env", ".env", "Path to .env file")
	return f
}

// app 持有一次命令执行所需的基础设施
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector

	metricsManager *server.Manager
	otel           *telemetry.Providers
}

// newApp 加载配置并初始化日志、指标与遥测
func newApp(ctx context.Context, flags *commonFlags) (*app, error) {
	loader := config.NewLoader()
	if flags.configPath != "" {
		loader = loader.WithConfigPath(flags.configPath)
	}
	if flags.envFile != "" {
		loader = loader.WithDotEnv(flags.envFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := initLogger(cfg.Log)
	logger.Debug("uipilot starting",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(cfg.Metrics.Namespace, logger),
	}

	if cfg.Metrics.Enabled {
		srvCfg := server.DefaultConfig()
		if cfg.Metrics.Addr != "" {
			srvCfg.Addr = cfg.Metrics.Addr
		}
		a.metricsManager = server.NewManager(server.NewMetricsHandler(nil), srvCfg, logger)
		if err := a.metricsManager.Start(); err != nil {
			logger.Warn("metrics server not started", zap.Error(err))
			a.metricsManager = nil
		}
	}

	a.otel, err = telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	return a, nil
}

// close 关闭指标服务器与遥测，并刷新日志
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.metricsManager != nil {
		if err := a.metricsManager.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// browserConfig 将配置文件中的浏览器段映射为 browser.BrowserConfig
func (a *app) browserConfig() browser.BrowserConfig {
	c := a.cfg.Browser
	bc := browser.DefaultBrowserConfig()
	bc.Headless = c.Headless
	if c.Timeout > 0 {
		bc.Timeout = c.Timeout
	}
	if c.ViewportWidth > 0 {
		bc.ViewportWidth = c.ViewportWidth
	}
	if c.ViewportHeight > 0 {
		bc.ViewportHeight = c.ViewportHeight
	}
	bc.UserAgent = c.UserAgent
	bc.ProxyURL = c.ProxyURL
	bc.ExecPath = c.ExecPath
	if c.DownloadDir != "" {
		bc.DownloadDir = c.DownloadDir
	}
	bc.BlockedDomains = c.BlockedDomains
	bc.ScreenshotOnError = c.ScreenshotOnError
	bc.ActionsPerSecond = c.ActionsPerSecond
	return bc
}

// openSession 启动 Chrome 并返回带指标记录的会话
func (a *app) openSession() (*browser.Session, error) {
	bc := a.browserConfig()
	b, err := browser.NewChromeDPBrowser(bc, a.logger,
		browser.WithBlockedHook(a.collector.RecordBlockedRequest))
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return browser.NewSession(b, bc,
		browser.WithSessionLogger(a.logger),
		browser.WithRecorder(a.collector),
	), nil
}

// memoryBackendConfig 将配置文件中的记忆段映射为 memory.BackendConfig
func (a *app) memoryBackendConfig() memory.BackendConfig {
	m := a.cfg.Memory
	return memory.BackendConfig{
		Type:     memory.BackendType(m.Backend),
		CacheDir: m.CacheDir,
		Redis: memory.RedisBackendConfig{
			Addr:      m.Redis.Addr,
			Password:  m.Redis.Password,
			DB:        m.Redis.DB,
			KeyPrefix: m.Redis.KeyPrefix,
		},
		SQLiteDSN: m.SQLiteDSN,
		Mongo: memory.MongoBackendConfig{
			URI:        m.Mongo.URI,
			Database:   m.Mongo.Database,
			Collection: m.Mongo.Collection,
		},
	}
}

// openMemory 打开 agentName 的选择器记忆
func (a *app) openMemory(ctx context.Context, agentName string) (*memory.Store, error) {
	store, err := memory.OpenWithBackendConfig(ctx, agentName, a.memoryBackendConfig(),
		memory.WithLogger(a.logger),
		memory.WithObserver(a.collector),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open selector memory for %s: %w", agentName, err)
	}
	a.logger.Debug("selector memory opened",
		zap.String("agent", agentName),
		zap.String("location", store.Location()),
		zap.Stringer("load_result", store.LoadResult()),
	)
	return store, nil
}

// signalContext 在收到 SIGINT/SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
