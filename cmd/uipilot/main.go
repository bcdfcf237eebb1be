// =============================================================================
// uipilot 主入口
// =============================================================================
// 浏览器自动化命令行，包含网页搜索、Metabase 查询导出与选择器记忆维护
//
// 使用方法:
//
//	uipilot search "golang generics"            # LLM 搜索
//	uipilot search --provider browser "golang"  # 真实浏览器搜索
//	uipilot metabase --sql "SELECT 1"           # 运行查询并下载 CSV
//	uipilot memory list --agent metabase        # 查看选择器记忆
//	uipilot memory clean --days 30              # 清理过期条目
//	uipilot version                             # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/uipilot/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "search":
		err = runSearch(os.Args[2:])
	case "metabase":
		err = runMetabase(os.Args[2:])
	case "memory":
		err = runMemory(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// 📋 version / help
// =============================================================================

func printVersion() {
	fmt.Printf("uipilot %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`uipilot - Browser automation with selector memory

Usage:
  uipilot <command> [options]

Commands:
  search    Search the web (llm or browser provider)
  metabase  Run a SQL query in Metabase and download the CSV result
  memory    Inspect and maintain selector memory
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)
  --env <path>      Path to .env file (default: .env)

Options for 'search':
  --provider <p>    llm or browser (default from config)
  -n <count>        Number of results (default: 5)
  --content <url>   Print page content instead of searching

Options for 'metabase':
  --sql <query>     SQL to run
  --file <path>     Read SQL from file
  --database <db>   Database to select (default from config)

Memory subcommands:
  memory list   [--agent a] [--page p]   Show remembered selectors
  memory forget --agent a <page> <element>
  memory clear  [--agent a]              Drop all entries of an agent
  memory clean  [--agent a] [--days n]   Drop entries older than n days (0 drops all)

Examples:
  uipilot search -n 3 "chromedp tutorial"
  uipilot metabase --config uipilot.yaml --file report.sql
  uipilot memory forget --agent metabase login_page email_input`)
}

// =============================================================================
// 📝 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
