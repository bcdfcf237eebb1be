package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/agent/interaction"
	"github.com/BaSui01/uipilot/agent/memory"
	"github.com/BaSui01/uipilot/agent/metabase"
	"github.com/BaSui01/uipilot/config"
)

// =============================================================================
// 📊 metabase 命令
// =============================================================================

func runMetabase(args []string) error {
	fs := flag.NewFlagSet("metabase", flag.ExitOnError)
	flags := bindCommonFlags(fs)
	sqlText := fs.String("sql", "", "SQL query to run")
	sqlFile := fs.String("file", "", "Read the SQL query from a file")
	database := fs.String("database", "", "Database to select in the query editor")
	fs.Parse(args)

	sql, err := readSQL(*sqlText, *sqlFile)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	mbCfg := metabaseConfig(a.cfg.Metabase).WithEnvCredentials()
	if err := mbCfg.Validate(); err != nil {
		return err
	}

	store, err := a.openMemory(ctx, metabase.AgentName)
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := a.openSession()
	if err != nil {
		return err
	}
	defer session.Close()

	interactor := interaction.New(
		memory.NewResolver(store, metabase.DefaultSelectors),
		session,
		interaction.WithLogger(a.logger),
		interaction.WithRecorder(a.collector),
	)

	agent, err := metabase.New(mbCfg, session, interactor, metabase.WithLogger(a.logger))
	if err != nil {
		return err
	}

	path, err := agent.RunQueryAndDownload(ctx, sql, *database)
	a.collector.RecordDownload(err == nil)
	if err != nil {
		return err
	}

	a.logger.Info("query result downloaded", zap.String("path", path))
	fmt.Println(path)
	return nil
}

// metabaseConfig 将配置文件中的 Metabase 段叠加到默认值上
func metabaseConfig(c config.MetabaseConfig) metabase.Config {
	cfg := metabase.DefaultConfig()
	if c.URL != "" {
		cfg.URL = c.URL
	}
	cfg.Username = c.Username
	cfg.Password = c.Password
	if c.Database != "" {
		cfg.Database = c.Database
	}
	if c.DownloadDir != "" {
		cfg.DownloadDir = c.DownloadDir
	}
	if c.DownloadTimeout > 0 {
		cfg.DownloadTimeout = c.DownloadTimeout
	}
	return cfg
}

func readSQL(text, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read sql file: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("metabase requires --sql or --file")
	}
	return text, nil
}
