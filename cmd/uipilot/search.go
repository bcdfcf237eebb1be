package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/agent/browser"
	"github.com/BaSui01/uipilot/agent/websearch"
	"github.com/BaSui01/uipilot/internal/cache"
)

// =============================================================================
// 🔍 search 命令
// =============================================================================

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	flags := bindCommonFlags(fs)
	provider := fs.String("provider", "", "Search provider: llm or browser")
	n := fs.Int("n", websearch.DefaultNumResults, "Number of results")
	contentURL := fs.String("content", "", "Fetch the content of a URL instead of searching")
	fs.Parse(args)

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" && *contentURL == "" {
		return fmt.Errorf("search requires a query or --content <url>")
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	if *provider == "" {
		*provider = a.cfg.Search.Provider
	}

	blocklist := browser.NewBlocklist(a.cfg.Browser.BlockedDomains)

	var searcher websearch.Searcher
	switch *provider {
	case "llm":
		completer, err := websearch.NewOpenAICompleter(websearch.LLMConfig{
			APIKey:      a.cfg.Search.APIKey,
			BaseURL:     a.cfg.Search.BaseURL,
			Model:       a.cfg.Search.Model,
			Temperature: a.cfg.Search.Temperature,
			Timeout:     a.cfg.Search.Timeout,
		})
		if err != nil {
			return err
		}
		searcher = websearch.NewLLMSearch(completer,
			websearch.WithLLMLogger(a.logger),
			websearch.WithLLMRecorder(a.collector),
			websearch.WithBlocklist(blocklist),
		)
	case "browser":
		session, err := a.openSession()
		if err != nil {
			return err
		}
		defer session.Close()
		searcher = websearch.NewBrowserSearch(session,
			websearch.WithSnapshotDir(a.cfg.Search.SnapshotDir),
			websearch.WithBrowserLogger(a.logger),
			websearch.WithPageBlocklist(blocklist),
		)
	default:
		return fmt.Errorf("unknown search provider %q", *provider)
	}

	if cc := a.cfg.Search.Cache; cc.Enabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = cc.Addr
		cacheCfg.Password = cc.Password
		cacheCfg.DB = cc.DB
		if cc.TTL > 0 {
			cacheCfg.DefaultTTL = cc.TTL
		}
		manager, err := cache.NewManager(cacheCfg, a.logger)
		if err != nil {
			a.logger.Warn("search cache unavailable", zap.Error(err))
		} else {
			defer manager.Close()
			searcher = websearch.NewCachedSearch(searcher, manager, *provider, cacheCfg.DefaultTTL, a.logger)
		}
	}

	if *contentURL != "" {
		text, err := searcher.Content(ctx, *contentURL)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	results, err := searcher.Search(ctx, query, *n)
	if err != nil {
		return err
	}
	a.logger.Info("search finished",
		zap.String("provider", *provider),
		zap.Int("results", len(results)),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
