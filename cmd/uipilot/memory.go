package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/BaSui01/uipilot/agent/memory"
	"github.com/BaSui01/uipilot/agent/metabase"
)

// =============================================================================
// 🧠 memory 命令
// =============================================================================

func runMemory(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("memory requires a subcommand: list, forget, clear, clean")
	}

	sub := args[0]
	fs := flag.NewFlagSet("memory "+sub, flag.ExitOnError)
	flags := bindCommonFlags(fs)
	agentName := fs.String("agent", metabase.AgentName, "Agent whose memory to use")
	page := fs.String("page", "", "Only list this page")
	days := fs.Int("days", 0, "Maximum age in days for clean (default from config; 0 removes everything not used just now)")
	fs.Parse(args[1:])

	daysSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "days" {
			daysSet = true
		}
	})

	switch sub {
	case "list", "forget", "clear", "clean":
	default:
		return fmt.Errorf("unknown memory subcommand: %s", sub)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.openMemory(ctx, *agentName)
	if err != nil {
		return err
	}
	defer store.Close()

	switch sub {
	case "list":
		return printMemory(os.Stdout, store.Snapshot(), *page)
	case "forget":
		if fs.NArg() != 2 {
			return fmt.Errorf("usage: memory forget --agent <name> <page> <element>")
		}
		return store.ForgetSelector(ctx, fs.Arg(0), fs.Arg(1))
	case "clear":
		return store.Clear(ctx)
	default:
		if daysSet && *days < 0 {
			return fmt.Errorf("--days must not be negative")
		}
		return cleanMemory(ctx, store, cleanMaxAge(*days, daysSet, a.cfg.Memory.MaxAgeDays))
	}
}

// cleanMaxAge 优先使用显式的 --days（包括 0），否则使用配置值，配置为 0 时回退到默认值
func cleanMaxAge(days int, explicit bool, configured int) time.Duration {
	if explicit {
		return memory.DaysToMaxAge(days)
	}
	if configured > 0 {
		return memory.DaysToMaxAge(configured)
	}
	return memory.DefaultMaxAge
}

func cleanMemory(ctx context.Context, store *memory.Store, maxAge time.Duration) error {
	removed, err := store.CleanOld(ctx, maxAge)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d selector(s) not used for %s\n", removed, maxAge)
	return nil
}

// printMemory 以表格输出快照，按页面与元素名排序
func printMemory(w io.Writer, snap memory.Snapshot, onlyPage string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tELEMENT\tSELECTOR\tSUCCESS\tUSES\tLAST UPDATED\tLAST ACCESSED")

	pages := make([]string, 0, len(snap))
	for p := range snap {
		if onlyPage == "" || p == onlyPage {
			pages = append(pages, p)
		}
	}
	sort.Strings(pages)

	for _, p := range pages {
		elems := make([]string, 0, len(snap[p]))
		for e := range snap[p] {
			elems = append(elems, e)
		}
		sort.Strings(elems)
		for _, name := range elems {
			e := snap[p][name]
			rate := "-"
			if e.HasSuccessRate() {
				rate = fmt.Sprintf("%.2f", e.SuccessRate)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				p, name, e.Selector, rate, e.Uses,
				formatTimestamp(e.LastUpdatedAt(), e.LastUpdated),
				formatTimestamp(e.LastAccessedAt(), e.LastAccessed))
		}
	}
	return tw.Flush()
}

// formatTimestamp 未记录（0）的时间显示为 -
func formatTimestamp(t time.Time, raw float64) string {
	if raw == 0 {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
