package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"boundary/internal/core/app"
	"boundary/internal/core/config"
	"boundary/internal/core/errors"
	"boundary/internal/core/publish"
	"boundary/internal/data/history"
	"boundary/internal/engine/graph"
	"boundary/internal/shared/observability"
	"boundary/internal/ui/watchui"
)

var (
	configPath = flag.String("config", "", "Path to boundary.toml (default: nearest ancestor)")
	once       = flag.Bool("once", false, "Run a single check pass and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	showRuns   = flag.Int("history", 0, "Print the N most recent check runs and exit")
	traceChain = flag.Bool("trace", false, "Print the shortest import chain between two modules and exit")
	impact     = flag.String("impact", "", "Print modules depending on the given module and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("boundary v%s\n", VERSION)
		os.Exit(0)
	}

	setupLogging()

	root, cfg, err := loadConfig()
	if err != nil {
		if errors.IsCode(err, errors.CodeConfigNotFound) {
			fmt.Fprintln(os.Stderr, "no boundary.toml found; run from inside a configured project or pass -config")
			os.Exit(1)
		}
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *traceChain || *impact != "" {
		if err := runQuery(ctx, root, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	}

	if cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
		if err != nil {
			slog.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	var opts []app.Option
	if cfg.History.Enabled || *showRuns > 0 {
		store, err := history.Open(filepath.Join(root, cfg.History.Path))
		if err != nil {
			slog.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		if *showRuns > 0 {
			if err := printRuns(ctx, store, *showRuns); err != nil {
				slog.Error("failed to read history", "error", err)
				os.Exit(1)
			}
			return
		}
		opts = append(opts, app.WithHistory(store))
	}

	var project *app.Project
	var panel *watchui.Panel
	var sink publish.Sink
	if *ui {
		panel = watchui.NewPanel(func() watchui.Info {
			return panelInfo(project)
		})
		sink = panel
	} else {
		sink = publish.NewJSONLinesSink(os.Stdout)
	}

	project, err = app.NewProject(root, cfg, sink, opts...)
	if err != nil {
		slog.Error("failed to initialize project", "error", err)
		os.Exit(1)
	}
	defer project.Close()

	if cfg.Observability.Address != "" {
		server := observability.NewServer(cfg.Observability.Address, func() (string, map[string]any) {
			state := project.State()
			status := "starting"
			switch state {
			case app.StateReady, app.StateRechecking:
				status = "up"
			case app.StateScanning:
				status = "scanning"
			case app.StateShuttingDown:
				status = "down"
			}
			return status, map[string]any{"state": state.String()}
		})
		if err := server.Start(); err != nil {
			slog.Error("failed to start observability server", "error", err)
			os.Exit(1)
		}
		defer server.Stop(context.Background())
	}

	if *once {
		summary, err := project.Scan(ctx)
		if err != nil {
			slog.Error("scan failed", "error", err)
			os.Exit(1)
		}
		slog.Info("check complete", "modules", summary.Modules,
			"violations", summary.Violations, "warnings", summary.Warnings)
		if summary.Violations > 0 {
			os.Exit(2)
		}
		os.Exit(0)
	}

	// SIGHUP forces a full rescan without restarting the watcher.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			slog.Info("SIGHUP received, running full scan")
			if _, err := project.Scan(ctx); err != nil && ctx.Err() == nil {
				slog.Error("scan failed", "error", err)
			}
		}
	}()

	if *ui {
		go func() {
			if err := project.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("watch failed", "error", err)
			}
			panel.Quit()
		}()
		if err := panel.Run(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
		stop()
		return
	}

	if err := project.Watch(ctx); err != nil && ctx.Err() == nil {
		slog.Error("watch failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig resolves the project root either from -config or by walking up
// from the working directory.
func loadConfig() (string, *config.Config, error) {
	if *configPath != "" {
		abs, err := filepath.Abs(*configPath)
		if err != nil {
			return "", nil, err
		}
		cfg, err := config.Load(abs)
		if err != nil {
			return "", nil, err
		}
		return filepath.Dir(abs), cfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	root, err := config.FindProjectRoot(cwd)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(filepath.Join(root, config.ConfigFile))
	if err != nil {
		return "", nil, err
	}
	return root, cfg, nil
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	if *ui {
		// In UI mode, keep logs off the terminal.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err == nil {
			if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
				output = f
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "boundary", "boundary.log")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "boundary", "boundary.log")
	}
	return "boundary.log"
}

// runQuery answers -trace and -impact against a freshly scanned graph,
// publishing nothing.
func runQuery(ctx context.Context, root string, cfg *config.Config) error {
	if *traceChain && *impact != "" {
		return fmt.Errorf("-trace and -impact cannot be used together")
	}
	if *traceChain && flag.NArg() != 2 {
		return fmt.Errorf("trace mode requires two module arguments: boundary -trace <from> <to>")
	}

	project, err := app.NewProject(root, cfg, publish.NewMemorySink())
	if err != nil {
		return err
	}
	if _, err := project.Scan(ctx); err != nil {
		return err
	}
	g := project.Graph()

	if *traceChain {
		from, to := flag.Arg(0), flag.Arg(1)
		for _, m := range []string{from, to} {
			if !moduleKnown(g, m) {
				return fmt.Errorf("module not found: %s", m)
			}
		}
		chain, ok := g.FindImportChain(from, to)
		if !ok {
			return fmt.Errorf("no import chain found from %s to %s", from, to)
		}
		fmt.Printf("Import chain: %s -> %s\n\n", from, to)
		fmt.Println(strings.Join(chain, "\n  -> "))
		return nil
	}

	if !moduleKnown(g, *impact) {
		return fmt.Errorf("module not found: %s", *impact)
	}
	dependents := g.Dependents(*impact)
	fmt.Printf("Modules affected by a change to %s (%d)\n", *impact, len(dependents))
	for _, m := range dependents {
		fmt.Printf("- %s\n", m)
	}
	return nil
}

func moduleKnown(g *graph.Graph, module string) bool {
	for _, m := range g.Modules() {
		if m == module {
			return true
		}
	}
	return false
}

func printRuns(ctx context.Context, store *history.Store, limit int) error {
	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	fmt.Printf("%-24s %-8s %8s %8s %10s %9s %10s\n",
		"started", "kind", "modules", "edges", "violations", "warnings", "duration")
	for _, r := range runs {
		fmt.Printf("%-24s %-8s %8d %8d %10d %9d %10s\n",
			r.StartedAt.Format("2006-01-02 15:04:05 MST"), r.Kind,
			r.Modules, r.Edges, r.Violations, r.Warnings, r.Duration)
	}
	return nil
}

func panelInfo(project *app.Project) watchui.Info {
	if project == nil {
		return watchui.Info{State: "starting"}
	}

	g := project.Graph()
	var modules []watchui.ModuleSummary
	files := 0
	for _, name := range g.Modules() {
		owned := len(g.Files(name))
		files += owned
		modules = append(modules, watchui.ModuleSummary{
			Name:       name,
			Files:      owned,
			Deps:       len(g.EdgesFrom(name)),
			Dependents: len(g.EdgesTo(name)),
		})
	}
	_, edges := g.Stats()

	return watchui.Info{
		State:     project.State().String(),
		Modules:   modules,
		FileCount: files,
		EdgeCount: edges,
	}
}
