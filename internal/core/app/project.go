package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"boundary/internal/core/config"
	"boundary/internal/core/errors"
	"boundary/internal/core/publish"
	"boundary/internal/core/watcher"
	"boundary/internal/data/history"
	"boundary/internal/engine/external"
	"boundary/internal/engine/graph"
	"boundary/internal/engine/parser"
	"boundary/internal/engine/resolver"
	"boundary/internal/engine/rules"
)

// State is the project lifecycle. Transitions:
// Uninitialized -> Scanning -> Ready <-> Rechecking -> ShuttingDown.
type State int32

const (
	StateUninitialized State = iota
	StateScanning
	StateReady
	StateRechecking
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateScanning:
		return "scanning"
	case StateReady:
		return "ready"
	case StateRechecking:
		return "rechecking"
	case StateShuttingDown:
		return "shutting_down"
	}
	return "unknown"
}

type cachedParse struct {
	modTime time.Time
	size    int64
	file    *parser.File
}

// Project is one checked code base: config, resolver, graph, rule engine and
// the publisher, owned by a single coordinator. Parse work fans out to a
// bounded worker pool; graph mutation and publishing stay on the coordinator.
type Project struct {
	root string

	mu        sync.Mutex // serializes scan and recheck passes
	cfg       *config.Config
	parser    *parser.Parser
	engine    *rules.Engine
	res       *resolver.Resolver
	ext       *external.Policy
	sink      publish.Sink
	store     *history.Store
	fileCache *lru.Cache[string, cachedParse]

	// graph is replaced wholesale by scans and config reloads while the UI
	// reads it from its own goroutine.
	graph atomic.Pointer[graph.Graph]

	state     atomic.Int32
	cfgBroken atomic.Bool

	published map[string][]publish.Diagnostic
	partials  map[string]bool
	externals map[string][]publish.Diagnostic

	changes chan []string
	watcher *watcher.Watcher
}

type Option func(*Project)

func WithHistory(store *history.Store) Option {
	return func(p *Project) { p.store = store }
}

func WithCacheSize(n int) Option {
	return func(p *Project) {
		if cache, err := lru.New[string, cachedParse](n); err == nil {
			p.fileCache = cache
		}
	}
}

func NewProject(root string, cfg *config.Config, sink publish.Sink, opts ...Option) (*Project, error) {
	engine, err := rules.NewEngine(cfg.Modules)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[string, cachedParse](4096)
	if err != nil {
		return nil, err
	}

	idx := resolver.NewIndex()
	for _, m := range engine.ModulePaths() {
		idx.Add(m)
	}

	p := &Project{
		root:      root,
		cfg:       cfg,
		parser:    parser.NewParser(),
		engine:    engine,
		res:       resolver.NewResolver(root, cfg.Project.SourceRoots, idx),
		sink:      sink,
		fileCache: cache,
		published: make(map[string][]publish.Diagnostic),
		partials:  make(map[string]bool),
		externals: make(map[string][]publish.Diagnostic),
		changes:   make(chan []string, 16),
	}
	p.graph.Store(graph.NewGraph())

	if cfg.External.Enabled {
		pol, err := external.NewPolicy(root, cfg.External)
		if err != nil {
			return nil, err
		}
		p.ext = pol
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Project) State() State {
	return State(p.state.Load())
}

func (p *Project) setState(s State) {
	p.state.Store(int32(s))
}

func (p *Project) Graph() *graph.Graph { return p.graph.Load() }

// Watch starts the file watcher and the coordinator loop, blocking until the
// context is cancelled. An initial full scan runs first.
func (p *Project) Watch(ctx context.Context) error {
	if _, err := p.Scan(ctx); err != nil {
		return err
	}

	w, err := watcher.NewWatcher(
		p.cfg.Check.Debounce,
		p.cfg.Project.Exclude,
		p.parser.IsSupportedPath,
		[]string{config.ConfigFile},
		func(paths []string) {
			select {
			case p.changes <- paths:
			case <-ctx.Done():
			}
		},
	)
	if err != nil {
		return err
	}
	p.watcher = w
	defer w.Close()

	roots := make([]string, 0, len(p.cfg.Project.SourceRoots))
	for _, sr := range p.cfg.Project.SourceRoots {
		roots = append(roots, filepath.Join(p.root, sr))
	}
	if err := w.Watch(roots); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			p.setState(StateShuttingDown)
			return ctx.Err()
		case batch := <-p.changes:
			p.handleBatch(ctx, batch)
		}
	}
}

// handleBatch coalesces queued batches and runs one recheck; a config change
// anywhere in the batch forces a reload plus full rescan.
func (p *Project) handleBatch(ctx context.Context, batch []string) {
	paths := map[string]bool{}
	addAll := func(b []string) {
		for _, path := range b {
			paths[path] = true
		}
	}
	addAll(batch)
	for {
		select {
		case more := <-p.changes:
			addAll(more)
			continue
		default:
		}
		break
	}

	merged := make([]string, 0, len(paths))
	for path := range paths {
		merged = append(merged, path)
	}
	rel, configChanged := p.relBatch(merged)

	if configChanged {
		if err := p.reloadConfig(ctx); err != nil {
			slog.Error("config reload failed, checking suspended", "error", err)
			return
		}
		return
	}
	if p.cfgBroken.Load() {
		slog.Warn("skipping recheck, config is broken")
		return
	}
	if err := p.Recheck(ctx, rel); err != nil && ctx.Err() == nil {
		slog.Error("recheck failed", "error", err)
	}
}

// relBatch converts a raw watcher batch to project-relative slash paths and
// reports whether the config file is among them. Paths outside the project
// are dropped.
func (p *Project) relBatch(batch []string) (rel []string, configChanged bool) {
	for _, path := range batch {
		if filepath.Base(path) == config.ConfigFile {
			configChanged = true
			continue
		}
		if !filepath.IsAbs(path) {
			rel = append(rel, filepath.ToSlash(path))
			continue
		}
		r, err := filepath.Rel(p.root, path)
		if err != nil {
			continue
		}
		rel = append(rel, filepath.ToSlash(r))
	}
	return rel, configChanged
}

// reloadConfig swaps rule and resolver state wholesale and rescans. On a
// broken config previous diagnostics stay published and checking pauses.
func (p *Project) reloadConfig(ctx context.Context) error {
	cfg, err := config.Load(filepath.Join(p.root, config.ConfigFile))
	if err != nil {
		p.cfgBroken.Store(true)
		return err
	}
	engine, err := rules.NewEngine(cfg.Modules)
	if err != nil {
		p.cfgBroken.Store(true)
		return err
	}

	idx := resolver.NewIndex()
	for _, m := range engine.ModulePaths() {
		idx.Add(m)
	}

	var pol *external.Policy
	if cfg.External.Enabled {
		if pol, err = external.NewPolicy(p.root, cfg.External); err != nil {
			p.cfgBroken.Store(true)
			return err
		}
	}

	p.mu.Lock()
	p.cfg = cfg
	p.engine = engine
	p.res = resolver.NewResolver(p.root, cfg.Project.SourceRoots, idx)
	p.ext = pol
	p.graph.Store(graph.NewGraph())
	p.mu.Unlock()

	p.cfgBroken.Store(false)
	slog.Info("config reloaded", "modules", len(cfg.Modules))

	_, err = p.Scan(ctx)
	return err
}

func (p *Project) Close() error {
	p.setState(StateShuttingDown)
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}

func (p *Project) relPath(abs string) (string, error) {
	r, err := filepath.Rel(p.root, abs)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("path outside project: %s", abs))
	}
	return filepath.ToSlash(r), nil
}
