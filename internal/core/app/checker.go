package app

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"boundary/internal/core/config"
	"boundary/internal/core/errors"
	"boundary/internal/core/publish"
	"boundary/internal/data/history"
	"boundary/internal/engine/graph"
	"boundary/internal/engine/rules"
	"boundary/internal/shared/observability"
)

// Summary describes one completed check pass.
type Summary struct {
	Kind       string
	Files      int
	Modules    int
	Edges      int
	Violations int
	Warnings   int
	Duration   time.Duration
}

// Scan runs a full pass: discover, parse, rebuild, evaluate, publish.
// Incremental state is discarded; the published diagnostic set converges to
// exactly what the graph yields.
func (p *Project) Scan(ctx context.Context) (Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.setState(StateScanning)
	ctx, span := observability.Tracer.Start(ctx, "project.Scan")
	defer span.End()
	start := time.Now()

	files, err := p.discoverFiles()
	if err != nil {
		p.setState(StateReady)
		return Summary{}, err
	}

	results, err := p.parseFiles(ctx, files)
	if err != nil {
		p.setState(StateReady)
		return Summary{}, err
	}

	// Full scans rebuild from nothing so renames and deletions cannot leave
	// stale edges behind.
	p.graph.Store(graph.NewGraph())
	p.partials = make(map[string]bool)
	p.externals = make(map[string][]publish.Diagnostic)
	p.applyResults(results)

	summary := p.evaluateAndPublish(ctx, "scan", len(files), start, p.computeDiagnostics(), nil)
	span.SetAttributes(
		attribute.Int("files", summary.Files),
		attribute.Int("violations", summary.Violations),
	)
	p.setState(StateReady)
	return summary, nil
}

// Recheck applies a coalesced change batch. Only the named files are
// re-parsed; rule evaluation is pure, so recomputing it from the updated
// graph gives the same set a full scan would.
func (p *Project) Recheck(ctx context.Context, paths []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.setState(StateRechecking)
	defer p.setState(StateReady)

	ctx, span := observability.Tracer.Start(ctx, "project.Recheck",
		trace.WithAttributes(attribute.Int("batch_size", len(paths))))
	defer span.End()

	for {
		start := time.Now()
		results, err := p.parseFiles(ctx, paths)
		if err != nil {
			return err
		}

		// A batch that arrived while parsing supersedes this one: abandon
		// the results before they touch the graph and start over merged.
		// Watcher batches carry absolute paths and may include the config
		// file, so they get the same normalization the coordinator applies.
		select {
		case more := <-p.changes:
			observability.RechecksAbandonedTotal.Inc()
			rel, configChanged := p.relBatch(more)
			if configChanged {
				// The coordinator owns config reloads; hand the batch back.
				go func() {
					select {
					case p.changes <- more:
					case <-ctx.Done():
					}
				}()
				return nil
			}
			paths = mergePaths(paths, rel)
			continue
		default:
		}

		affected := p.applyResults(results)
		current, scope := p.computeAffected(affected, paths)
		if p.cfg.Check.ForbidCycles {
			// Cycle membership is a whole-graph property.
			current, scope = p.computeDiagnostics(), nil
		}
		p.evaluateAndPublish(ctx, "recheck", len(paths), start, current, scope)
		return nil
	}
}

func mergePaths(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(a, b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// evaluateAndPublish publishes per-file deltas between the published state
// and current, retracting files whose diagnostics cleared. A nil scope means
// current is authoritative for every file; otherwise only scoped files may be
// retracted.
func (p *Project) evaluateAndPublish(ctx context.Context, kind string, files int, start time.Time, current map[string][]publish.Diagnostic, scope map[string]bool) Summary {
	published := 0
	for _, file := range changedFiles(p.published, current, scope) {
		diags := current[file]
		if err := p.sink.Publish(ctx, file, diags); err != nil {
			slog.Error("publish failed", "path", file, "error", err)
			continue
		}
		observability.DiagnosticsPublishedTotal.Inc()
		published++
		if len(diags) == 0 {
			delete(p.published, file)
		} else {
			p.published[file] = diags
		}
	}

	// Counting the published state instead of current keeps the totals right
	// when current only covers the rechecked scope.
	total, warnings := 0, 0
	for _, diags := range p.published {
		for _, d := range diags {
			if d.Severity == config.SeverityWarn {
				warnings++
			} else {
				total++
			}
		}
	}
	observability.ActiveViolations.Set(float64(total + warnings))

	duration := time.Since(start)
	observability.ScanDuration.WithLabelValues(kind).Observe(duration.Seconds())

	modules, edges := p.graph.Load().Stats()
	summary := Summary{
		Kind:       kind,
		Files:      files,
		Modules:    modules,
		Edges:      edges,
		Violations: total,
		Warnings:   warnings,
		Duration:   duration,
	}

	if p.store != nil {
		if _, err := p.store.RecordRun(ctx, history.Run{
			StartedAt:  start,
			Duration:   duration,
			Kind:       kind,
			Modules:    modules,
			Edges:      edges,
			Violations: total,
			Warnings:   warnings,
		}); err != nil {
			slog.Warn("history record failed", "error", err)
		}
	}

	slog.Info("check pass complete", "kind", kind, "files", files,
		"modules", modules, "edges", edges, "violations", total,
		"warnings", warnings, "published", published, "duration", duration)
	return summary
}

// computeDiagnostics evaluates every edge plus the optional cycle rule and
// groups the outcome per file in deterministic order.
func (p *Project) computeDiagnostics() map[string][]publish.Diagnostic {
	g := p.graph.Load()
	var violations []rules.Violation
	for _, edge := range g.Edges() {
		violations = append(violations, p.engine.Evaluate(edge)...)
	}
	if p.cfg.Check.ForbidCycles {
		violations = append(violations, rules.CycleViolations(g.DetectCycles(), g)...)
	}

	out := groupViolations(violations)
	for file, partial := range p.partials {
		if partial {
			out[file] = append(out[file], parseDiagnostic())
		}
	}
	for file, diags := range p.externals {
		out[file] = append(out[file], diags...)
	}

	for file := range out {
		sortDiagnostics(out[file])
	}
	return out
}

// computeAffected evaluates only the outgoing edges of the modules a recheck
// touched. The returned scope names every file the result is authoritative
// for: the rechecked paths plus all files of the affected modules.
func (p *Project) computeAffected(affected map[string]bool, paths []string) (map[string][]publish.Diagnostic, map[string]bool) {
	g := p.graph.Load()

	scope := make(map[string]bool, len(paths))
	for _, path := range paths {
		scope[path] = true
	}

	var violations []rules.Violation
	for module := range affected {
		for _, f := range g.Files(module) {
			scope[f] = true
		}
		for _, edge := range g.EdgesFrom(module) {
			violations = append(violations, p.engine.Evaluate(edge)...)
		}
	}

	out := groupViolations(violations)
	for file := range scope {
		if p.partials[file] {
			out[file] = append(out[file], parseDiagnostic())
		}
		if diags := p.externals[file]; len(diags) > 0 {
			out[file] = append(out[file], diags...)
		}
	}

	for file := range out {
		sortDiagnostics(out[file])
	}
	return out, scope
}

func groupViolations(violations []rules.Violation) map[string][]publish.Diagnostic {
	out := make(map[string][]publish.Diagnostic)
	for _, v := range violations {
		out[v.File] = append(out[v.File], publish.Diagnostic{
			Range:    publish.Range{Line: v.Location.Line, Column: v.Location.Column},
			Severity: v.Severity,
			Message:  v.Message,
			Rule:     v.Rule,
			Kind:     v.Kind,
		})
	}
	return out
}

func parseDiagnostic() publish.Diagnostic {
	return publish.Diagnostic{
		Range:    publish.Range{Line: 1, Column: 1},
		Severity: config.SeverityWarn,
		Message:  "file has syntax errors, import analysis may be incomplete",
		Rule:     string(errors.CodePartialParse),
		Kind:     "parse",
	}
}

func sortDiagnostics(diags []publish.Diagnostic) {
	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Range.Line != diags[j].Range.Line {
			return diags[i].Range.Line < diags[j].Range.Line
		}
		if diags[i].Range.Column != diags[j].Range.Column {
			return diags[i].Range.Column < diags[j].Range.Column
		}
		return diags[i].Message < diags[j].Message
	})
}

// changedFiles returns files whose diagnostic set differs from what is
// published, including files needing retraction. With a non-nil scope,
// absence from current only means retraction for files inside the scope.
func changedFiles(published, current map[string][]publish.Diagnostic, scope map[string]bool) []string {
	set := make(map[string]bool)
	for file, diags := range current {
		if !equalDiagnostics(published[file], diags) {
			set[file] = true
		}
	}
	for file := range published {
		if scope != nil && !scope[file] {
			continue
		}
		if _, ok := current[file]; !ok {
			set[file] = true
		}
	}

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func equalDiagnostics(a, b []publish.Diagnostic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
