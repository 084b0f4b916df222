package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"boundary/internal/core/errors"
	"boundary/internal/core/publish"
	"boundary/internal/engine/graph"
	"boundary/internal/engine/parser"
	"boundary/internal/shared/observability"
	"boundary/internal/shared/util"
)

// discoverFiles walks the source roots and returns supported files as
// project-relative slash paths.
func (p *Project) discoverFiles() ([]string, error) {
	excludes := make([]glob.Glob, 0, len(p.cfg.Project.Exclude))
	for _, pattern := range p.cfg.Project.Exclude {
		g, err := glob.Compile(util.NormalizePatternPath(pattern), '/')
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfigInvalid, "invalid exclude pattern: "+pattern)
		}
		excludes = append(excludes, g)
	}

	seen := make(map[string]bool)
	var files []string
	for _, sr := range p.cfg.Project.SourceRoots {
		root := filepath.Join(p.root, sr)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// An unreadable entry below the root must not fail the pass.
				if path == root {
					return err
				}
				slog.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			rel, relErr := p.relPath(path)
			if relErr != nil {
				return nil
			}
			if d.IsDir() {
				for _, g := range excludes {
					if g.Match(rel) || g.Match(d.Name()) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if !p.parser.IsSupportedPath(path) {
				return nil
			}
			for _, g := range excludes {
				if g.Match(rel) || g.Match(d.Name()) {
					return nil
				}
			}
			if !seen[rel] {
				seen[rel] = true
				files = append(files, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

type parseResult struct {
	path    string
	file    *parser.File
	deleted bool
	err     error
}

// parseFiles parses the given project-relative paths on a bounded worker
// pool. Missing files come back marked deleted; per-file failures are carried
// in the result, never failing the batch.
func (p *Project) parseFiles(ctx context.Context, paths []string) ([]parseResult, error) {
	results := make([]parseResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Check.Workers)

	for i, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.parseOne(ctx, rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Project) parseOne(ctx context.Context, rel string) parseResult {
	abs := filepath.Join(p.root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			p.fileCache.Remove(rel)
			return parseResult{path: rel, deleted: true}
		}
		return parseResult{path: rel, err: err}
	}

	if cached, ok := p.fileCache.Get(rel); ok {
		if cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
			return parseResult{path: rel, file: cached.file}
		}
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return parseResult{path: rel, err: err}
	}

	type parsed struct {
		file *parser.File
		err  error
	}
	done := make(chan parsed, 1)
	go func() {
		f, err := p.parser.ParseFile(rel, content)
		done <- parsed{file: f, err: err}
	}()

	timeout := time.NewTimer(p.cfg.Check.FileTimeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		return parseResult{path: rel, err: ctx.Err()}
	case <-timeout.C:
		observability.WorkerTimeoutsTotal.Inc()
		return parseResult{path: rel, err: errors.AddContext(
			errors.New(errors.CodeWorkerTimeout, "extraction exceeded file timeout"),
			errors.CtxPath, rel)}
	case res := <-done:
		if res.err != nil {
			return parseResult{path: rel, err: res.err}
		}
		p.fileCache.Add(rel, cachedParse{modTime: info.ModTime(), size: info.Size(), file: res.file})
		return parseResult{path: rel, file: res.file}
	}
}

// applyResults folds parse results into the graph and returns the modules
// whose diagnostics may have changed. Files the resolver cannot place in a
// module are dropped from the graph entirely.
func (p *Project) applyResults(results []parseResult) map[string]bool {
	g := p.graph.Load()
	affected := make(map[string]bool)
	add := func(modules []string) {
		for _, m := range modules {
			affected[m] = true
		}
	}

	for _, res := range results {
		switch {
		case res.err != nil:
			slog.Warn("file skipped", "path", res.path, "error", res.err)
		case res.deleted:
			add(g.RemoveFile(res.path))
			delete(p.partials, res.path)
			delete(p.externals, res.path)
		default:
			module, ok := p.res.ModuleForFile(res.path)
			if !ok {
				add(g.RemoveFile(res.path))
				delete(p.partials, res.path)
				delete(p.externals, res.path)
				continue
			}
			p.partials[res.path] = res.file.PartialParse
			imports, ext := p.resolveImports(res.file)
			add(g.SetFileImports(res.path, module, imports))
			// A re-parsed file can keep its imports identical while its
			// prior diagnostics still need re-evaluation.
			affected[module] = true
			if len(ext) > 0 {
				p.externals[res.path] = ext
			} else {
				delete(p.externals, res.path)
			}
		}
	}
	return affected
}

// resolveImports splits a file's imports into module edges and, when external
// dependency checking is on, diagnostics for third-party imports missing from
// the declared dependency set.
func (p *Project) resolveImports(file *parser.File) ([]graph.FileImport, []publish.Diagnostic) {
	var out []graph.FileImport
	var ext []publish.Diagnostic
	for _, imp := range file.Imports {
		to, ok := p.res.ResolveImport(file, imp)
		if ok {
			out = append(out, graph.FileImport{To: to, Location: imp.Location, Items: imp.Items})
			continue
		}
		if p.ext == nil || imp.IsRelative {
			continue
		}
		if pkg, undeclared := p.ext.Undeclared(imp.Target); undeclared {
			ext = append(ext, publish.Diagnostic{
				Range:    publish.Range{Line: imp.Location.Line, Column: imp.Location.Column},
				Severity: p.ext.Severity(),
				Message:  fmt.Sprintf("package %q is not declared as a project dependency", pkg),
				Rule:     "external",
				Kind:     "external",
			})
		}
	}
	return out, ext
}
