package external

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"boundary/internal/core/config"
	"boundary/internal/core/errors"
)

// Policy is the declared dependency set plus the renames and exclusions that
// map import names onto distribution packages.
type Policy struct {
	severity string
	declared map[string]bool
	excluded map[string]bool
	rename   map[string]string
}

// NewPolicy reads the configured manifests under root and builds the policy.
// Missing manifests are skipped; unreadable or malformed ones fail the load.
func NewPolicy(root string, cfg config.External) (*Policy, error) {
	p := &Policy{
		severity: cfg.Severity,
		declared: make(map[string]bool),
		excluded: make(map[string]bool),
		rename:   make(map[string]string),
	}

	for _, name := range cfg.Exclude {
		p.excluded[NormalizePackageName(name)] = true
	}
	for _, entry := range cfg.Rename {
		module, pkg, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, errors.New(errors.CodeConfigInvalid,
				fmt.Sprintf("external rename %q must be module:package", entry))
		}
		p.rename[strings.TrimSpace(module)] = NormalizePackageName(pkg)
	}
	for _, dep := range cfg.Dependencies {
		p.declared[NormalizePackageName(dep)] = true
	}

	for _, rel := range cfg.Manifests {
		path := filepath.Join(root, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrap(err, errors.CodeConfigInvalid, "manifest unreadable: "+rel)
		}

		var deps []string
		if filepath.Base(path) == "pyproject.toml" {
			deps, err = ParsePyprojectTOML(data, cfg.IncludeDependencyGroups)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeConfigInvalid, "manifest parse failed: "+rel)
			}
		} else {
			deps = ParseRequirementsTxt(data)
		}
		for _, dep := range deps {
			p.declared[NormalizePackageName(dep)] = true
		}
	}
	return p, nil
}

func (p *Policy) Severity() string { return p.severity }

// Declared reports whether the normalized package name is in the declared set.
func (p *Policy) Declared(pkg string) bool {
	return p.declared[NormalizePackageName(pkg)]
}

// Undeclared maps an import target's top-level module onto a distribution
// package and reports whether that package is missing from the declared set.
// Excluded modules never count as undeclared.
func (p *Policy) Undeclared(target string) (string, bool) {
	module := target
	if i := strings.IndexAny(module, "./:"); i >= 0 {
		module = module[:i]
	}
	if module == "" {
		return "", false
	}

	pkg, renamed := p.rename[module]
	if !renamed {
		pkg = NormalizePackageName(module)
	}
	if p.excluded[NormalizePackageName(module)] || p.excluded[pkg] {
		return pkg, false
	}
	return pkg, !p.declared[pkg]
}
