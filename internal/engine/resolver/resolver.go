package resolver

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"boundary/internal/engine/parser"
	"boundary/internal/shared/util"
)

// Resolver maps project files and raw import targets to declared module IDs.
// All file paths are project-root-relative with forward slashes; module IDs
// are dotted directory paths relative to a source root.
type Resolver struct {
	sourceRoots []string
	goModule    string
	index       *Index
}

var goModuleRe = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// NewResolver reads go.mod at the project root when present so Go import
// paths inside the module can be mapped back to directories.
func NewResolver(projectRoot string, sourceRoots []string, index *Index) *Resolver {
	roots := make([]string, 0, len(sourceRoots))
	for _, sr := range sourceRoots {
		roots = append(roots, util.NormalizePatternPath(sr))
	}
	if len(roots) == 0 {
		roots = append(roots, "")
	}

	r := &Resolver{sourceRoots: roots, index: index}
	if data, err := os.ReadFile(filepath.Join(projectRoot, "go.mod")); err == nil {
		if m := goModuleRe.FindSubmatch(data); len(m) > 1 {
			r.goModule = string(m[1])
		}
	}
	return r
}

func (r *Resolver) Index() *Index { return r.index }

// ModuleForFile returns the declared module that owns the file. The second
// result is false when the file lies outside every source root or no declared
// module covers it.
func (r *Resolver) ModuleForFile(relPath string) (string, bool) {
	dotted, ok := r.dottedDir(relPath)
	if !ok {
		return "", false
	}
	return r.index.Owner(dotted)
}

// dottedDir converts the file's directory to a dotted path relative to its
// source root. Files directly in a source root map to "".
func (r *Resolver) dottedDir(relPath string) (string, bool) {
	relPath = util.NormalizePatternPath(relPath)
	for _, root := range r.sourceRoots {
		if !util.HasPathPrefix(relPath, root) {
			continue
		}
		sub := relPath
		if root != "" {
			sub = strings.TrimPrefix(relPath, root+"/")
			if sub == relPath {
				// File is the root itself
				sub = ""
			}
		}
		dir := path.Dir(sub)
		if dir == "." || dir == "/" {
			return "", true
		}
		return strings.ReplaceAll(dir, "/", "."), true
	}
	return "", false
}

// ResolveImport maps one extracted import to the declared module it targets.
// Returns false for external imports and targets no declared module owns; no
// graph edge is produced for those.
func (r *Resolver) ResolveImport(file *parser.File, imp parser.Import) (string, bool) {
	candidate, ok := r.candidate(file, imp)
	if !ok {
		return "", false
	}
	return r.index.Owner(candidate)
}

// candidate normalizes the raw target into a dotted path relative to a source
// root, per source language.
func (r *Resolver) candidate(file *parser.File, imp parser.Import) (string, bool) {
	switch file.Language {
	case "go":
		return r.goCandidate(imp.Target)
	case "python":
		return r.pythonCandidate(file, imp)
	case "javascript", "typescript", "tsx":
		return r.jsCandidate(file, imp)
	case "java":
		return imp.Target, imp.Target != ""
	case "rust":
		return r.rustCandidate(file, imp)
	}
	return "", false
}

func (r *Resolver) goCandidate(target string) (string, bool) {
	if r.goModule == "" {
		return "", false
	}
	if target == r.goModule {
		return "", true
	}
	rel := strings.TrimPrefix(target, r.goModule+"/")
	if rel == target {
		return "", false
	}
	return strings.ReplaceAll(rel, "/", "."), true
}

func (r *Resolver) pythonCandidate(file *parser.File, imp parser.Import) (string, bool) {
	if !imp.IsRelative {
		return imp.Target, imp.Target != ""
	}

	// Level 1 is the file's own package, each further dot climbs one package.
	base, ok := r.dottedDir(file.Path)
	if !ok {
		return "", false
	}
	for climb := imp.RelativeLevel - 1; climb > 0; climb-- {
		if base == "" {
			return "", false
		}
		idx := strings.LastIndex(base, ".")
		if idx < 0 {
			base = ""
		} else {
			base = base[:idx]
		}
	}
	if imp.Target == "" {
		return base, true
	}
	if base == "" {
		return imp.Target, true
	}
	return base + "." + imp.Target, true
}

func (r *Resolver) jsCandidate(file *parser.File, imp parser.Import) (string, bool) {
	if !imp.IsRelative {
		// Bare specifiers are package imports; path aliases are not modeled.
		return "", false
	}
	joined := path.Join(path.Dir(util.NormalizePatternPath(file.Path)), imp.Target)
	if strings.HasPrefix(joined, "..") {
		return "", false
	}
	dotted, ok := r.dottedDir(path.Join(joined, "x"))
	if !ok {
		return "", false
	}
	return dotted, true
}

func (r *Resolver) rustCandidate(file *parser.File, imp parser.Import) (string, bool) {
	parts := strings.Split(imp.Target, "::")
	if len(parts) == 0 {
		return "", false
	}

	switch parts[0] {
	case "crate":
		return strings.Join(parts[1:], "."), true
	case "self", "super":
		base, ok := r.dottedDir(file.Path)
		if !ok {
			return "", false
		}
		rest := parts
		for len(rest) > 0 && rest[0] == "super" {
			if base != "" {
				idx := strings.LastIndex(base, ".")
				if idx < 0 {
					base = ""
				} else {
					base = base[:idx]
				}
			}
			rest = rest[1:]
		}
		if len(rest) > 0 && rest[0] == "self" {
			rest = rest[1:]
		}
		if len(rest) == 0 {
			return base, true
		}
		if base == "" {
			return strings.Join(rest, "."), true
		}
		return base + "." + strings.Join(rest, "."), true
	}
	// External crate
	return "", false
}
