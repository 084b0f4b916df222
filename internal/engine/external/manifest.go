// Package external checks third-party imports against the dependencies a
// project declares in its manifests.
package external

import (
	"strings"

	"github.com/BurntSushi/toml"
)

// ParsePyprojectTOML extracts declared dependency names from a pyproject
// manifest: PEP 621 [project] dependencies and optional-dependencies, the
// poetry table as a fallback, and optionally PEP 735 [dependency-groups]
// with include-group references resolved recursively.
func ParsePyprojectTOML(data []byte, includeGroups bool) ([]string, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var out []string
	add := func(spec string) {
		if name := ExtractPackageName(spec); name != "" && !strings.EqualFold(name, "python") {
			out = append(out, name)
		}
	}
	addList := func(list any) {
		specs, ok := list.([]any)
		if !ok {
			return
		}
		for _, d := range specs {
			if s, ok := d.(string); ok {
				add(s)
			}
		}
	}

	project, _ := doc["project"].(map[string]any)
	if deps, ok := project["dependencies"]; ok {
		addList(deps)
	} else if poetry := poetryDependencies(doc); poetry != nil {
		for name := range poetry {
			add(name)
		}
	}

	if extras, ok := project["optional-dependencies"].(map[string]any); ok {
		for _, list := range extras {
			addList(list)
		}
	}

	if includeGroups {
		if groups, ok := doc["dependency-groups"].(map[string]any); ok {
			for name := range groups {
				collectGroup(groups, name, make(map[string]bool), add)
			}
		}
	}
	return out, nil
}

func poetryDependencies(doc map[string]any) map[string]any {
	tool, _ := doc["tool"].(map[string]any)
	poetry, _ := tool["poetry"].(map[string]any)
	deps, _ := poetry["dependencies"].(map[string]any)
	return deps
}

// collectGroup flattens one dependency group, following
// {include-group = "..."} entries and tolerating cycles.
func collectGroup(groups map[string]any, name string, visited map[string]bool, add func(string)) {
	if visited[name] {
		return
	}
	visited[name] = true

	entries, ok := groups[name].([]any)
	if !ok {
		return
	}
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			add(v)
		case map[string]any:
			if inc, ok := v["include-group"].(string); ok {
				collectGroup(groups, inc, visited, add)
			}
		}
	}
}

// ParseRequirementsTxt returns the package names from a requirements file,
// ignoring comments, blank lines and option lines.
func ParseRequirementsTxt(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name := ExtractPackageName(line); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// ExtractPackageName strips version constraints, extras and environment
// markers from a requirement specifier, leaving the distribution name.
func ExtractPackageName(spec string) string {
	spec = strings.TrimSpace(spec)
	if i := strings.IndexAny(spec, " =<>~!;["); i >= 0 {
		spec = spec[:i]
	}
	return spec
}

// NormalizePackageName lowercases a distribution name and canonicalizes its
// separators so declared and imported names compare equal.
func NormalizePackageName(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	return strings.Join(fields, "-")
}
