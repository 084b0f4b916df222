package util

import (
	"path"
	"sort"
	"strings"
)

// NormalizePatternPath cleans and normalizes paths for matcher/pattern usage.
func NormalizePatternPath(s string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	clean := path.Clean(trimmed)
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// HasPathPrefix returns true when path equals prefix or is contained within prefix.
func HasPathPrefix(path, prefix string) bool {
	path = NormalizePatternPath(path)
	prefix = NormalizePatternPath(prefix)
	if path == "" || prefix == "" {
		return path == prefix
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// HasModulePrefix returns true when the dotted module ID equals prefix or is
// nested underneath it (prefix "a.b" matches "a.b" and "a.b.c", not "a.bc").
func HasModulePrefix(module, prefix string) bool {
	if module == "" || prefix == "" {
		return module == prefix
	}
	if module == prefix {
		return true
	}
	return strings.HasPrefix(module, prefix+".")
}

// ModuleAncestry returns the dotted module ID and all its ancestors ordered
// from most-specific to least-specific: "a.b.c" -> ["a.b.c", "a.b", "a"].
func ModuleAncestry(module string) []string {
	if module == "" {
		return nil
	}
	parts := strings.Split(module, ".")
	out := make([]string, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], "."))
	}
	return out
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
