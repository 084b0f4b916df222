package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"boundary/internal/engine/parser"
)

func testIndex(modules ...string) *Index {
	idx := NewIndex()
	for _, m := range modules {
		idx.Add(m)
	}
	return idx
}

func TestIndexOwner(t *testing.T) {
	idx := testIndex("api", "api.handlers", "db")

	tests := []struct {
		candidate string
		want      string
		ok        bool
	}{
		{"api", "api", true},
		{"api.handlers.users", "api.handlers", true},
		{"api.util", "api", true},
		{"db.pool", "db", true},
		{"billing", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := idx.Owner(tt.candidate)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Owner(%q) = %q, %v; want %q, %v", tt.candidate, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIndexRootFallback(t *testing.T) {
	idx := testIndex("api", RootModule)

	if got, ok := idx.Owner("scripts.tooling"); !ok || got != RootModule {
		t.Errorf("Owner = %q, %v; want root fallback", got, ok)
	}
	if got, _ := idx.Owner("api.users"); got != "api" {
		t.Errorf("declared module shadowed by root: %q", got)
	}
}

func TestModuleForFile(t *testing.T) {
	idx := testIndex("api", "api.handlers", "db", RootModule)
	r := NewResolver(t.TempDir(), []string{"src"}, idx)

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"src/api/server.py", "api", true},
		{"src/api/handlers/users.py", "api.handlers", true},
		{"src/db/pool.py", "db", true},
		{"src/main.py", RootModule, true},
		{"src/misc/helper.py", RootModule, true},
		{"docs/readme.py", "", false},
	}
	for _, tt := range tests {
		got, ok := r.ModuleForFile(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ModuleForFile(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolvePythonImports(t *testing.T) {
	idx := testIndex("api", "api.handlers", "db")
	r := NewResolver(t.TempDir(), []string{"src"}, idx)

	file := &parser.File{Path: "src/api/handlers/users.py", Language: "python"}

	tests := []struct {
		imp  parser.Import
		want string
		ok   bool
	}{
		{parser.Import{Target: "db.pool"}, "db", true},
		{parser.Import{Target: "api.handlers.auth"}, "api.handlers", true},
		{parser.Import{Target: "requests"}, "", false},
		{parser.Import{Target: "", IsRelative: true, RelativeLevel: 1}, "api.handlers", true},
		{parser.Import{Target: "auth", IsRelative: true, RelativeLevel: 1}, "api.handlers", true},
		{parser.Import{Target: "util", IsRelative: true, RelativeLevel: 2}, "api", true},
	}
	for _, tt := range tests {
		got, ok := r.ResolveImport(file, tt.imp)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ResolveImport(%+v) = %q, %v; want %q, %v", tt.imp, got, ok, tt.want, tt.ok)
		}
	}
}

func TestResolveGoImports(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/svc\n\ngo 1.24\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx := testIndex("internal.api", "internal.db", RootModule)
	r := NewResolver(root, nil, idx)

	file := &parser.File{Path: "internal/api/api.go", Language: "go"}

	if got, ok := r.ResolveImport(file, parser.Import{Target: "example.com/svc/internal/db"}); !ok || got != "internal.db" {
		t.Errorf("module-internal import = %q, %v", got, ok)
	}
	if got, ok := r.ResolveImport(file, parser.Import{Target: "example.com/svc"}); !ok || got != RootModule {
		t.Errorf("module root import = %q, %v", got, ok)
	}
	if _, ok := r.ResolveImport(file, parser.Import{Target: "github.com/stretchr/testify/assert"}); ok {
		t.Error("external import should not resolve")
	}
}

func TestResolveJavaScriptImports(t *testing.T) {
	idx := testIndex("app", "app.auth", "widgets")
	r := NewResolver(t.TempDir(), []string{"src"}, idx)

	file := &parser.File{Path: "src/app/index.js", Language: "javascript"}

	if got, ok := r.ResolveImport(file, parser.Import{Target: "./auth/session", IsRelative: true}); !ok || got != "app.auth" {
		t.Errorf("relative import = %q, %v", got, ok)
	}
	if got, ok := r.ResolveImport(file, parser.Import{Target: "../widgets/button", IsRelative: true, RelativeLevel: 1}); !ok || got != "widgets" {
		t.Errorf("parent-relative import = %q, %v", got, ok)
	}
	if _, ok := r.ResolveImport(file, parser.Import{Target: "react"}); ok {
		t.Error("bare specifier should not resolve")
	}
}

func TestResolveRustImports(t *testing.T) {
	idx := testIndex("db", "api", "api.middleware")
	r := NewResolver(t.TempDir(), []string{"src"}, idx)

	file := &parser.File{Path: "src/api/handlers.rs", Language: "rust"}

	if got, ok := r.ResolveImport(file, parser.Import{Target: "crate::db::pool"}); !ok || got != "db" {
		t.Errorf("crate import = %q, %v", got, ok)
	}
	if got, ok := r.ResolveImport(file, parser.Import{Target: "self::middleware::auth"}); !ok || got != "api.middleware" {
		t.Errorf("self import = %q, %v", got, ok)
	}
	if got, ok := r.ResolveImport(file, parser.Import{Target: "super::db::pool"}); !ok || got != "db" {
		t.Errorf("super import = %q, %v", got, ok)
	}
	if _, ok := r.ResolveImport(file, parser.Import{Target: "serde::Deserialize"}); ok {
		t.Error("external crate should not resolve")
	}
}

func TestResolveJavaImports(t *testing.T) {
	idx := testIndex("com.acme.db", "com.acme.api")
	r := NewResolver(t.TempDir(), []string{"src"}, idx)

	file := &parser.File{Path: "src/com/acme/api/Api.java", Language: "java"}

	if got, ok := r.ResolveImport(file, parser.Import{Target: "com.acme.db.Connection"}); !ok || got != "com.acme.db" {
		t.Errorf("package import = %q, %v", got, ok)
	}
	if _, ok := r.ResolveImport(file, parser.Import{Target: "java.util.List"}); ok {
		t.Error("jdk import should not resolve")
	}
}
