package config

import (
	"os"
	"path/filepath"
	"testing"

	"boundary/internal/core/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFile)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
version = 1

[[modules]]
path = "api"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Project.SourceRoots) != 1 || cfg.Project.SourceRoots[0] != "." {
		t.Errorf("source roots = %v", cfg.Project.SourceRoots)
	}
	if cfg.Check.Workers < 1 {
		t.Errorf("workers = %d", cfg.Check.Workers)
	}
	if cfg.Check.Debounce == 0 || cfg.Check.FileTimeout == 0 {
		t.Error("check durations not defaulted")
	}
	if cfg.Modules[0].Severity != SeverityError {
		t.Errorf("severity = %q", cfg.Modules[0].Severity)
	}
	if len(cfg.External.Manifests) != 2 || cfg.External.Severity != SeverityError {
		t.Errorf("external defaults = %+v", cfg.External)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
version = 1

[project]
source_roots = ["src"]
exclude = ["**/vendor/**", "**/*_test.py"]

[check]
workers = 4
forbid_cycles = true

[[modules]]
path = "api"
allow = ["db", "billing"]
severity = "warn"

[[modules]]
path = "db"
deny = ["api"]

  [[modules.exceptions]]
  importer = "db.migrations"
  target = "api"
  verdict = "allow"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.Check.ForbidCycles {
		t.Error("forbid_cycles lost")
	}
	api := cfg.Modules[0]
	if api.Allow == nil || len(api.Allow) != 2 || api.Severity != SeverityWarn {
		t.Errorf("api rule = %+v", api)
	}
	db := cfg.Modules[1]
	if len(db.Exceptions) != 1 || db.Exceptions[0].Verdict != VerdictAllow {
		t.Errorf("db exceptions = %+v", db.Exceptions)
	}
}

func TestEmptyAllowListStaysDeclared(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
version = 1

[[modules]]
path = "leaf"
allow = []
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	// allow = [] is a declared empty allow-list, not an absent one.
	if cfg.Modules[0].Allow == nil {
		t.Error("explicit empty allow-list decoded as nil")
	}
	if len(cfg.Modules[0].Allow) != 0 {
		t.Errorf("allow = %v", cfg.Modules[0].Allow)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version = 7\n"},
		{"missing module path", "version = 1\n[[modules]]\nallow = []\n"},
		{"duplicate module path", "version = 1\n[[modules]]\npath = \"api\"\n[[modules]]\npath = \"api\"\n"},
		{"bad severity", "version = 1\n[[modules]]\npath = \"api\"\nseverity = \"fatal\"\n"},
		{"bad verdict", "version = 1\n[[modules]]\npath = \"api\"\n[[modules.exceptions]]\ntarget = \"db\"\nverdict = \"maybe\"\n"},
		{"bad external severity", "version = 1\n[external]\nseverity = \"fatal\"\n"},
		{"bad external rename", "version = 1\n[external]\nrename = [\"PILPillow\"]\n"},
		{"not toml", "version = [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsCode(err, errors.CodeConfigInvalid) {
				t.Errorf("wrong code: %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ConfigFile))
	if !errors.IsCode(err, errors.CodeConfigNotFound) {
		t.Fatalf("wrong code: %v", err)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "version = 1\n")
	nested := filepath.Join(root, "src", "api", "handlers")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if got != root {
		t.Errorf("root = %q, want %q", got, root)
	}
}

func TestFindProjectRootMissing(t *testing.T) {
	_, err := FindProjectRoot(t.TempDir())
	if !errors.IsCode(err, errors.CodeConfigNotFound) {
		t.Fatalf("wrong code: %v", err)
	}
}
