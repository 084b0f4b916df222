package external

import (
	"os"
	"path/filepath"
	"testing"

	"boundary/internal/core/config"
)

func TestParsePyprojectDependencies(t *testing.T) {
	data := []byte(`
[project]
name = "svc"
dependencies = [
    "requests>=2.31",
    "SQLAlchemy[asyncio] ~= 2.0",
    "typing-extensions; python_version < '3.11'",
]

[project.optional-dependencies]
dev = ["pytest==8.0"]
`)
	deps, err := ParsePyprojectTOML(data, false)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"requests", "SQLAlchemy", "typing-extensions", "pytest"}
	got := map[string]bool{}
	for _, d := range deps {
		got[d] = true
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("missing dependency %q in %v", w, deps)
		}
	}
}

func TestParsePyprojectPoetryFallback(t *testing.T) {
	data := []byte(`
[tool.poetry]
name = "svc"

[tool.poetry.dependencies]
python = "^3.11"
httpx = "^0.27"
`)
	deps, err := ParsePyprojectTOML(data, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 1 || deps[0] != "httpx" {
		t.Errorf("poetry deps = %v, python must be dropped", deps)
	}
}

func TestParsePyprojectDependencyGroups(t *testing.T) {
	data := []byte(`
[project]
name = "svc"
dependencies = ["requests"]

[dependency-groups]
test = ["pytest", {include-group = "lint"}]
lint = ["ruff", {include-group = "test"}]
`)
	deps, err := ParsePyprojectTOML(data, true)
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	for _, d := range deps {
		got[d] = true
	}
	// The group cycle must terminate and both groups must contribute.
	for _, w := range []string{"requests", "pytest", "ruff"} {
		if !got[w] {
			t.Errorf("missing dependency %q in %v", w, deps)
		}
	}
}

func TestParseRequirementsTxt(t *testing.T) {
	data := []byte(`
# pinned by CI
requests==2.31.0
flask >= 3.0

-r extra.txt
--no-binary :all:
celery[redis]~=5.3
`)
	deps := ParseRequirementsTxt(data)
	want := []string{"requests", "flask", "celery"}
	if len(deps) != len(want) {
		t.Fatalf("deps = %v", deps)
	}
	for i, w := range want {
		if deps[i] != w {
			t.Errorf("deps[%d] = %q, want %q", i, deps[i], w)
		}
	}
}

func TestNormalizePackageName(t *testing.T) {
	cases := map[string]string{
		"Typing_Extensions": "typing-extensions",
		"ruamel.yaml":       "ruamel-yaml",
		"requests":          "requests",
	}
	for in, want := range cases {
		if got := NormalizePackageName(in); got != want {
			t.Errorf("NormalizePackageName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPolicyUndeclared(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, "pyproject.toml")
	if err := os.WriteFile(manifest, []byte(`
[project]
name = "svc"
dependencies = ["Pillow", "requests"]
`), 0o644); err != nil {
		t.Fatal(err)
	}

	pol, err := NewPolicy(root, config.External{
		Enabled:   true,
		Manifests: []string{"pyproject.toml"},
		Exclude:   []string{"os", "sys"},
		Rename:    []string{"PIL:Pillow"},
		Severity:  config.SeverityError,
	})
	if err != nil {
		t.Fatal(err)
	}

	if pkg, bad := pol.Undeclared("requests.sessions"); bad {
		t.Errorf("requests flagged undeclared as %q", pkg)
	}
	// The import name differs from the distribution name; rename bridges it.
	if pkg, bad := pol.Undeclared("PIL.Image"); bad {
		t.Errorf("renamed PIL flagged undeclared as %q", pkg)
	}
	if _, bad := pol.Undeclared("os.path"); bad {
		t.Error("excluded module flagged undeclared")
	}
	pkg, bad := pol.Undeclared("flask")
	if !bad || pkg != "flask" {
		t.Errorf("flask: pkg=%q undeclared=%v", pkg, bad)
	}
}

func TestPolicyMissingManifestSkipped(t *testing.T) {
	pol, err := NewPolicy(t.TempDir(), config.External{
		Enabled:      true,
		Manifests:    []string{"pyproject.toml", "requirements.txt"},
		Dependencies: []string{"requests"},
		Severity:     config.SeverityWarn,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !pol.Declared("requests") {
		t.Error("config-listed dependency not declared")
	}
	if pol.Severity() != config.SeverityWarn {
		t.Errorf("severity = %q", pol.Severity())
	}
}
