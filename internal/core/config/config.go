package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"boundary/internal/core/errors"
)

// ConfigFile is the per-project configuration file name; its directory is the
// project root.
const ConfigFile = "boundary.toml"

type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Check         Check         `toml:"check"`
	Modules       []Module      `toml:"modules"`
	External      External      `toml:"external"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
}

type Project struct {
	SourceRoots []string `toml:"source_roots"`
	Exclude     []string `toml:"exclude"`
}

type Check struct {
	Debounce     time.Duration `toml:"debounce"`
	FileTimeout  time.Duration `toml:"file_timeout"`
	Workers      int           `toml:"workers"`
	ForbidCycles bool          `toml:"forbid_cycles"`
}

// Module declares one boundary rule scoped to a dotted module path. A nil
// Allow means allow-unless-denied; an explicitly empty list denies everything
// not excepted.
type Module struct {
	Path       string      `toml:"path"`
	Allow      []string    `toml:"allow"`
	Deny       []string    `toml:"deny"`
	Severity   string      `toml:"severity"`
	Interface  []string    `toml:"interface"`
	Exceptions []Exception `toml:"exceptions"`
}

// Exception overrides the rule's allow/deny outcome for a narrower importer
// and target pair. An empty importer matches any module governed by the rule.
type Exception struct {
	Importer string `toml:"importer"`
	Target   string `toml:"target"`
	Verdict  string `toml:"verdict"`
}

// External checks third-party imports against the dependencies declared in
// the project's manifests. Rename entries map an import module onto its
// distribution package as "module:package".
type External struct {
	Enabled                 bool     `toml:"enabled"`
	Manifests               []string `toml:"manifests"`
	Dependencies            []string `toml:"dependencies"`
	Exclude                 []string `toml:"exclude"`
	Rename                  []string `toml:"rename"`
	Severity                string   `toml:"severity"`
	IncludeDependencyGroups bool     `toml:"include_dependency_groups"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	Address      string `toml:"address"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

const (
	SeverityError = "error"
	SeverityWarn  = "warn"
	SeverityOff   = "off"

	VerdictAllow = "allow"
	VerdictDeny  = "deny"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeConfigNotFound, "config file not found")
		}
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "config file unreadable")
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, "config parse failed")
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateCheck(&cfg); err != nil {
		return nil, err
	}
	if err := validateModules(&cfg); err != nil {
		return nil, err
	}
	if err := validateExternal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindProjectRoot walks from start toward the filesystem root looking for the
// config file.
func FindProjectRoot(start string) (string, error) {
	current, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeConfigNotFound, "cannot resolve start path")
	}
	for {
		if info, err := os.Stat(filepath.Join(current, ConfigFile)); err == nil && !info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", errors.New(errors.CodeConfigNotFound, fmt.Sprintf("no %s found in ancestry of %s", ConfigFile, start))
		}
		current = parent
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.Project.SourceRoots) == 0 {
		cfg.Project.SourceRoots = []string{"."}
	}

	if cfg.Check.Debounce == 0 {
		cfg.Check.Debounce = 500 * time.Millisecond
	}
	if cfg.Check.FileTimeout == 0 {
		cfg.Check.FileTimeout = 10 * time.Second
	}
	if cfg.Check.Workers == 0 {
		cfg.Check.Workers = runtime.GOMAXPROCS(0)
	}

	for i := range cfg.Modules {
		if strings.TrimSpace(cfg.Modules[i].Severity) == "" {
			cfg.Modules[i].Severity = SeverityError
		}
	}

	if len(cfg.External.Manifests) == 0 {
		cfg.External.Manifests = []string{"pyproject.toml", "requirements.txt"}
	}
	if strings.TrimSpace(cfg.External.Severity) == "" {
		cfg.External.Severity = SeverityError
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".boundary/history.db"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "boundary"
	}
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("unsupported config version: %d", cfg.Version))
	}
	return nil
}

func validateCheck(cfg *Config) error {
	if cfg.Check.Workers < 1 {
		return errors.New(errors.CodeConfigInvalid, "check.workers must be positive")
	}
	if cfg.Check.Debounce < 0 || cfg.Check.FileTimeout < 0 {
		return errors.New(errors.CodeConfigInvalid, "check durations must not be negative")
	}
	return nil
}

func validateModules(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Modules))
	for i := range cfg.Modules {
		m := &cfg.Modules[i]
		if strings.TrimSpace(m.Path) == "" {
			return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("modules[%d]: path is required", i))
		}
		if seen[m.Path] {
			return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("duplicate module path: %s", m.Path))
		}
		seen[m.Path] = true

		switch m.Severity {
		case SeverityError, SeverityWarn, SeverityOff:
		default:
			return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("module %s: unknown severity %q", m.Path, m.Severity))
		}

		for j, ex := range m.Exceptions {
			if strings.TrimSpace(ex.Target) == "" {
				return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("module %s: exceptions[%d]: target is required", m.Path, j))
			}
			switch ex.Verdict {
			case VerdictAllow, VerdictDeny:
			default:
				return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("module %s: exceptions[%d]: unknown verdict %q", m.Path, j, ex.Verdict))
			}
		}
	}
	return nil
}

func validateExternal(cfg *Config) error {
	switch cfg.External.Severity {
	case SeverityError, SeverityWarn:
	default:
		return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("external: unknown severity %q", cfg.External.Severity))
	}
	for i, entry := range cfg.External.Rename {
		if !strings.Contains(entry, ":") {
			return errors.New(errors.CodeConfigInvalid, fmt.Sprintf("external: rename[%d] %q must be module:package", i, entry))
		}
	}
	return nil
}
