package rules

import (
	"fmt"

	"github.com/gobwas/glob"

	"boundary/internal/core/config"
	"boundary/internal/core/errors"
	"boundary/internal/engine/graph"
	"boundary/internal/engine/parser"
	"boundary/internal/shared/util"
)

// Violation is one rule breach at a concrete import site.
type Violation struct {
	File     string
	Location parser.Location
	From     string
	To       string
	Rule     string
	Kind     string
	Severity string
	Message  string
}

const (
	KindBoundary  = "boundary"
	KindInterface = "interface"
	KindCycle     = "cycle"
)

type rule struct {
	path          string
	allowDeclared bool
	allow         []string
	deny          []string
	severity      string
	iface         []glob.Glob
	exceptions    []exception
}

type exception struct {
	importer string
	target   string
	verdict  string
}

// Engine evaluates declared boundary rules against module edges. A compiled
// engine is an immutable snapshot; config reloads build a new one.
type Engine struct {
	rules map[string]*rule
}

func NewEngine(modules []config.Module) (*Engine, error) {
	e := &Engine{rules: make(map[string]*rule, len(modules))}
	for _, m := range modules {
		r := &rule{
			path:          m.Path,
			allowDeclared: m.Allow != nil,
			allow:         m.Allow,
			deny:          m.Deny,
			severity:      m.Severity,
		}
		for _, pat := range m.Interface {
			g, err := glob.Compile(pat)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeConfigInvalid, fmt.Sprintf("module %s: bad interface pattern %q", m.Path, pat))
			}
			r.iface = append(r.iface, g)
		}
		for _, ex := range m.Exceptions {
			r.exceptions = append(r.exceptions, exception{
				importer: ex.Importer,
				target:   ex.Target,
				verdict:  ex.Verdict,
			})
		}
		e.rules[m.Path] = r
	}
	return e, nil
}

// ModulePaths returns the declared rule paths; they double as the module
// index the resolver matches files and imports against.
func (e *Engine) ModulePaths() []string {
	out := make([]string, 0, len(e.rules))
	for p := range e.rules {
		out = append(out, p)
	}
	return out
}

// ruleFor returns the deepest declared rule governing the module, walking its
// dotted ancestry. Rule paths are unique, so the deepest match is unique too.
func (e *Engine) ruleFor(module string) *rule {
	for _, anc := range util.ModuleAncestry(module) {
		if r, ok := e.rules[anc]; ok {
			return r
		}
	}
	return nil
}

// Evaluate checks one module edge and returns a violation per occurrence when
// the governing rule denies it, plus interface violations for member imports
// that bypass the target's declared interface. Modules with no rule anywhere
// in their ancestry import freely.
func (e *Engine) Evaluate(edge graph.Edge) []Violation {
	var out []Violation

	if r := e.ruleFor(edge.From); r != nil && r.severity != config.SeverityOff {
		if reason, denied := r.denies(edge.From, edge.To); denied {
			for _, occ := range edge.Occurrences {
				out = append(out, Violation{
					File:     occ.File,
					Location: occ.Location,
					From:     edge.From,
					To:       edge.To,
					Rule:     r.path,
					Kind:     KindBoundary,
					Severity: r.severity,
					Message:  reason,
				})
			}
		}
	}

	out = append(out, e.evaluateInterface(edge)...)
	return out
}

// denies applies the rule's precedence: exceptions first, then explicit deny,
// then allow-list membership when an allow-list is declared.
func (r *rule) denies(from, to string) (string, bool) {
	for _, ex := range r.exceptions {
		if ex.importer != "" && !util.HasModulePrefix(from, ex.importer) {
			continue
		}
		if !util.HasModulePrefix(to, ex.target) {
			continue
		}
		if ex.verdict == config.VerdictAllow {
			return "", false
		}
		return fmt.Sprintf("import of %q from %q is denied by an exception of rule %q", to, from, r.path), true
	}

	for _, d := range r.deny {
		if util.HasModulePrefix(to, d) {
			return fmt.Sprintf("import of %q is denied by rule %q", to, r.path), true
		}
	}

	if r.allowDeclared {
		for _, a := range r.allow {
			if util.HasModulePrefix(to, a) {
				return "", false
			}
		}
		return fmt.Sprintf("%q is not in the allow-list of rule %q", to, r.path), true
	}

	return "", false
}

// evaluateInterface checks member imports against the target module's
// declared public interface.
func (e *Engine) evaluateInterface(edge graph.Edge) []Violation {
	r := e.ruleFor(edge.To)
	if r == nil || r.path != edge.To || len(r.iface) == 0 || r.severity == config.SeverityOff {
		return nil
	}

	var out []Violation
	for _, occ := range edge.Occurrences {
		for _, item := range occ.Items {
			if r.exposes(item) {
				continue
			}
			out = append(out, Violation{
				File:     occ.File,
				Location: occ.Location,
				From:     edge.From,
				To:       edge.To,
				Rule:     r.path,
				Kind:     KindInterface,
				Severity: r.severity,
				Message:  fmt.Sprintf("%q is not part of the public interface of %q", item, edge.To),
			})
		}
	}
	return out
}

func (r *rule) exposes(item string) bool {
	for _, p := range r.iface {
		if p.Match(item) {
			return true
		}
	}
	return false
}

// CycleViolations converts detected import cycles into violations, one per
// cycle, anchored at the cycle's first module.
func CycleViolations(cycles [][]string, g *graph.Graph) []Violation {
	var out []Violation
	for _, cycle := range cycles {
		if len(cycle) == 0 {
			continue
		}
		next := cycle[1%len(cycle)]
		var file string
		var loc parser.Location
		for _, e := range g.EdgesFrom(cycle[0]) {
			if e.To == next && len(e.Occurrences) > 0 {
				file = e.Occurrences[0].File
				loc = e.Occurrences[0].Location
				break
			}
		}
		out = append(out, Violation{
			File:     file,
			Location: loc,
			From:     cycle[0],
			To:       next,
			Rule:     "forbid_cycles",
			Kind:     KindCycle,
			Severity: config.SeverityError,
			Message:  fmt.Sprintf("import cycle: %s", joinCycle(cycle)),
		})
	}
	return out
}

func joinCycle(cycle []string) string {
	out := ""
	for _, m := range cycle {
		out += m + " -> "
	}
	return out + cycle[0]
}
