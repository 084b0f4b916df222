package watchui

import (
	"context"
	"sort"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"boundary/internal/core/publish"
)

// Info is the non-diagnostic half of a panel refresh, supplied by the caller.
type Info struct {
	State     string
	Modules   []ModuleSummary
	FileCount int
	EdgeCount int
}

// InfoFunc snapshots graph and lifecycle state for the header and module panel.
type InfoFunc func() Info

// Panel is a publish.Sink that mirrors every diagnostic update into a live
// terminal view. Run blocks until the user quits.
type Panel struct {
	info InfoFunc

	mu      sync.Mutex
	files   map[string][]publish.Diagnostic
	program *tea.Program
}

func NewPanel(info InfoFunc) *Panel {
	return &Panel{
		info:  info,
		files: make(map[string][]publish.Diagnostic),
	}
}

// Publish implements publish.Sink. An empty set retracts the file and the
// view refreshes either way.
func (p *Panel) Publish(ctx context.Context, file string, diags []publish.Diagnostic) error {
	p.mu.Lock()
	if len(diags) == 0 {
		delete(p.files, file)
	} else {
		p.files[file] = diags
	}
	msg := p.snapshotLocked()
	program := p.program
	p.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
	return nil
}

func (p *Panel) snapshotLocked() refreshMsg {
	paths := make([]string, 0, len(p.files))
	for f := range p.files {
		paths = append(paths, f)
	}
	sort.Strings(paths)

	var violations []violationItem
	for _, f := range paths {
		for _, d := range p.files[f] {
			violations = append(violations, violationItem{
				File:     f,
				Line:     d.Range.Line,
				Severity: d.Severity,
				Kind:     d.Kind,
				Message:  d.Message,
			})
		}
	}

	info := p.info()
	return refreshMsg{
		violations: violations,
		modules:    info.Modules,
		state:      info.State,
		fileCount:  info.FileCount,
		edgeCount:  info.EdgeCount,
	}
}

// Run starts the terminal program and blocks until it exits.
func (p *Panel) Run() error {
	program := tea.NewProgram(initialModel(), tea.WithAltScreen())

	p.mu.Lock()
	p.program = program
	initial := p.snapshotLocked()
	p.mu.Unlock()

	go program.Send(initial)

	_, err := program.Run()
	return err
}

// Quit stops the terminal program, unblocking Run.
func (p *Panel) Quit() {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()
	if program != nil {
		program.Quit()
	}
}
