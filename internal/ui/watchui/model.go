package watchui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"boundary/internal/core/config"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

// violationItem is one published diagnostic pinned to its file.
type violationItem struct {
	File     string
	Line     int
	Severity string
	Kind     string
	Message  string
}

// ModuleSummary is one row of the module panel.
type ModuleSummary struct {
	Name       string
	Files      int
	Deps       int
	Dependents int
}

type panelMode int

const (
	panelViolations panelMode = iota
	panelModules
)

// refreshMsg carries a full snapshot of the current check state.
type refreshMsg struct {
	violations []violationItem
	modules    []ModuleSummary
	state      string
	fileCount  int
	edgeCount  int
}

type model struct {
	violationList list.Model
	moduleList    list.Model
	mode          panelMode

	violations []violationItem
	modules    []ModuleSummary
	state      string
	fileCount  int
	edgeCount  int
	lastUpdate time.Time
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.mode == panelViolations {
				m.mode = panelModules
			} else {
				m.mode = panelViolations
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.violationList.SetSize(width, height)
		m.moduleList.SetSize(width, height)
	case refreshMsg:
		m.violations = msg.violations
		m.modules = msg.modules
		m.state = msg.state
		m.fileCount = msg.fileCount
		m.edgeCount = msg.edgeCount
		m.lastUpdate = time.Now()

		items := make([]list.Item, 0, len(m.violations))
		for _, v := range m.violations {
			var title string
			if v.Severity == config.SeverityWarn {
				title = warnStyle.Render(v.Kind)
			} else {
				title = errorStyle.Render(v.Kind)
			}
			items = append(items, item{
				title: title,
				desc:  fmt.Sprintf("%s:%d %s", v.File, v.Line, v.Message),
			})
		}
		m.violationList.SetItems(items)

		moduleItems := make([]list.Item, 0, len(m.modules))
		for _, mod := range m.modules {
			moduleItems = append(moduleItems, item{
				title: mod.Name,
				desc: fmt.Sprintf("files=%d deps=%d imported_by=%d",
					mod.Files, mod.Deps, mod.Dependents),
			})
		}
		m.moduleList.SetItems(moduleItems)
	}

	var cmd tea.Cmd
	if m.mode == panelViolations {
		m.violationList, cmd = m.violationList.Update(msg)
	} else {
		m.moduleList, cmd = m.moduleList.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("%s | last update %s | %d files | %d edges",
		m.state, m.lastUpdate.Format("15:04:05"), m.fileCount, m.edgeCount))

	var summary string
	if len(m.violations) == 0 {
		summary = successStyle.Render("boundaries clean")
	} else {
		errs, warns := 0, 0
		for _, v := range m.violations {
			if v.Severity == config.SeverityWarn {
				warns++
			} else {
				errs++
			}
		}
		summary = fmt.Sprintf("%s | %s",
			errorStyle.Render(fmt.Sprintf("%d errors", errs)),
			warnStyle.Render(fmt.Sprintf("%d warnings", warns)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Boundary Monitor"), status, summary)
	help := statusStyle.Render("tab: switch panel | /: filter | q: quit")

	body := m.violationList.View()
	if m.mode == panelModules {
		body = m.moduleList.View()
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func initialModel() model {
	violationList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	violationList.Title = "Violations"
	violationList.SetShowStatusBar(false)
	violationList.SetFilteringEnabled(true)

	moduleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	moduleList.Title = "Modules"
	moduleList.SetShowStatusBar(false)
	moduleList.SetFilteringEnabled(true)

	return model{
		violationList: violationList,
		moduleList:    moduleList,
		mode:          panelViolations,
		state:         "starting",
		lastUpdate:    time.Now(),
	}
}
