// Package ui renders the progress of a compilation in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"tessera/internal/compiler"
)

type progressModel struct {
	title   string
	events  <-chan compiler.Event
	spinner spinner.Model
	prog    progress.Model
	units   []unit
	index   map[string]int
	phase   string
	width   int
	done    bool
	failed  bool
}

type unit struct {
	name   string
	status string
	stage  compiler.Stage
	final  bool
}

type eventMsg compiler.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model listing units (sources and
// referenced assemblies) while the events of one compilation arrive. The
// model quits when events is closed.
func NewProgressModel(title string, units []string, events <-chan compiler.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int, len(units)),
		width:   80,
	}
	for _, u := range units {
		m.index[u] = len(m.units)
		m.units = append(m.units, unit{name: u, status: "queued"})
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(compiler.Event(msg)), m.listen())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	header := m.title
	if m.phase != "" {
		header = fmt.Sprintf("%s (%s)", header, m.phase)
	}
	switch {
	case m.done && m.failed:
		header = "failed: " + header
	case m.done:
		header = "done: " + header
	default:
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Render(header))
	b.WriteString("\n\n")
	nameWidth := max(m.width-16, 20)
	for _, u := range m.units {
		status := statusStyle(u.status).Render(fmt.Sprintf("%12s", u.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(u.name, nameWidth))
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

// apply records ev and returns the command animating the bar.
func (m *progressModel) apply(ev compiler.Event) tea.Cmd {
	if ev.Status == compiler.StatusError {
		m.failed = true
	}
	if ev.Unit == "" {
		if ev.Status == compiler.StatusWorking {
			m.phase = ev.Stage.String()
		}
		return m.prog.SetPercent(m.percent(ev))
	}
	idx, ok := m.index[ev.Unit]
	if !ok {
		return nil
	}
	u := &m.units[idx]
	u.stage = ev.Stage
	switch ev.Status {
	case compiler.StatusError:
		u.status, u.final = "error", true
	case compiler.StatusDone:
		u.status, u.final = "done", true
	default:
		u.status = ev.Stage.String()
	}
	return m.prog.SetPercent(m.percent(ev))
}

// percent weighs whole-compilation phases and per-unit progress equally.
func (m *progressModel) percent(ev compiler.Event) float64 {
	phase := float64(ev.Stage) / float64(compiler.StageWrite)
	if ev.Unit != "" || len(m.units) == 0 {
		return phase
	}
	finished := 0
	for _, u := range m.units {
		if u.final {
			finished++
		}
	}
	return (phase + float64(finished)/float64(len(m.units))) / 2
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "queued":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
