// Package ui renders resolution progress in the terminal.
package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"vbscope/internal/source"
	"vbscope/internal/state"
)

type progressModel struct {
	title   string
	events  <-chan state.Notification
	spinner spinner.Model
	prog    progress.Model
	items   []moduleItem
	index   map[source.ModuleID]int
	status  string
	agg     state.Stage
	width   int
	height  int
	done    bool
}

type moduleItem struct {
	module source.ModuleID
	stage  state.Stage
	err    string
}

type eventMsg state.Notification
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders module stages as
// notifications arrive. It quits when events is closed.
func NewProgressModel(title string, modules []source.ModuleID, events <-chan state.Notification) tea.Model {
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
		index:   make(map[source.ModuleID]int, len(modules)),
		width:   80,
	}
	for _, id := range modules {
		m.add(id)
	}
	return m
}

func (m *progressModel) add(id source.ModuleID) int {
	if i, ok := m.index[id]; ok {
		return i
	}
	m.items = append(m.items, moduleItem{module: id, stage: state.Pending})
	m.index[id] = len(m.items) - 1
	return len(m.items) - 1
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(state.Notification(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
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
		m.height = msg.Height
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.status != "" {
		header = fmt.Sprintf("%s (%s)", header, m.status)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const stageWidth = 22
	nameWidth := max(m.width-stageWidth-4, 20)
	shown := m.visible()
	for _, i := range shown {
		item := m.items[i]
		label := styleStage(item.stage).Render(fmt.Sprintf("%*s", stageWidth, item.stage.Label()))
		line := fmt.Sprintf("  %s %s", label, truncate(string(item.module), nameWidth))
		if item.err != "" {
			line += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(truncate(item.err, nameWidth))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if hidden := len(m.items) - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "  ... %d more\n", hidden)
	}

	b.WriteString("\n")
	if m.done && m.agg == state.Ready {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render(m.summary()))
	b.WriteString("\n")
	return b.String()
}

// visible picks the rows that fit the terminal: failed modules first, then
// modules still in flight, then the rest, each group in module order.
func (m *progressModel) visible() []int {
	rows := len(m.items)
	if m.height > 0 {
		rows = max(m.height-8, 3)
	}
	if rows >= len(m.items) {
		out := make([]int, len(m.items))
		for i := range out {
			out[i] = i
		}
		return out
	}
	rank := func(s state.Stage) int {
		switch {
		case s.IsFailed():
			return 0
		case s == state.Ready:
			return 2
		}
		return 1
	}
	out := make([]int, 0, rows)
	for want := 0; want <= 2 && len(out) < rows; want++ {
		for i, item := range m.items {
			if rank(item.stage) == want {
				out = append(out, i)
				if len(out) == rows {
					break
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

// summary counts modules per stage, e.g. "3 ready, 1 parsing failed, 2 pending".
func (m *progressModel) summary() string {
	counts := make(map[state.Stage]int)
	for _, item := range m.items {
		counts[item.stage]++
	}
	return state.FormatCounts(counts)
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev state.Notification) tea.Cmd {
	m.agg = ev.Aggregate
	switch {
	case ev.Message != "":
		m.status = ev.Message
	case ev.Module == "":
		m.status = ev.Aggregate.Label()
	}
	if ev.Module != "" {
		i := m.add(ev.Module)
		m.items[i].stage = ev.Stage
		m.items[i].err = ""
		if ev.Err != nil {
			m.items[i].err = ev.Err.Error()
		}
	}
	if len(m.items) == 0 {
		return nil
	}
	total := 0.0
	for _, item := range m.items {
		total += progressFromStage(item.stage)
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func progressFromStage(stage state.Stage) float64 {
	switch stage {
	case state.Parsing:
		return 0.1
	case state.Parsed:
		return 0.3
	case state.ResolvingDeclarations:
		return 0.4
	case state.ResolvedDeclarations:
		return 0.6
	case state.ResolvingReferences:
		return 0.8
	case state.Ready, state.ParsingFailed, state.ResolverError, state.Error:
		return 1.0
	default:
		return 0.0
	}
}

func styleStage(stage state.Stage) lipgloss.Style {
	switch {
	case stage == state.Ready:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case stage.IsFailed():
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case stage == state.Pending:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
