package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/store"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpText      = "↑/↓ move · ←/→ page · g/G first/last · s sort · S order · / filter · c clear · r refresh · q quit"
)

const maxColumnWidth = 32

type refreshedMsg struct{ err error }

// model renders a list state as a table. Mutations are applied with
// NoRefresh and the refresh runs as a tea.Cmd.
type model struct {
	ctx    context.Context
	state  *list.State[store.Record]
	title  string
	cursor int
	sortAt int // index into sortable visible properties
	order  list.SortOrder

	filtering bool
	input     string
	err       error
	loading   bool
}

func newModel(ctx context.Context, title string, state *list.State[store.Record]) model {
	return model{ctx: ctx, state: state, title: title, sortAt: -1}
}

func (m model) Init() tea.Cmd { return m.refresh() }

func (m model) refresh() tea.Cmd {
	state, ctx := m.state, m.ctx
	return func() tea.Msg {
		_, err := state.Refresh(ctx)
		return refreshedMsg{err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshedMsg:
		m.loading = false
		m.err = msg.err
		if n := len(m.state.Data()); m.cursor >= n {
			m.cursor = max(n-1, 0)
		}
		return m, nil
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	hold := list.NoRefresh()
	var err error
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.state.Data())-1 {
			m.cursor++
		}
		return m, nil
	case "right", "n":
		err = m.state.NextPage(m.ctx, hold)
	case "left", "p":
		err = m.state.PreviousPage(m.ctx, hold)
	case "g":
		err = m.state.FirstPage(m.ctx, hold)
	case "G":
		err = m.state.LastPage(m.ctx, hold)
	case "s":
		sortable := sortablePaths(m.state.Properties())
		if len(sortable) == 0 {
			return m, nil
		}
		m.sortAt = (m.sortAt + 1) % len(sortable)
		if err = m.state.ClearSorting(m.ctx, hold); err == nil {
			err = m.state.Sort(m.ctx, sortable[m.sortAt], m.order, hold)
		}
	case "S":
		if m.order == list.Asc {
			m.order = list.Desc
		} else {
			m.order = list.Asc
		}
		sortable := sortablePaths(m.state.Properties())
		if m.sortAt < 0 || m.sortAt >= len(sortable) {
			return m, nil
		}
		err = m.state.Sort(m.ctx, sortable[m.sortAt], m.order, hold)
	case "/":
		m.filtering = true
		m.input = ""
		return m, nil
	case "c":
		m.sortAt = -1
		if err = m.state.ClearSorting(m.ctx, hold); err == nil {
			err = m.state.ClearFiltering(m.ctx, hold)
		}
	case "r":
	default:
		return m, nil
	}
	if err != nil {
		m.err = err
		return m, nil
	}
	m.loading = true
	return m, m.refresh()
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		path := filterPath(m.state.Properties())
		if path == "" {
			m.err = fmt.Errorf("no filterable text column on %s", m.title)
			return m, nil
		}
		hold := list.NoRefresh()
		err := m.state.ClearFiltering(m.ctx, hold)
		if err == nil && m.input != "" {
			err = m.state.AddFilter(m.ctx, list.Filter{Path: path, Operator: list.OpContains, Value: m.input}, hold)
		}
		if err == nil {
			err = m.state.FirstPage(m.ctx, hold)
		}
		if err != nil {
			m.err = err
			return m, nil
		}
		m.loading = true
		return m, m.refresh()
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	props := m.state.Properties()
	rows := m.state.Data()

	widths := make([]int, len(props))
	for i, p := range props {
		widths[i] = lipgloss.Width(p.Label)
	}
	cells := make([][]string, len(rows))
	for r, rec := range rows {
		cells[r] = make([]string, len(props))
		for i, p := range props {
			c := truncate(cell(rec, p), maxColumnWidth)
			cells[r][i] = c
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	header := make([]string, len(props))
	for i, p := range props {
		label := p.Label
		if sortablePathAt(props, m.sortAt) == p.Path {
			label += map[list.SortOrder]string{list.Asc: " ▲", list.Desc: " ▼"}[m.order]
		}
		header[i] = pad(label, widths[i]+2)
	}
	b.WriteString(headerStyle.Render(strings.Join(header, " ")))
	b.WriteString("\n")

	for r, row := range cells {
		line := make([]string, len(row))
		for i, c := range row {
			line[i] = pad(c, widths[i]+2)
		}
		text := strings.Join(line, " ")
		if r == m.cursor {
			text = selectedStyle.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	if len(rows) == 0 {
		b.WriteString(statusStyle.Render("  no records"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status()))
	b.WriteString("\n")
	if m.filtering {
		b.WriteString("filter: " + m.input + "█\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(helpText))
	return b.String()
}

func (m model) status() string {
	var parts []string
	if p, ok := m.state.Paging(); ok {
		parts = append(parts, fmt.Sprintf("page %d/%d · %d records", p.Page, max(p.NumPages, 1), p.NumItems))
	}
	for _, f := range m.state.Filters() {
		parts = append(parts, fmt.Sprintf("%s %s %v", f.Path, f.Operator, f.Value))
	}
	if m.loading || m.state.IsRefreshing() {
		parts = append(parts, "loading…")
	}
	return strings.Join(parts, " · ")
}

func sortablePaths(props []screen.PropertyDescription) []string {
	var out []string
	for _, p := range props {
		if p.Sortable {
			out = append(out, p.Path)
		}
	}
	return out
}

func sortablePathAt(props []screen.PropertyDescription, i int) string {
	paths := sortablePaths(props)
	if i < 0 || i >= len(paths) {
		return ""
	}
	return paths[i]
}

// filterPath picks the first visible filterable text attribute.
func filterPath(props []screen.PropertyDescription) string {
	for _, p := range props {
		if p.Filterable && p.IsAttribute() && (p.Type == "string" || p.Type == "text") {
			return p.Path
		}
	}
	return ""
}

func cell(rec store.Record, p screen.PropertyDescription) string {
	v := rec[p.Path]
	if p.IsAssociation() {
		v = rec[p.Path+"_id"]
	}
	switch v := v.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Local().Format(time.DateOnly)
	case float64:
		return fmt.Sprintf("%.1f", v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case string:
		if p.IsAssociation() && len(v) > 8 {
			return v[:8]
		}
		return strings.ReplaceAll(v, "\n", " ")
	default:
		return fmt.Sprint(v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func pad(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
