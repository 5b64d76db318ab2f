package ui

// selectors.go provides a table selector for pools.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/thesavant42/scorekeeper/internal/models"
)

// SelectorModel is a single-choice table. selected is -1 when cancelled.
type SelectorModel struct {
	table    table.Model
	title    string
	help     string
	selected int
	quitting bool
}

// NewPoolSelector lists pools with their remaining and origin counts
func NewPoolSelector(pools []models.PoolSummary) SelectorModel {
	columns := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Name", Width: 30},
		{Title: "Left", Width: 6},
		{Title: "Total", Width: 6},
		{Title: "Filter", Width: 18},
	}
	rows := make([]table.Row, len(pools))
	for i, p := range pools {
		rows[i] = table.Row{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			strconv.Itoa(p.Remaining),
			strconv.Itoa(p.OriginCount),
			DescribeFilter(p.Filter),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(TableHeight, len(rows)+1)),
	)
	ApplyTableStyles(&t)
	t.GotoTop()

	return SelectorModel{
		table:    t,
		title:    "Choose a pool",
		help:     "↑/↓: navigate | Enter: select | Esc: cancel",
		selected: -1,
	}
}

func (m SelectorModel) Init() tea.Cmd {
	return nil
}

func (m SelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.selected = -1
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.selected = m.table.Cursor()
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m SelectorModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(RenderTitle(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(RenderDim(m.help))
	return BorderStyle.Render(b.String()) + "\n"
}

// Selected returns the chosen row, or -1 if the user cancelled
func (m SelectorModel) Selected() int {
	return m.selected
}

// RunPoolSelector shows the selector and returns the chosen pool index,
// or -1 if cancelled
func RunPoolSelector(pools []models.PoolSummary) (int, error) {
	p := tea.NewProgram(NewPoolSelector(pools))
	finalModel, err := p.Run()
	if err != nil {
		return -1, fmt.Errorf("selector error: %w", err)
	}
	return finalModel.(SelectorModel).Selected(), nil
}

// DescribeFilter renders a filter compactly, e.g. "60-100% fav"
func DescribeFilter(f models.PoolFilter) string {
	if f.IsEmpty() {
		return "any"
	}
	var parts []string
	if f.MinCompletion != nil || f.MaxCompletion != nil {
		lo, hi := 0, 100
		if f.MinCompletion != nil {
			lo = *f.MinCompletion
		}
		if f.MaxCompletion != nil {
			hi = *f.MaxCompletion
		}
		parts = append(parts, fmt.Sprintf("%d-%d%%", lo, hi))
	}
	if f.Favorite != nil {
		if *f.Favorite {
			parts = append(parts, "fav")
		} else {
			parts = append(parts, "non-fav")
		}
	}
	return strings.Join(parts, " ")
}
