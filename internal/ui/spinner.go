package ui

// spinner.go runs a blocking action behind a bubbletea spinner.

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type actionDoneMsg struct {
	err error
}

// progressMsg replaces the spinner title while the action runs
type progressMsg string

type spinnerModel struct {
	spinner   spinner.Model
	title     string
	action    func(progress func(string)) error
	program   *tea.Program
	done      bool
	cancelled bool
	err       error
}

// ErrCancelled is returned when the user interrupts a spinner with ctrl+c
var ErrCancelled = errors.New("cancelled")

// RunWithSpinner runs action while showing title next to a spinner. The
// action may call progress to update the title. Its error is returned.
//
//	var res models.CrawlResult
//	err := ui.RunWithSpinner("Crawling gallery...", func(progress func(string)) error {
//	    res = client.Crawl(ctx, opts)
//	    return res.Err
//	})
func RunWithSpinner(title string, action func(progress func(string)) error) error {
	m := &spinnerModel{
		spinner: NewAppSpinner(),
		title:   title,
		action:  action,
	}

	p := tea.NewProgram(m)
	m.program = p

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("spinner program error: %w", err)
	}

	final := finalModel.(*spinnerModel)
	if final.cancelled {
		return ErrCancelled
	}
	return final.err
}

func (m *spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runAction())
}

func (m *spinnerModel) runAction() tea.Cmd {
	return func() tea.Msg {
		err := m.action(func(s string) {
			m.program.Send(progressMsg(s))
		})
		return actionDoneMsg{err: err}
	}
}

func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case progressMsg:
		m.title = string(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m *spinnerModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), RenderNormal(m.title))
}
