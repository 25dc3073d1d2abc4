package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func runInteractive(job renderJob) error {
	if job.outFile == "-" {
		return fmt.Errorf("interactive mode needs -o, stdout is taken by the UI")
	}

	m := newRenderModel(job)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return err
	}
	return m.err
}

type frameMsg struct {
	frame int
	total int
}

type renderDoneMsg struct {
	err error
}

type renderModel struct {
	job    renderJob
	events chan tea.Msg
	bar    progress.Model

	frame int
	total int
	done  bool
	err   error
}

func newRenderModel(job renderJob) *renderModel {
	return &renderModel{
		job:    job,
		events: make(chan tea.Msg, 16),
		bar:    progress.New(progress.WithDefaultGradient()),
	}
}

func (m *renderModel) Init() tea.Cmd {
	return tea.Batch(m.startRender, m.nextEvent)
}

// startRender kicks the render off in the background; progress arrives
// through the event channel.
func (m *renderModel) startRender() tea.Msg {
	go func() {
		out, closeOut, err := openOutput(m.job.outFile)
		if err != nil {
			m.events <- renderDoneMsg{err: err}
			return
		}
		defer closeOut()

		err = render(m.job, out, func(frame, total int) {
			m.events <- frameMsg{frame: frame, total: total}
		})
		m.events <- renderDoneMsg{err: err}
	}()
	return nil
}

func (m *renderModel) nextEvent() tea.Msg {
	return <-m.events
}

func (m *renderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = msg.frame
		m.total = msg.total
		return m, m.nextEvent

	case renderDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.err = fmt.Errorf("interrupted")
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *renderModel) View() string {
	s := titleStyle.Render("vsjet-render") + "\n\n"
	s += statusStyle.Render(m.job.scriptFile) + " -> " + statusStyle.Render(m.job.outFile) + "\n\n"

	if m.total > 0 {
		s += m.bar.ViewAs(float64(m.frame)/float64(m.total)) + "\n"
		s += fmt.Sprintf("frame %d/%d\n", m.frame, m.total)
	} else {
		s += statusStyle.Render("running script...") + "\n"
	}

	if m.done {
		if m.err != nil {
			s += "\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n"
		} else {
			s += "\n" + doneStyle.Render("done") + "\n"
		}
	} else {
		s += "\n" + helpStyle.Render("q to abort") + "\n"
	}
	return s
}
