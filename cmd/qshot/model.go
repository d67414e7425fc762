package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"qshot/qsim"
)

// progressMsg reports how many shots have completed.
type progressMsg struct {
	done  int
	total int
}

// runDoneMsg carries the finished (or aborted) run back to the view.
type runDoneMsg struct {
	res *qsim.Result
	err error
}

// Model is the progress view shown while shots run.
type Model struct {
	name      string
	shots     int
	done      int
	bar       progress.Model
	spin      spinner.Model
	cancel    context.CancelFunc
	canceling bool

	res *qsim.Result
	err error
}

func newModel(name string, shots int, cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		name:   name,
		shots:  shots,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spin:   sp,
		cancel: cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-8, 60), 10)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			// The run stops between shots and reports back with a partial
			// result; quitting happens on runDoneMsg.
			if !m.canceling {
				m.canceling = true
				m.cancel()
			}
		}

	case progressMsg:
		m.done = msg.done

	case runDoneMsg:
		m.res, m.err = msg.res, msg.err
		if m.res != nil {
			m.done = m.res.Completed
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.name))
	sb.WriteString("\n\n")

	percent := 0.0
	if m.shots > 0 {
		percent = float64(m.done) / float64(m.shots)
	}
	fmt.Fprintf(&sb, "%s %s\n", m.spin.View(), m.bar.ViewAs(percent))
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%d / %d shots", m.done, m.shots)))
	sb.WriteString("\n\n")

	if m.canceling {
		sb.WriteString(warnStyle.Render("Canceling after in-flight shots..."))
	} else {
		sb.WriteString(dimStyle.Render("q Cancel"))
	}
	return panelStyle.Render(sb.String()) + "\n"
}

// progressSender throttles progress messages to roughly one per percent so
// large runs do not flood the program's message loop.
func progressSender(p *tea.Program, shots int) func(done, total int) {
	step := max(shots/100, 1)
	return func(done, total int) {
		if done%step == 0 || done == total {
			p.Send(progressMsg{done: done, total: total})
		}
	}
}
