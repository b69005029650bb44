// Package cli renders batch progress in the terminal and handles the
// interactive parts of the mtbatch command.
package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaimeStill/microtravel/internal/batch"
)

const (
	defaultBarWidth = 40
	minBarWidth     = 10
)

// ─── messages ────────────────────────────────────────────────────────────────

// ProgressMsg carries a progress transition into the program.
type ProgressMsg struct {
	Progress batch.Progress
}

// DoneMsg ends the program with the batch result.
type DoneMsg struct {
	Report *batch.Report
	Err    error
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model draws a progress bar for one batch. Pressing q or ctrl+c asks the
// batch to stop; the program keeps running until DoneMsg arrives so the
// final state is always shown.
type Model struct {
	progress   batch.Progress
	report     *batch.Report
	err        error
	cancel     func()
	cancelling bool
	done       bool
	width      int
}

// NewModel starts from initial and calls cancel when the user interrupts.
func NewModel(initial batch.Progress, cancel func()) Model {
	return Model{
		progress: initial,
		cancel:   cancel,
		width:    defaultBarWidth,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(minBarWidth, min(defaultBarWidth, msg.Width-24))

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}

	case ProgressMsg:
		m.progress = msg.Progress

	case DoneMsg:
		m.report = msg.Report
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(Title.Render(string(m.progress.Operation)))
	b.WriteString(Muted.Render(" " + m.progress.BatchID))
	b.WriteString("\n")

	b.WriteString(Bar(m.progress.Current, m.progress.Total, m.width))
	fmt.Fprintf(&b, " %d/%d", m.progress.Current, m.progress.Total)
	if m.progress.Failed > 0 {
		b.WriteString(Hot.Render(fmt.Sprintf("  %d failed", m.progress.Failed)))
	}
	b.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(Danger.Render(m.err.Error()))
	case m.done && m.report != nil:
		b.WriteString(Success.Render(fmt.Sprintf("%d succeeded", m.report.Succeeded)))
		if m.report.Artifact != nil {
			b.WriteString(Muted.Render("  " + m.report.Artifact.Name))
		}
	case m.cancelling:
		b.WriteString(Hot.Render("stopping after current item..."))
	default:
		b.WriteString(Muted.Render("q to stop"))
	}
	b.WriteString("\n")

	return b.String()
}

// Progress returns the last progress the model received.
func (m Model) Progress() batch.Progress {
	return m.progress
}

// Result returns the batch report and error once DoneMsg has arrived.
func (m Model) Result() (*batch.Report, error) {
	return m.report, m.err
}

// Bar renders a width-cell bar filled in proportion to current/total.
func Bar(current, total, width int) string {
	if width <= 0 {
		return ""
	}
	n := 0
	if total > 0 {
		n = min(width, current*width/total)
	}
	return filled.Render(strings.Repeat("█", n)) + empty.Render(strings.Repeat("░", width-n))
}
