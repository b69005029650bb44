package cli

import (
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JaimeStill/microtravel/internal/batch"
)

// Work runs a batch, calling send for every progress transition.
type Work func(send func(batch.Progress)) (*batch.Report, error)

// TrackOptions selects how Track renders progress.
type TrackOptions struct {
	// Plain writes one line per transition instead of running a terminal UI.
	Plain  bool
	Input  io.Reader
	Output io.Writer
	// Cancel is called when the user interrupts the terminal UI.
	Cancel func()
}

// Track runs work while rendering its progress and returns work's result.
func Track(initial batch.Progress, work Work, opts TrackOptions) (*batch.Report, error) {
	if opts.Plain {
		return work(func(p batch.Progress) {
			fmt.Fprintln(opts.Output, Line(p))
		})
	}

	program := tea.NewProgram(
		NewModel(initial, opts.Cancel),
		tea.WithInput(opts.Input),
		tea.WithOutput(opts.Output),
	)

	go func() {
		report, err := work(func(p batch.Progress) {
			program.Send(ProgressMsg{Progress: p})
		})
		program.Send(DoneMsg{Report: report, Err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("progress display: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return nil, errors.New("progress display returned unexpected model")
	}
	return m.Result()
}

// Line formats p for plain output.
func Line(p batch.Progress) string {
	s := fmt.Sprintf("%s %s %d/%d", p.BatchID, p.Operation, p.Current, p.Total)
	if p.Failed > 0 {
		s += fmt.Sprintf(" failed=%d", p.Failed)
	}
	switch {
	case p.Error != "":
		s += " error=" + p.Error
	case p.Completed:
		s += " completed"
	}
	return s
}
