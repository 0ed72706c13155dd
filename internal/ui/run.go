package ui

import (
	"context"
	"errors"
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/rowpick/pkg/logger"
	"github.com/oakwood-commons/rowpick/pkg/picker"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

// Options configure an interactive run.
type Options struct {
	NoColor bool
	// Theme overrides DefaultTheme.
	Theme *Theme
	// Keys overrides DefaultKeyBindings.
	Keys KeyBindings
	// Width/height of 0 use the terminal size.
	Width  int
	Height int
	// ProgramOptions are passed to tea.NewProgram (e.g. custom IO).
	ProgramOptions []tea.ProgramOption
}

// Result is the outcome of an interactive run.
type Result struct {
	Rows      []tabular.Row
	Confirmed bool
}

// Run builds p, shows it until the user confirms or cancels, and hides it
// again. events should be the FilterEvents whose Notify was registered with
// picker.WithOnFilterChange, or nil.
func Run(ctx context.Context, p *picker.Picker, events *FilterEvents, opts Options) (Result, error) {
	if err := p.Build(ctx); err != nil {
		return Result{}, err
	}
	defer p.Hide()

	m := NewPickerModel(ctx, p, events, opts)
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Width > 0 && opts.Height > 0 {
		progOpts = append(progOpts, tea.WithWindowSize(opts.Width, opts.Height))
	}
	progOpts = append(progOpts, opts.ProgramOptions...)

	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil && !errors.Is(err, tea.ErrInterrupted) {
		return Result{}, fmt.Errorf("running picker: %w", err)
	}
	fm, ok := final.(*PickerModel)
	if !ok || fm == nil || !fm.Confirmed() {
		logger.FromContext(ctx).V(1).Info("picker cancelled")
		return Result{}, nil
	}
	return Result{Rows: fm.Result(), Confirmed: true}, nil
}
