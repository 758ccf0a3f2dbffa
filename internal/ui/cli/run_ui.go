package cli

import (
	"context"
	coreapp "depgrapher/internal/core/app"
	"depgrapher/internal/data/history"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

// runUI shows the last result in the browser. When watch is set it runs in
// the background and every re-run refreshes the view.
func runUI(ctx context.Context, application *coreapp.App, trend *history.TrendReport, watch func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(initialModel(trend), tea.WithAltScreen(), tea.WithContext(ctx))
	application.SetUpdateHandler(func(r *coreapp.Result) {
		p.Send(updateMsg{result: r})
	})
	go p.Send(updateMsg{result: application.Last()})

	if watch != nil {
		go func() {
			if err := watch(ctx); err != nil {
				slog.Error("watch stopped", "error", err)
			}
		}()
	}

	_, err := p.Run()
	if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
