package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"tunebridge/internal/shared"
	"tunebridge/internal/ui"
)

// TUI launches the interactive terminal UI for browsing and migrating
// mirrored playlists.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	subjectID := cmd.String("subject")

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/tunebridge-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	stack, err := r.connect()
	if err != nil {
		return err
	}
	defer stack.Close()

	model := ui.NewModel(ctx, subjectID, stack.sync, stack.engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
