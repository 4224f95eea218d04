package main

import (
	"context"
	"sync"

	"github.com/urfave/cli/v3"

	"tunebridge/internal/tasks"
)

// Sync refreshes the subject's playlist mirror and prints the result.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	subjectID := cmd.String("subject")

	stack, err := r.connect()
	if err != nil {
		return err
	}
	defer stack.Close()

	progress := make(chan tasks.ProgressUpdate, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	mirrors, runErr := stack.sync.RefreshMirror(ctx, subjectID, progress)
	close(progress)
	wg.Wait()

	if runErr != nil {
		return runErr
	}

	if cmd.Bool("json") {
		return r.writeJSON(mirrors, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Mirrored Playlists")
	for _, mirror := range mirrors {
		status := " "
		if mirror.Migrated {
			status = "✓"
		}
		r.writePlain("[%s] %s (%d tracks) id=%s\n", status, mirror.Name, mirror.TotalTracks, mirror.RemoteID)
	}
	return r.writePlainln("%d playlists mirrored for %s", len(mirrors), subjectID)
}
