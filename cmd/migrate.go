package main

import (
	"context"
	"sync"

	"github.com/urfave/cli/v3"

	"tunebridge/internal/tasks"
)

// Migrate converts one mirrored playlist into a local catalog playlist.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	subjectID := cmd.String("subject")
	remoteID := cmd.String("id")

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

	report, runErr := stack.engine.Migrate(ctx, subjectID, remoteID, progress)
	close(progress)
	wg.Wait()

	if runErr != nil {
		return runErr
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Migration Report")
	r.writePlain("Playlist: %s\n", report.PlaylistID)
	r.writePlain("Migrated: %d/%d\n", report.MigratedCount, report.TotalTracks)
	for _, failed := range report.Failed {
		r.writePlain("✗ %s (%s)\n", failed.SourceName, failed.Reason)
	}
	return nil
}
