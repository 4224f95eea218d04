package ui

import (
	"tunebridge/internal/models"
	"tunebridge/internal/tasks"
)

// mirrorsFetchedMsg carries the synchronized snapshots that seed the browser.
type mirrorsFetchedMsg struct {
	mirrors []models.MirrorPlaylist
	err     error
}

// progressUpdateMsg relays one engine progress event into the Update loop.
type progressUpdateMsg tasks.ProgressUpdate

// migrateCompleteMsg signals that the migration goroutine has finished.
type migrateCompleteMsg struct {
	report *models.MigrationReport
	err    error
}
