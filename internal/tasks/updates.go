package tasks

import (
	"fmt"

	"tunebridge/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchRemote Phase = iota
	Snapshot
	CreatePlaylist
	MatchTracks
	Finalize
)

func (p Phase) String() string {
	switch p {
	case FetchRemote:
		return "fetch_remote"
	case Snapshot:
		return "snapshot"
	case CreatePlaylist:
		return "create_playlist"
	case MatchTracks:
		return "match_tracks"
	case Finalize:
		return "finalize"
	default:
		return ""
	}
}

func fetchRemoteUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Step:    1,
		Total:   1,
		Message: "Fetching playlists from the provider...",
	}
}

func snapshotUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Snapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Snapshotting: %s", step, total, name),
	}
}

func snapshotFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Snapshot,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func matchTrackUpdate(step, total int, track models.RemoteTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, track.Name),
	}
}

func matchFailedUpdate(step, total int, track models.RemoteTrack, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, track.Name, reason),
	}
}

func finalizeUpdate(report *models.MigrationReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finalize,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Migrated %d/%d tracks", report.MigratedCount, report.TotalTracks),
		Data:    report,
	}
}
