// package tasks implements the long-running operations against the remote
// provider: mirroring a subject's playlists into local snapshots and
// migrating a snapshot into a local playlist backed by the catalog.
//
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"tunebridge/internal/catalog"
	"tunebridge/internal/models"
	"tunebridge/internal/provider"
	"tunebridge/internal/shared"
)

// TokenSource yields a live provider access token for a subject.
type TokenSource interface {
	AccessToken(ctx context.Context, subjectID string) (string, error)
}

// RemoteAPI is the read-only slice of the provider client the tasks need.
type RemoteAPI interface {
	Playlists(ctx context.Context, token string) ([]provider.SimplePlaylist, error)
	Playlist(ctx context.Context, token, id string) (*provider.Playlist, error)
}

// Searcher is the slice of the catalog client used for track matching.
type Searcher interface {
	SearchSongs(ctx context.Context, query string) (catalog.Results[catalog.Song], error)
}

// MirrorStore persists remote playlist snapshots.
type MirrorStore interface {
	Upsert(mirror *models.MirrorPlaylist) error
	Get(subjectID, remoteID string) (*models.MirrorPlaylist, error)
	ListBySubject(subjectID string) ([]models.MirrorPlaylist, error)
	MarkMigrated(subjectID, remoteID, playlistID string) error
}

// PlaylistStore persists local playlists.
type PlaylistStore interface {
	Create(playlist *models.Playlist) error
	GetBySourceRemoteID(subjectID, remoteID string) (*models.Playlist, error)
	AddSong(playlistID, songID string) error
}

// SongStore resolves catalog songs to local records.
type SongStore interface {
	FindOrCreate(song *models.Song) (*models.Song, error)
}

// Matcher picks the catalog song to use for a remote track, or nil when none
// of the results is acceptable.
type Matcher interface {
	Match(track models.RemoteTrack, results []catalog.Song) *catalog.Song
}

// FirstMatch takes the catalog's top-ranked result as-is.
type FirstMatch struct{}

func (FirstMatch) Match(_ models.RemoteTrack, results []catalog.Song) *catalog.Song {
	if len(results) == 0 {
		return nil
	}
	return &results[0]
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Synchronizer refreshes a subject's local mirror of their remote playlists.
type Synchronizer struct {
	tokens    TokenSource
	remote    RemoteAPI
	mirrors   MirrorStore
	playlists PlaylistStore
	logger    *log.Logger
}

// NewSynchronizer creates a Synchronizer with the provided collaborators.
func NewSynchronizer(tokens TokenSource, remote RemoteAPI, mirrors MirrorStore, playlists PlaylistStore, logger *log.Logger) *Synchronizer {
	return &Synchronizer{
		tokens:    tokens,
		remote:    remote,
		mirrors:   mirrors,
		playlists: playlists,
		logger:    logger,
	}
}

// RefreshMirror replaces the subject's playlist snapshots with the current
// remote state and returns the full refreshed mirror. A playlist whose detail
// fetch fails is logged and skipped; its stale snapshot, if any, survives.
// Migrated flags are re-derived from local playlists on every pass.
func (s *Synchronizer) RefreshMirror(ctx context.Context, subjectID string, progress chan<- ProgressUpdate) ([]models.MirrorPlaylist, error) {
	token, err := s.tokens.AccessToken(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchRemoteUpdate())

	summaries, err := s.remote.Playlists(ctx, token)
	if err != nil {
		return nil, err
	}

	total := len(summaries)
	for i, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sendProgress(progress, snapshotUpdate(i+1, total, summary.Name))

		detail, err := s.remote.Playlist(ctx, token, summary.ID)
		if err != nil {
			s.logger.Warn("skipping playlist, detail fetch failed", "remote_id", summary.ID, "name", summary.Name, "error", err)
			sendProgress(progress, snapshotFailedUpdate(i+1, total, summary.Name, err))
			continue
		}

		mirror := snapshotOf(subjectID, summary, detail)

		if migrated, err := s.playlists.GetBySourceRemoteID(subjectID, summary.ID); err == nil {
			mirror.Migrated = true
			mirror.MigratedPlaylistID = migrated.ID
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}

		if err := s.mirrors.Upsert(mirror); err != nil {
			return nil, err
		}
	}

	return s.mirrors.ListBySubject(subjectID)
}

// snapshotOf builds a snapshot from the provider's playlist objects. Null
// track entries (removed or region-locked tracks) are dropped.
func snapshotOf(subjectID string, summary provider.SimplePlaylist, detail *provider.Playlist) *models.MirrorPlaylist {
	tracks := make([]models.RemoteTrack, 0, len(detail.Tracks.Items))
	for _, item := range detail.Tracks.Items {
		if item.Track == nil {
			continue
		}
		artists := make([]string, 0, len(item.Track.Artists))
		for _, artist := range item.Track.Artists {
			artists = append(artists, artist.Name)
		}
		tracks = append(tracks, models.RemoteTrack{
			RemoteID:   item.Track.ID,
			Name:       item.Track.Name,
			Artists:    artists,
			Album:      item.Track.Album.Name,
			DurationMS: item.Track.DurationMS,
			PreviewURL: item.Track.PreviewURL,
		})
	}

	imageURL := ""
	if len(detail.Images) > 0 {
		imageURL = detail.Images[0].URL
	}

	return &models.MirrorPlaylist{
		SubjectID:   subjectID,
		RemoteID:    summary.ID,
		Name:        detail.Name,
		Description: detail.Description,
		ImageURL:    imageURL,
		TotalTracks: len(tracks),
		Tracks:      tracks,
	}
}

// Engine migrates one playlist snapshot into a local playlist by matching
// each remote track against the catalog.
type Engine struct {
	mirrors   MirrorStore
	playlists PlaylistStore
	songs     SongStore
	search    Searcher
	matcher   Matcher
	limiter   *rate.Limiter
	logger    *log.Logger
}

// NewEngine creates a migration engine. trackDelay is the pause between
// consecutive catalog searches; zero or negative disables pacing.
func NewEngine(mirrors MirrorStore, playlists PlaylistStore, songs SongStore, search Searcher, matcher Matcher, trackDelay time.Duration, logger *log.Logger) *Engine {
	var limiter *rate.Limiter
	if trackDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(trackDelay), 1)
	}
	if matcher == nil {
		matcher = FirstMatch{}
	}
	return &Engine{
		mirrors:   mirrors,
		playlists: playlists,
		songs:     songs,
		search:    search,
		matcher:   matcher,
		limiter:   limiter,
		logger:    logger,
	}
}

// Migrate converts the snapshot identified by (subjectID, remoteID) into a
// local playlist. Tracks are processed sequentially; a track that cannot be
// matched lands in the report's failed list and the run continues. A playlist
// can only be migrated once: the mirror's migrated flag refuses a re-run, but
// an existing shell playlist without that flag means a previous run died
// before finishing, so the shell is reused and the track loop re-runs (the
// deduplicated append makes that safe).
func (e *Engine) Migrate(ctx context.Context, subjectID, remoteID string, progress chan<- ProgressUpdate) (*models.MigrationReport, error) {
	mirror, err := e.mirrors.Get(subjectID, remoteID)
	if err != nil {
		return nil, err
	}

	if mirror.Migrated {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrAlreadyMigrated, remoteID)
	}

	playlist, err := e.playlists.GetBySourceRemoteID(subjectID, remoteID)
	if err == nil {
		e.logger.Info("resuming interrupted migration", "playlist", playlist.ID, "remote", remoteID)
	} else if errors.Is(err, shared.ErrNotFound) {
		playlist = &models.Playlist{
			SubjectID:      subjectID,
			Name:           mirror.Name,
			Description:    mirror.Description,
			ImageURL:       mirror.ImageURL,
			SourceRemoteID: remoteID,
		}
		if err := e.playlists.Create(playlist); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}
	sendProgress(progress, createPlaylistUpdate(playlist))

	report := &models.MigrationReport{
		PlaylistID:  playlist.ID,
		TotalTracks: len(mirror.Tracks),
		Migrated:    []models.MigratedSong{},
		Failed:      []models.FailedSong{},
	}

	total := len(mirror.Tracks)
	for i, track := range mirror.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		sendProgress(progress, matchTrackUpdate(i+1, total, track))

		reason, err := e.migrateTrack(ctx, playlist.ID, track, report)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			sendProgress(progress, matchFailedUpdate(i+1, total, track, reason))
		}
	}

	if err := e.mirrors.MarkMigrated(subjectID, remoteID, playlist.ID); err != nil {
		return nil, err
	}

	report.MigratedCount = len(report.Migrated)
	report.FailedCount = len(report.Failed)
	e.logger.Info("migration complete", "playlist", playlist.ID, "migrated", report.MigratedCount, "failed", report.FailedCount)

	sendProgress(progress, finalizeUpdate(report))
	return report, nil
}

// migrateTrack matches and stores one track, appending to the report. A
// search or match failure is recorded in the report and returned as the
// reason; a storage or serialization failure aborts the run via err.
func (e *Engine) migrateTrack(ctx context.Context, playlistID string, track models.RemoteTrack, report *models.MigrationReport) (string, error) {
	fail := func(reason string) string {
		report.Failed = append(report.Failed, models.FailedSong{
			SourceName: track.Name,
			Artists:    track.Artists,
			Reason:     reason,
		})
		return reason
	}

	query := track.Name
	if len(track.Artists) > 0 {
		query += " " + strings.Join(track.Artists, " ")
	}

	results, err := e.search.SearchSongs(ctx, query)
	if err != nil {
		return fail(err.Error()), nil
	}

	match := e.matcher.Match(track, results.Results)
	if match == nil {
		return fail("no_match"), nil
	}

	record, err := match.Record()
	if err != nil {
		return "", err
	}

	song, err := e.songs.FindOrCreate(record)
	if err != nil {
		return "", err
	}

	if err := e.playlists.AddSong(playlistID, song.ID); err != nil {
		return "", err
	}

	report.Migrated = append(report.Migrated, models.MigratedSong{
		SourceName:  track.Name,
		MatchedName: match.Name,
	})
	return "", nil
}
