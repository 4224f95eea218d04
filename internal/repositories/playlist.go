package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tunebridge/internal/models"
	"tunebridge/internal/shared"
)

// PlaylistRepository persists subject-owned playlists and their ordered song
// references. All reads and writes are scoped to the owning subject.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist with a generated id and an empty song list.
func (r *PlaylistRepository) Create(playlist *models.Playlist) error {
	if playlist.Name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	now := time.Now()
	playlist.ID = shared.GenerateID()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now
	if playlist.Songs == nil {
		playlist.Songs = []models.Song{}
	}

	query := `
		INSERT INTO playlists (id, subject_id, name, description, image_url, source_remote_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		playlist.ID,
		playlist.SubjectID,
		playlist.Name,
		playlist.Description,
		playlist.ImageURL,
		nullable(playlist.SourceRemoteID),
		playlist.CreatedAt,
		playlist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist owned by subjectID, with its songs in list order.
func (r *PlaylistRepository) Get(id, subjectID string) (*models.Playlist, error) {
	query := `
		SELECT id, subject_id, name, description, image_url, source_remote_id, created_at, updated_at
		FROM playlists
		WHERE id = ? AND subject_id = ?
	`

	playlist, err := scanPlaylist(r.db.QueryRow(query, id, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	playlist.Songs, err = r.loadSongs(playlist.ID)
	if err != nil {
		return nil, err
	}

	return playlist, nil
}

// GetBySourceRemoteID finds the playlist a given remote playlist was migrated
// into, if any. This lookup is the authoritative "already migrated" signal
// used by the synchronizer.
func (r *PlaylistRepository) GetBySourceRemoteID(subjectID, remoteID string) (*models.Playlist, error) {
	query := `
		SELECT id, subject_id, name, description, image_url, source_remote_id, created_at, updated_at
		FROM playlists
		WHERE subject_id = ? AND source_remote_id = ?
	`

	playlist, err := scanPlaylist(r.db.QueryRow(query, subjectID, remoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no playlist migrated from %s", shared.ErrNotFound, remoteID)
	}
	return playlist, err
}

// ListBySubject returns a subject's playlists, newest first, songs included.
func (r *PlaylistRepository) ListBySubject(subjectID string) ([]models.Playlist, error) {
	query := `
		SELECT id, subject_id, name, description, image_url, source_remote_id, created_at, updated_at
		FROM playlists
		WHERE subject_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range playlists {
		playlists[i].Songs, err = r.loadSongs(playlists[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return playlists, nil
}

// AddSong appends a song reference at the end of the playlist. Adding a song
// that is already present is a no-op, which keeps re-entrant migration runs
// from duplicating entries.
func (r *PlaylistRepository) AddSong(playlistID, songID string) error {
	query := `
		INSERT OR IGNORE INTO playlist_songs (playlist_id, song_id, position)
		VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM playlist_songs WHERE playlist_id = ?))
	`

	if _, err := r.db.Exec(query, playlistID, songID, playlistID); err != nil {
		return fmt.Errorf("failed to add song to playlist: %w", err)
	}

	return r.touch(playlistID)
}

// RemoveSong removes a song reference from the playlist.
func (r *PlaylistRepository) RemoveSong(playlistID, songID string) error {
	if _, err := r.db.Exec(`DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`, playlistID, songID); err != nil {
		return fmt.Errorf("failed to remove song from playlist: %w", err)
	}

	return r.touch(playlistID)
}

// Rename updates the playlist name.
func (r *PlaylistRepository) Rename(id, subjectID, name string) error {
	if name == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	result, err := r.db.Exec(`UPDATE playlists SET name = ?, updated_at = ? WHERE id = ? AND subject_id = ?`, name, time.Now(), id, subjectID)
	if err != nil {
		return fmt.Errorf("failed to rename playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}

	return nil
}

// Delete removes a playlist and (via cascade) its song references.
func (r *PlaylistRepository) Delete(id, subjectID string) error {
	result, err := r.db.Exec(`DELETE FROM playlists WHERE id = ? AND subject_id = ?`, id, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}

	if _, err := r.db.Exec(`DELETE FROM playlist_songs WHERE playlist_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete playlist songs: %w", err)
	}

	return nil
}

func (r *PlaylistRepository) touch(playlistID string) error {
	if _, err := r.db.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now(), playlistID); err != nil {
		return fmt.Errorf("failed to touch playlist: %w", err)
	}
	return nil
}

func (r *PlaylistRepository) loadSongs(playlistID string) ([]models.Song, error) {
	query := `
		SELECT ` + prefixedSongColumns + `
		FROM playlist_songs ps
		JOIN songs s ON s.id = ps.song_id
		WHERE ps.playlist_id = ?
		ORDER BY ps.position ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist songs: %w", err)
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

const prefixedSongColumns = `s.id, s.external_id, s.name, s.type, s.year, s.duration, s.language, s.explicit, s.has_lyrics, s.lyrics_id, s.url, s.copyright, s.album, s.artists, s.images, s.download_urls, s.created_at, s.updated_at`

func scanPlaylist(row scanner) (*models.Playlist, error) {
	var (
		playlist       models.Playlist
		description    sql.NullString
		imageURL       sql.NullString
		sourceRemoteID sql.NullString
	)

	err := row.Scan(
		&playlist.ID,
		&playlist.SubjectID,
		&playlist.Name,
		&description,
		&imageURL,
		&sourceRemoteID,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	playlist.Description = description.String
	playlist.ImageURL = imageURL.String
	playlist.SourceRemoteID = sourceRemoteID.String
	playlist.Songs = []models.Song{}

	return &playlist, nil
}
