package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tunebridge/internal/models"
	"tunebridge/internal/shared"
)

// MirrorRepository persists snapshots of remote playlists, keyed uniquely by
// (subject_id, remote_id). Track listings are stored as a JSON blob since the
// snapshot is always replaced wholesale.
type MirrorRepository struct {
	db *sql.DB
}

// NewMirrorRepository creates a new MirrorRepository with the given database connection
func NewMirrorRepository(db *sql.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

// Upsert inserts or wholesale-replaces the snapshot for
// (mirror.SubjectID, mirror.RemoteID), keeping the row id and creation time
// of an existing record.
func (r *MirrorRepository) Upsert(mirror *models.MirrorPlaylist) error {
	now := time.Now()
	mirror.UpdatedAt = now

	if existing, err := r.Get(mirror.SubjectID, mirror.RemoteID); err == nil {
		mirror.ID = existing.ID
		mirror.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	} else {
		mirror.ID = shared.GenerateID()
		mirror.CreatedAt = now
	}

	tracks, err := json.Marshal(mirror.Tracks)
	if err != nil {
		return fmt.Errorf("failed to marshal tracks: %w", err)
	}

	query := `
		INSERT INTO mirror_playlists (id, subject_id, remote_id, name, description, image_url, total_tracks, tracks, migrated, migrated_playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id, remote_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image_url = excluded.image_url,
			total_tracks = excluded.total_tracks,
			tracks = excluded.tracks,
			migrated = excluded.migrated,
			migrated_playlist_id = excluded.migrated_playlist_id,
			updated_at = excluded.updated_at
	`

	_, err = r.db.Exec(query,
		mirror.ID,
		mirror.SubjectID,
		mirror.RemoteID,
		mirror.Name,
		mirror.Description,
		mirror.ImageURL,
		mirror.TotalTracks,
		string(tracks),
		mirror.Migrated,
		nullable(mirror.MigratedPlaylistID),
		mirror.CreatedAt,
		mirror.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mirror playlist: %w", err)
	}

	return nil
}

// Get retrieves one mirror record by its (subject, remote playlist) key.
func (r *MirrorRepository) Get(subjectID, remoteID string) (*models.MirrorPlaylist, error) {
	query := `
		SELECT id, subject_id, remote_id, name, description, image_url, total_tracks, tracks, migrated, migrated_playlist_id, created_at, updated_at
		FROM mirror_playlists
		WHERE subject_id = ? AND remote_id = ?
	`

	mirror, err := scanMirror(r.db.QueryRow(query, subjectID, remoteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mirror playlist %s", shared.ErrNotFound, remoteID)
	}
	return mirror, err
}

// ListBySubject returns every mirror record for a subject in snapshot order.
func (r *MirrorRepository) ListBySubject(subjectID string) ([]models.MirrorPlaylist, error) {
	query := `
		SELECT id, subject_id, remote_id, name, description, image_url, total_tracks, tracks, migrated, migrated_playlist_id, created_at, updated_at
		FROM mirror_playlists
		WHERE subject_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mirror playlists: %w", err)
	}
	defer rows.Close()

	var mirrors []models.MirrorPlaylist
	for rows.Next() {
		mirror, err := scanMirror(rows)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, *mirror)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return mirrors, nil
}

// MarkMigrated flips the one-shot migrated flag and records the local
// playlist id. The migrated = 0 guard makes the last step of a migration a
// conditional write, so two racing runs cannot both claim the record.
func (r *MirrorRepository) MarkMigrated(subjectID, remoteID, playlistID string) error {
	query := `
		UPDATE mirror_playlists
		SET migrated = 1, migrated_playlist_id = ?, updated_at = ?
		WHERE subject_id = ? AND remote_id = ? AND migrated = 0
	`

	result, err := r.db.Exec(query, playlistID, time.Now(), subjectID, remoteID)
	if err != nil {
		return fmt.Errorf("failed to mark mirror migrated: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: mirror playlist %s", shared.ErrAlreadyMigrated, remoteID)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanMirror(row scanner) (*models.MirrorPlaylist, error) {
	var (
		mirror             models.MirrorPlaylist
		description        sql.NullString
		imageURL           sql.NullString
		tracks             string
		migratedPlaylistID sql.NullString
	)

	err := row.Scan(
		&mirror.ID,
		&mirror.SubjectID,
		&mirror.RemoteID,
		&mirror.Name,
		&description,
		&imageURL,
		&mirror.TotalTracks,
		&tracks,
		&mirror.Migrated,
		&migratedPlaylistID,
		&mirror.CreatedAt,
		&mirror.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mirror playlist: %w", err)
	}

	mirror.Description = description.String
	mirror.ImageURL = imageURL.String
	mirror.MigratedPlaylistID = migratedPlaylistID.String

	if err := json.Unmarshal([]byte(tracks), &mirror.Tracks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracks: %w", err)
	}

	return &mirror, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
