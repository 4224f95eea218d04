package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tunebridge/internal/models"
	"tunebridge/internal/shared"
)

// HistoryRepository persists listen events, one row per (possibly merged)
// play.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// List returns the subject's most recent listens, newest first.
func (r *HistoryRepository) List(subjectID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT h.id, h.subject_id, h.duration, h.played_at, ` + prefixedSongColumns + `
		FROM history_entries h
		JOIN songs s ON s.id = h.song_id
		WHERE h.subject_id = ?
		ORDER BY h.played_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Latest returns the subject's most recent entry for one song.
func (r *HistoryRepository) Latest(subjectID, songID string) (*models.HistoryEntry, error) {
	query := `
		SELECT h.id, h.subject_id, h.duration, h.played_at, ` + prefixedSongColumns + `
		FROM history_entries h
		JOIN songs s ON s.id = h.song_id
		WHERE h.subject_id = ? AND h.song_id = ?
		ORDER BY h.played_at DESC
		LIMIT 1
	`

	entry, err := scanHistoryEntry(r.db.QueryRow(query, subjectID, songID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no history entry for song %s", shared.ErrNotFound, songID)
	}
	return entry, err
}

// Insert records a new listen.
func (r *HistoryRepository) Insert(entry *models.HistoryEntry) error {
	entry.ID = shared.GenerateID()
	if entry.PlayedAt.IsZero() {
		entry.PlayedAt = time.Now()
	}

	query := `INSERT INTO history_entries (id, subject_id, song_id, duration, played_at) VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.Exec(query, entry.ID, entry.SubjectID, entry.Song.ID, entry.Duration, entry.PlayedAt); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	return nil
}

// Touch updates an existing entry's watched duration and timestamp.
func (r *HistoryRepository) Touch(id string, duration int, playedAt time.Time) error {
	result, err := r.db.Exec(`UPDATE history_entries SET duration = ?, played_at = ? WHERE id = ?`, duration, playedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: history entry %s", shared.ErrNotFound, id)
	}

	return nil
}

// DeleteForSong removes every entry the subject has for a song. Used when a
// repeat play supersedes older entries.
func (r *HistoryRepository) DeleteForSong(subjectID, songID string) error {
	if _, err := r.db.Exec(`DELETE FROM history_entries WHERE subject_id = ? AND song_id = ?`, subjectID, songID); err != nil {
		return fmt.Errorf("failed to delete history entries: %w", err)
	}

	return nil
}

// Clear removes the subject's entire history.
func (r *HistoryRepository) Clear(subjectID string) error {
	if _, err := r.db.Exec(`DELETE FROM history_entries WHERE subject_id = ?`, subjectID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	return nil
}

func scanHistoryEntry(row scanner) (*models.HistoryEntry, error) {
	var (
		entry        models.HistoryEntry
		songType     sql.NullString
		year         sql.NullInt64
		duration     sql.NullInt64
		language     sql.NullString
		lyricsID     sql.NullString
		url          sql.NullString
		copyright    sql.NullString
		album        sql.NullString
		artists      sql.NullString
		images       sql.NullString
		downloadURLs sql.NullString
	)

	err := row.Scan(
		&entry.ID,
		&entry.SubjectID,
		&entry.Duration,
		&entry.PlayedAt,
		&entry.Song.ID,
		&entry.Song.ExternalID,
		&entry.Song.Name,
		&songType,
		&year,
		&duration,
		&language,
		&entry.Song.Explicit,
		&entry.Song.HasLyrics,
		&lyricsID,
		&url,
		&copyright,
		&album,
		&artists,
		&images,
		&downloadURLs,
		&entry.Song.CreatedAt,
		&entry.Song.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}

	entry.Song.Type = songType.String
	entry.Song.Year = int(year.Int64)
	entry.Song.Duration = int(duration.Int64)
	entry.Song.Language = language.String
	entry.Song.LyricsID = lyricsID.String
	entry.Song.URL = url.String
	entry.Song.Copyright = copyright.String
	entry.Song.Album = rawMessage(album)
	entry.Song.Artists = rawMessage(artists)
	entry.Song.Images = rawMessage(images)
	entry.Song.DownloadURLs = rawMessage(downloadURLs)

	return &entry, nil
}
