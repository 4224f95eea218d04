package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"tunebridge/internal/models"
)

// WishlistRepository persists each subject's saved-songs list. The wishlist
// itself has no record; it exists implicitly as the set of rows for a
// subject.
type WishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new WishlistRepository with the given database connection
func NewWishlistRepository(db *sql.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// List returns the subject's wishlist songs in the order they were added.
func (r *WishlistRepository) List(subjectID string) ([]models.Song, error) {
	query := `
		SELECT ` + prefixedSongColumns + `
		FROM wishlist_songs ws
		JOIN songs s ON s.id = ws.song_id
		WHERE ws.subject_id = ?
		ORDER BY ws.added_at ASC
	`

	rows, err := r.db.Query(query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
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

// Add saves a song to the subject's wishlist. Re-adding is a no-op.
func (r *WishlistRepository) Add(subjectID, songID string) error {
	query := `INSERT OR IGNORE INTO wishlist_songs (subject_id, song_id, added_at) VALUES (?, ?, ?)`

	if _, err := r.db.Exec(query, subjectID, songID, time.Now()); err != nil {
		return fmt.Errorf("failed to add song to wishlist: %w", err)
	}

	return nil
}

// Remove drops a song from the subject's wishlist.
func (r *WishlistRepository) Remove(subjectID, songID string) error {
	if _, err := r.db.Exec(`DELETE FROM wishlist_songs WHERE subject_id = ? AND song_id = ?`, subjectID, songID); err != nil {
		return fmt.Errorf("failed to remove song from wishlist: %w", err)
	}

	return nil
}

// Contains reports whether the song is on the subject's wishlist.
func (r *WishlistRepository) Contains(subjectID, songID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM wishlist_songs WHERE subject_id = ? AND song_id = ?)`, subjectID, songID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist: %w", err)
	}

	return exists, nil
}

// Clear empties the subject's wishlist.
func (r *WishlistRepository) Clear(subjectID string) error {
	if _, err := r.db.Exec(`DELETE FROM wishlist_songs WHERE subject_id = ?`, subjectID); err != nil {
		return fmt.Errorf("failed to clear wishlist: %w", err)
	}

	return nil
}
