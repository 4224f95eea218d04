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

// SongRepository persists local mirrors of catalog songs, keyed uniquely by
// the catalog-native external id.
type SongRepository struct {
	db *sql.DB
}

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

const songColumns = `id, external_id, name, type, year, duration, language, explicit, has_lyrics, lyrics_id, url, copyright, album, artists, images, download_urls, created_at, updated_at`

// FindOrCreate returns the stored song for song.ExternalID, inserting it
// first if absent. Every code path that needs a song record (wishlist add,
// playlist add, history add, migration) funnels through this, so calling it
// twice with the same external id always yields one record.
func (r *SongRepository) FindOrCreate(song *models.Song) (*models.Song, error) {
	if song.ExternalID == "" {
		return nil, fmt.Errorf("%w: song external id is required", shared.ErrInvalidInput)
	}

	if existing, err := r.GetByExternalID(song.ExternalID); err == nil {
		return existing, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	song.ID = shared.GenerateID()
	song.CreatedAt = now
	song.UpdatedAt = now

	query := `
		INSERT INTO songs (` + songColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		song.ID,
		song.ExternalID,
		song.Name,
		song.Type,
		song.Year,
		song.Duration,
		song.Language,
		song.Explicit,
		song.HasLyrics,
		song.LyricsID,
		song.URL,
		song.Copyright,
		rawString(song.Album),
		rawString(song.Artists),
		rawString(song.Images),
		rawString(song.DownloadURLs),
		song.CreatedAt,
		song.UpdatedAt,
	)
	if isUniqueViolation(err) {
		// Lost a race with a concurrent insert; the winner's record is the
		// canonical one.
		return r.GetByExternalID(song.ExternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert song: %w", err)
	}

	return song, nil
}

// Get retrieves a song by its record id.
func (r *SongRepository) Get(id string) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`

	song, err := scanSong(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: song %s", shared.ErrNotFound, id)
	}
	return song, err
}

// GetByExternalID retrieves a song by its catalog-native id.
func (r *SongRepository) GetByExternalID(externalID string) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE external_id = ?`

	song, err := scanSong(r.db.QueryRow(query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: song with external id %s", shared.ErrNotFound, externalID)
	}
	return song, err
}

func scanSong(row scanner) (*models.Song, error) {
	var (
		song         models.Song
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
		&song.ID,
		&song.ExternalID,
		&song.Name,
		&songType,
		&year,
		&duration,
		&language,
		&song.Explicit,
		&song.HasLyrics,
		&lyricsID,
		&url,
		&copyright,
		&album,
		&artists,
		&images,
		&downloadURLs,
		&song.CreatedAt,
		&song.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	song.Type = songType.String
	song.Year = int(year.Int64)
	song.Duration = int(duration.Int64)
	song.Language = language.String
	song.LyricsID = lyricsID.String
	song.URL = url.String
	song.Copyright = copyright.String
	song.Album = rawMessage(album)
	song.Artists = rawMessage(artists)
	song.Images = rawMessage(images)
	song.DownloadURLs = rawMessage(downloadURLs)

	return &song, nil
}

func rawString(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func rawMessage(col sql.NullString) json.RawMessage {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.RawMessage(col.String)
}
