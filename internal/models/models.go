// package models defines the data model for the tunebridge catalog bridge:
// delegated-access credentials, remote playlist mirrors, local songs and
// playlists, and the migration report value object.
package models

import (
	"encoding/json"
	"time"
)

// Credential is one subject's delegated-access token pair for the remote
// provider. Keyed uniquely by SubjectID; the (AccessToken, ExpiresAt) pair is
// always written together.
type Credential struct {
	SubjectID    string    `json:"subject_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token has expired as of now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// RemoteTrack is one track inside a mirrored remote playlist.
type RemoteTrack struct {
	RemoteID   string   `json:"remote_id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
	PreviewURL string   `json:"preview_url,omitempty"`
}

// MirrorPlaylist is the local snapshot of one remote playlist, keyed uniquely
// by (SubjectID, RemoteID). Each synchronization pass replaces the snapshot
// wholesale; Migrated and MigratedPlaylistID are re-derived from local
// playlists rather than carried forward.
type MirrorPlaylist struct {
	ID                 string        `json:"id"`
	SubjectID          string        `json:"subject_id"`
	RemoteID           string        `json:"remote_id"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	ImageURL           string        `json:"image_url,omitempty"`
	TotalTracks        int           `json:"total_tracks"`
	Tracks             []RemoteTrack `json:"tracks"`
	Migrated           bool          `json:"migrated"`
	MigratedPlaylistID string        `json:"migrated_playlist_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Song is a local mirror of one catalog song, keyed uniquely by ExternalID
// (the catalog-native id). Created lazily the first time any code path needs
// it. Album, Artists, Images and DownloadURLs are stored as the catalog's own
// JSON shapes.
type Song struct {
	ID           string          `json:"id"`
	ExternalID   string          `json:"external_id"`
	Name         string          `json:"name"`
	Type         string          `json:"type,omitempty"`
	Year         int             `json:"year,omitempty"`
	Duration     int             `json:"duration,omitempty"`
	Language     string          `json:"language,omitempty"`
	Explicit     bool            `json:"explicit"`
	HasLyrics    bool            `json:"has_lyrics"`
	LyricsID     string          `json:"lyrics_id,omitempty"`
	URL          string          `json:"url,omitempty"`
	Copyright    string          `json:"copyright,omitempty"`
	Album        json.RawMessage `json:"album,omitempty"`
	Artists      json.RawMessage `json:"artists,omitempty"`
	Images       json.RawMessage `json:"images,omitempty"`
	DownloadURLs json.RawMessage `json:"download_urls,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Playlist is a subject-owned local playlist. Songs holds ordered references;
// the songs themselves are shared records. SourceRemoteID links a playlist
// created by migration back to the remote playlist it came from.
type Playlist struct {
	ID             string    `json:"id"`
	SubjectID      string    `json:"subject_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ImageURL       string    `json:"image_url,omitempty"`
	SourceRemoteID string    `json:"source_remote_id,omitempty"`
	Songs          []Song    `json:"songs"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Wishlist is a subject's saved-songs list, created implicitly on first use.
type Wishlist struct {
	SubjectID string `json:"subject_id"`
	Songs     []Song `json:"songs"`
}

// HistoryEntry records one (possibly partial) listen of a song.
type HistoryEntry struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Song      Song      `json:"song"`
	Duration  int       `json:"duration"`
	PlayedAt  time.Time `json:"played_at"`
}

// MigratedSong is one successfully matched track in a migration report.
type MigratedSong struct {
	SourceName  string `json:"source_name"`
	MatchedName string `json:"matched_name"`
}

// FailedSong is one track that could not be migrated, with the reason:
// "no_match" for an empty result set, otherwise the failure description.
type FailedSong struct {
	SourceName string   `json:"source_name"`
	Artists    []string `json:"artists"`
	Reason     string   `json:"reason"`
}

// MigrationReport summarizes one migration run. It is a value object, never
// persisted.
type MigrationReport struct {
	PlaylistID    string         `json:"playlist_id"`
	TotalTracks   int            `json:"total_tracks"`
	MigratedCount int            `json:"migrated_count"`
	FailedCount   int            `json:"failed_count"`
	Migrated      []MigratedSong `json:"migrated_songs"`
	Failed        []FailedSong   `json:"failed_songs"`
}
