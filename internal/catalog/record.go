package catalog

import (
	"encoding/json"
	"fmt"

	"tunebridge/internal/models"
)

// Record converts a catalog song into the locally stored form. The nested
// album, artist, image and download-link shapes are kept as raw JSON so the
// stored record round-trips whatever the catalog sent.
func (s *Song) Record() (*models.Song, error) {
	album, err := json.Marshal(s.Album)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal album: %w", err)
	}
	artists, err := json.Marshal(s.Artists)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artists: %w", err)
	}
	images, err := json.Marshal(s.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal images: %w", err)
	}
	downloads, err := json.Marshal(s.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal download links: %w", err)
	}

	return &models.Song{
		ExternalID:   s.ID,
		Name:         s.Name,
		Type:         s.Type,
		Year:         s.Year,
		Duration:     s.Duration,
		Language:     s.Language,
		Explicit:     s.ExplicitContent,
		HasLyrics:    s.HasLyrics,
		LyricsID:     s.LyricsID,
		URL:          s.URL,
		Copyright:    s.Copyright,
		Album:        album,
		Artists:      artists,
		Images:       images,
		DownloadURLs: downloads,
	}, nil
}
