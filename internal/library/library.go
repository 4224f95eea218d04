// package library implements the subject-facing catalog features: playlists,
// the wishlist, and listen history. Every path that needs a song record
// funnels through one find-or-create lookup so the same catalog song is never
// stored twice.
package library

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"tunebridge/internal/catalog"
	"tunebridge/internal/models"
	"tunebridge/internal/repositories"
	"tunebridge/internal/shared"
)

// historyWindow is how long a repeat play of the same song updates the
// existing history entry instead of recording a new one.
const historyWindow = 5 * time.Minute

// SongLookup is the slice of the catalog client the library needs.
type SongLookup interface {
	SongByID(ctx context.Context, id string, lyrics bool) (*catalog.Song, error)
}

// Service wires the library repositories to the catalog.
type Service struct {
	songs     *repositories.SongRepository
	playlists *repositories.PlaylistRepository
	wishlists *repositories.WishlistRepository
	history   *repositories.HistoryRepository
	catalog   SongLookup
	logger    *log.Logger

	now func() time.Time
}

// NewService creates a library service with the provided collaborators.
func NewService(songs *repositories.SongRepository, playlists *repositories.PlaylistRepository, wishlists *repositories.WishlistRepository, history *repositories.HistoryRepository, lookup SongLookup, logger *log.Logger) *Service {
	return &Service{
		songs:     songs,
		playlists: playlists,
		wishlists: wishlists,
		history:   history,
		catalog:   lookup,
		logger:    logger,
		now:       time.Now,
	}
}

// ensureSong resolves a catalog-native song id to the local record, creating
// it on first use.
func (s *Service) ensureSong(ctx context.Context, externalID string) (*models.Song, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: song id", shared.ErrMissingArgument)
	}

	if existing, err := s.songs.GetByExternalID(externalID); err == nil {
		return existing, nil
	}

	found, err := s.catalog.SongByID(ctx, externalID, false)
	if err != nil {
		return nil, err
	}

	record, err := found.Record()
	if err != nil {
		return nil, err
	}

	return s.songs.FindOrCreate(record)
}

// CreatePlaylist creates an empty playlist for the subject.
func (s *Service) CreatePlaylist(subjectID, name, description string) (*models.Playlist, error) {
	playlist := &models.Playlist{
		SubjectID:   subjectID,
		Name:        name,
		Description: description,
		Songs:       []models.Song{},
	}
	if err := s.playlists.Create(playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// Playlists lists the subject's playlists, newest first.
func (s *Service) Playlists(subjectID string) ([]models.Playlist, error) {
	return s.playlists.ListBySubject(subjectID)
}

// Playlist returns one of the subject's playlists with its songs.
func (s *Service) Playlist(id, subjectID string) (*models.Playlist, error) {
	return s.playlists.Get(id, subjectID)
}

// AddPlaylistSong appends a catalog song to the playlist and returns the
// updated playlist. Adding a song that is already present is a no-op.
func (s *Service) AddPlaylistSong(ctx context.Context, playlistID, subjectID, externalID string) (*models.Playlist, error) {
	if _, err := s.playlists.Get(playlistID, subjectID); err != nil {
		return nil, err
	}

	song, err := s.ensureSong(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if err := s.playlists.AddSong(playlistID, song.ID); err != nil {
		return nil, err
	}

	return s.playlists.Get(playlistID, subjectID)
}

// RemovePlaylistSong removes a song from the playlist.
func (s *Service) RemovePlaylistSong(playlistID, subjectID, songID string) (*models.Playlist, error) {
	if _, err := s.playlists.Get(playlistID, subjectID); err != nil {
		return nil, err
	}
	if err := s.playlists.RemoveSong(playlistID, songID); err != nil {
		return nil, err
	}
	return s.playlists.Get(playlistID, subjectID)
}

// RenamePlaylist renames one of the subject's playlists.
func (s *Service) RenamePlaylist(id, subjectID, name string) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrInvalidInput)
	}
	if err := s.playlists.Rename(id, subjectID, name); err != nil {
		return nil, err
	}
	return s.playlists.Get(id, subjectID)
}

// DeletePlaylist deletes one of the subject's playlists.
func (s *Service) DeletePlaylist(id, subjectID string) error {
	return s.playlists.Delete(id, subjectID)
}

// Wishlist returns the subject's wishlist. An untouched wishlist is simply
// empty, there is no explicit creation step.
func (s *Service) Wishlist(subjectID string) (*models.Wishlist, error) {
	songs, err := s.wishlists.List(subjectID)
	if err != nil {
		return nil, err
	}
	return &models.Wishlist{SubjectID: subjectID, Songs: songs}, nil
}

// AddWishlistSong saves a catalog song to the subject's wishlist.
func (s *Service) AddWishlistSong(ctx context.Context, subjectID, externalID string) (*models.Wishlist, error) {
	song, err := s.ensureSong(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if err := s.wishlists.Add(subjectID, song.ID); err != nil {
		return nil, err
	}
	return s.Wishlist(subjectID)
}

// RemoveWishlistSong drops a song from the subject's wishlist.
func (s *Service) RemoveWishlistSong(subjectID, songID string) (*models.Wishlist, error) {
	if err := s.wishlists.Remove(subjectID, songID); err != nil {
		return nil, err
	}
	return s.Wishlist(subjectID)
}

// WishlistContains reports whether the song is on the subject's wishlist.
func (s *Service) WishlistContains(subjectID, songID string) (bool, error) {
	return s.wishlists.Contains(subjectID, songID)
}

// ClearWishlist empties the subject's wishlist.
func (s *Service) ClearWishlist(subjectID string) error {
	return s.wishlists.Clear(subjectID)
}

// RecordListen logs a play of a catalog song. A repeat of the same song
// within the merge window updates the existing entry, keeping the longer
// duration. Otherwise older entries for the song are dropped and a fresh
// entry is recorded, so history holds at most one entry per song.
func (s *Service) RecordListen(ctx context.Context, subjectID, externalID string, duration int) (*models.HistoryEntry, error) {
	song, err := s.ensureSong(ctx, externalID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	latest, err := s.history.Latest(subjectID, song.ID)
	if err == nil && now.Sub(latest.PlayedAt) < historyWindow {
		if duration < latest.Duration {
			duration = latest.Duration
		}
		if err := s.history.Touch(latest.ID, duration, now); err != nil {
			return nil, err
		}
		latest.Duration = duration
		latest.PlayedAt = now
		return latest, nil
	}

	if err := s.history.DeleteForSong(subjectID, song.ID); err != nil {
		return nil, err
	}

	entry := &models.HistoryEntry{
		SubjectID: subjectID,
		Song:      *song,
		Duration:  duration,
		PlayedAt:  now,
	}
	if err := s.history.Insert(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// History lists the subject's most recent listens.
func (s *Service) History(subjectID string, limit int) ([]models.HistoryEntry, error) {
	return s.history.List(subjectID, limit)
}

// ClearHistory wipes the subject's listen history.
func (s *Service) ClearHistory(subjectID string) error {
	return s.history.Clear(subjectID)
}
