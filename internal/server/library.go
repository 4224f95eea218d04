package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tunebridge/internal/shared"
)

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.library.Playlists(subjectFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, playlists, "")
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	playlist, err := s.library.CreatePlaylist(subjectFrom(r), body.Name, body.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, playlist, "playlist created")
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.library.Playlist(chi.URLParam(r, "id"), subjectFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, playlist, "")
}

func (s *Server) handleRenamePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	playlist, err := s.library.RenamePlaylist(chi.URLParam(r, "id"), subjectFrom(r), body.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, playlist, "playlist renamed")
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.library.DeletePlaylist(chi.URLParam(r, "id"), subjectFrom(r)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil, "playlist deleted")
}

func (s *Server) handleAddPlaylistSong(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SongID string `json:"song_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	playlist, err := s.library.AddPlaylistSong(r.Context(), chi.URLParam(r, "id"), subjectFrom(r), body.SongID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, playlist, "song added")
}

func (s *Server) handleRemovePlaylistSong(w http.ResponseWriter, r *http.Request) {
	playlist, err := s.library.RemovePlaylistSong(chi.URLParam(r, "id"), subjectFrom(r), chi.URLParam(r, "songID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, playlist, "song removed")
}

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	wishlist, err := s.library.Wishlist(subjectFrom(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wishlist, "")
}

func (s *Server) handleAddWishlistSong(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SongID string `json:"song_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	wishlist, err := s.library.AddWishlistSong(r.Context(), subjectFrom(r), body.SongID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wishlist, "song saved")
}

func (s *Server) handleWishlistContains(w http.ResponseWriter, r *http.Request) {
	contains, err := s.library.WishlistContains(subjectFrom(r), chi.URLParam(r, "songID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"contains": contains}, "")
}

func (s *Server) handleRemoveWishlistSong(w http.ResponseWriter, r *http.Request) {
	wishlist, err := s.library.RemoveWishlistSong(subjectFrom(r), chi.URLParam(r, "songID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wishlist, "song removed")
}

func (s *Server) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	if err := s.library.ClearWishlist(subjectFrom(r)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil, "wishlist cleared")
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := s.library.History(subjectFrom(r), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history, "")
}

func (s *Server) handleRecordListen(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SongID   string `json:"song_id"`
		Duration int    `json:"duration"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, err)
		return
	}

	entry, err := s.library.RecordListen(r.Context(), subjectFrom(r), body.SongID, body.Duration)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry, "listen recorded")
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.library.ClearHistory(subjectFrom(r)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil, "history cleared")
}
