package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tunebridge/internal/shared"
)

func queryParam(r *http.Request) (string, error) {
	query := r.URL.Query().Get("query")
	if query == "" {
		return "", fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	return query, nil
}

func (s *Server) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	query, err := queryParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	results, err := s.catalog.SearchSongs(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results, "")
}

func (s *Server) handleSongByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lyrics := r.URL.Query().Get("lyrics") == "true"

	song, err := s.catalog.SongByID(r.Context(), id, lyrics)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, song, "")
}

func (s *Server) handleSearchAlbums(w http.ResponseWriter, r *http.Request) {
	query, err := queryParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	results, err := s.catalog.SearchAlbums(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results, "")
}

func (s *Server) handleSearchPlaylists(w http.ResponseWriter, r *http.Request) {
	query, err := queryParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	results, err := s.catalog.SearchPlaylists(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results, "")
}

func (s *Server) handleLyrics(w http.ResponseWriter, r *http.Request) {
	query, err := queryParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	lyrics, err := s.catalog.GetLyrics(r.Context(), query)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lyrics, "")
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.catalog.Stats(), "")
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.catalog.ClearCaches()
	respondJSON(w, http.StatusOK, nil, "caches cleared")
}
