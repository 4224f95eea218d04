package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleAuthBegin(w http.ResponseWriter, r *http.Request) {
	subjectID := subjectFrom(r)

	authURL, already, err := s.creds.BeginAuthorization(subjectID)
	if err != nil {
		respondError(w, err)
		return
	}

	if already {
		respondJSON(w, http.StatusOK, map[string]any{"authorized": true}, "already authorized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"authorized": false, "auth_url": authURL}, "")
}

func (s *Server) handleAuthDisconnect(w http.ResponseWriter, r *http.Request) {
	subjectID := subjectFrom(r)

	if err := s.creds.Disconnect(subjectID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"authorized": false}, "credential removed")
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	subjectID, err := s.creds.CompleteAuthorization(r.Context(), state, code)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"subject_id": subjectID}, "authorization complete")
}

func (s *Server) handleSyncPlaylists(w http.ResponseWriter, r *http.Request) {
	subjectID := subjectFrom(r)

	mirrors, err := s.sync.RefreshMirror(r.Context(), subjectID, nil)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mirrors, "")
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	subjectID := subjectFrom(r)
	remoteID := chi.URLParam(r, "id")

	report, err := s.engine.Migrate(r.Context(), subjectID, remoteID, nil)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report, "migration complete")
}
