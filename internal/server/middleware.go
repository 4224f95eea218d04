package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"tunebridge/internal/shared"
)

// SubjectHeader carries the upstream-verified subject identity.
const SubjectHeader = "X-Subject-ID"

type contextKey string

const subjectKey contextKey = "subject"

// requireSubject rejects requests without a subject identity header and puts
// the subject id on the request context.
func (s *Server) requireSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subjectID := r.Header.Get(SubjectHeader)
		if subjectID == "" {
			respondError(w, fmt.Errorf("%w: %s header", shared.ErrMissingArgument, SubjectHeader))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), subjectKey, subjectID)))
	})
}

func subjectFrom(r *http.Request) string {
	subjectID, _ := r.Context().Value(subjectKey).(string)
	return subjectID
}

// logRequests writes one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
