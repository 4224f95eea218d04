// package server is the HTTP boundary: a chi router over the catalog client,
// the credential store, the sync/migration tasks, and the library service.
//
// Subject-scoped routes trust the X-Subject-ID header; verifying the identity
// behind it is an upstream concern.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tunebridge/internal/catalog"
	"tunebridge/internal/credentials"
	"tunebridge/internal/library"
	"tunebridge/internal/tasks"
)

// Server is the HTTP server for the bridge service.
type Server struct {
	router  chi.Router
	server  *http.Server
	logger  *log.Logger
	catalog *catalog.Client
	creds   *credentials.Store
	sync    *tasks.Synchronizer
	engine  *tasks.Engine
	library *library.Service
}

// NewServer creates a server listening on addr with the given collaborators.
func NewServer(addr string, cat *catalog.Client, creds *credentials.Store, sync *tasks.Synchronizer, engine *tasks.Engine, lib *library.Service, logger *log.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		router:  router,
		logger:  logger,
		catalog: cat,
		creds:   creds,
		sync:    sync,
		engine:  engine,
		library: lib,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/songs", func(r chi.Router) {
		r.Get("/search", s.handleSearchSongs)
		r.Get("/albums", s.handleSearchAlbums)
		r.Get("/playlists", s.handleSearchPlaylists)
		r.Get("/lyrics", s.handleLyrics)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Post("/cache/clear", s.handleCacheClear)
		r.Get("/{id}", s.handleSongByID)
	})

	s.router.Route("/api/spotify", func(r chi.Router) {
		// The callback carries its subject inside the state parameter.
		r.Get("/auth/callback", s.handleAuthCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSubject)
			r.Get("/auth", s.handleAuthBegin)
			r.Delete("/auth", s.handleAuthDisconnect)
			r.Get("/playlists", s.handleSyncPlaylists)
			r.Post("/playlists/{id}/migrate", s.handleMigrate)
		})
	})

	s.router.Route("/api/playlists", func(r chi.Router) {
		r.Use(s.requireSubject)
		r.Get("/", s.handleListPlaylists)
		r.Post("/", s.handleCreatePlaylist)
		r.Get("/{id}", s.handleGetPlaylist)
		r.Patch("/{id}", s.handleRenamePlaylist)
		r.Delete("/{id}", s.handleDeletePlaylist)
		r.Post("/{id}/songs", s.handleAddPlaylistSong)
		r.Delete("/{id}/songs/{songID}", s.handleRemovePlaylistSong)
	})

	s.router.Route("/api/wishlist", func(r chi.Router) {
		r.Use(s.requireSubject)
		r.Get("/", s.handleGetWishlist)
		r.Post("/", s.handleAddWishlistSong)
		r.Delete("/", s.handleClearWishlist)
		r.Get("/{songID}", s.handleWishlistContains)
		r.Delete("/{songID}", s.handleRemoveWishlistSong)
	})

	s.router.Route("/api/history", func(r chi.Router) {
		r.Use(s.requireSubject)
		r.Get("/", s.handleGetHistory)
		r.Post("/", s.handleRecordListen)
		r.Delete("/", s.handleClearHistory)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and blocks until an interrupt, then shuts down with
// a grace period.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.Info("server listening", "addr", s.server.Addr)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	s.logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
