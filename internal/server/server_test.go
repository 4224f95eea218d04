package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tunebridge/internal/catalog"
	"tunebridge/internal/credentials"
	"tunebridge/internal/library"
	"tunebridge/internal/models"
	"tunebridge/internal/provider"
	"tunebridge/internal/repositories"
	"tunebridge/internal/shared"
	"tunebridge/internal/tasks"
)

type fixture struct {
	server  *Server
	mirrors *repositories.MirrorRepository
	creds   *repositories.CredentialRepository
}

// newFixture wires the full stack against fake catalog and provider servers.
func newFixture(t *testing.T, catalogHandler, providerHandler http.HandlerFunc) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if catalogHandler == nil {
		catalogHandler = func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success":true,"data":{"results":[],"total":0}}`)
		}
	}
	catalogSrv := httptest.NewServer(catalogHandler)
	t.Cleanup(catalogSrv.Close)

	if providerHandler == nil {
		providerHandler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}
	providerSrv := httptest.NewServer(providerHandler)
	t.Cleanup(providerSrv.Close)

	logger := shared.NewLogger(io.Discard)

	credRepo := repositories.NewCredentialRepository(db)
	mirrorRepo := repositories.NewMirrorRepository(db)
	songRepo := repositories.NewSongRepository(db)
	playlistRepo := repositories.NewPlaylistRepository(db)
	wishlistRepo := repositories.NewWishlistRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)

	cat := catalog.NewClient(catalogSrv.URL, catalogSrv.Client(), logger, catalog.DefaultTTLs())
	creds := credentials.NewStore(shared.ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:5000/api/spotify/auth/callback",
		AuthURL:      providerSrv.URL + "/authorize",
		TokenURL:     providerSrv.URL + "/api/token",
	}, credRepo, logger)
	remote := provider.NewClient(providerSrv.URL, providerSrv.Client(), logger)

	sync := tasks.NewSynchronizer(creds, remote, mirrorRepo, playlistRepo, logger)
	engine := tasks.NewEngine(mirrorRepo, playlistRepo, songRepo, cat, tasks.FirstMatch{}, 0, logger)
	lib := library.NewService(songRepo, playlistRepo, wishlistRepo, historyRepo, cat, logger)

	return &fixture{
		server:  NewServer("127.0.0.1:0", cat, creds, sync, engine, lib, logger),
		mirrors: mirrorRepo,
		creds:   credRepo,
	}
}

func (f *fixture) do(t *testing.T, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if subject != "" {
		req.Header.Set(SubjectHeader, subject)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSubjectHeaderRequired(t *testing.T) {
	f := newFixture(t, nil, nil)

	for _, path := range []string{"/api/playlists/", "/api/wishlist/", "/api/history/", "/api/spotify/playlists"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400 without subject header, got %d", path, rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Status != "error" {
			t.Errorf("%s: expected error envelope, got %+v", path, env)
		}
	}
}

func TestSearchSongsEndpoint(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/songs" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"success":true,"data":{"results":[{"id":"s1","name":"Hit Song"}],"total":1}}`)
	}, nil)

	rec := f.do(t, http.MethodGet, "/api/songs/search?query=hit", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != "success" {
		t.Errorf("expected success envelope, got %+v", env)
	}

	t.Run("missing query", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/songs/search", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("upstream failure maps to bad gateway", func(t *testing.T) {
		broken := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, nil)
		rec := broken.do(t, http.MethodGet, "/api/songs/search?query=hit", "", nil)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})
}

func TestPlaylistEndpoints(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[{"id":"ext1","name":"Catalog Song","duration":200}]}`)
	}, nil)

	rec := f.do(t, http.MethodPost, "/api/playlists/", "user1", map[string]string{"name": "Favorites"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var created models.Playlist
	env := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(env.Data)
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("failed to decode playlist: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/api/playlists/"+created.ID+"/songs", "user1", map[string]string{"song_id": "ext1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/playlists/"+created.ID, "user1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	t.Run("other subjects cannot see it", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/playlists/"+created.ID, "user2", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/playlists/", "user1", map[string]string{"name": ""})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthEndpoints(t *testing.T) {
	f := newFixture(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"granted","refresh_token":"keeper","token_type":"Bearer","expires_in":3600}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	rec := f.do(t, http.MethodGet, "/api/spotify/auth", "user1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	t.Run("callback with bad state", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/spotify/auth/callback?state=bogus&code=x", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("already authorized", func(t *testing.T) {
		cred := &models.Credential{
			SubjectID:   "user9",
			AccessToken: "live",
			ExpiresAt:   time.Now().Add(time.Hour),
		}
		if err := f.creds.Upsert(cred); err != nil {
			t.Fatalf("failed to seed credential: %v", err)
		}

		rec := f.do(t, http.MethodGet, "/api/spotify/auth", "user9", nil)
		env := decodeEnvelope(t, rec)
		data, _ := env.Data.(map[string]any)
		if data["authorized"] != true {
			t.Errorf("expected authorized=true, got %+v", env)
		}
	})

	t.Run("disconnect removes the credential", func(t *testing.T) {
		cred := &models.Credential{
			SubjectID:   "user11",
			AccessToken: "live",
			ExpiresAt:   time.Now().Add(time.Hour),
		}
		if err := f.creds.Upsert(cred); err != nil {
			t.Fatalf("failed to seed credential: %v", err)
		}

		rec := f.do(t, http.MethodDelete, "/api/spotify/auth", "user11", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}

		if _, err := f.creds.Get("user11"); !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected credential to be gone, got %v", err)
		}

		// A fresh auth begin starts a new flow instead of short-circuiting.
		rec = f.do(t, http.MethodGet, "/api/spotify/auth", "user11", nil)
		env := decodeEnvelope(t, rec)
		data, _ := env.Data.(map[string]any)
		if data["authorized"] != false {
			t.Errorf("expected authorized=false after disconnect, got %+v", env)
		}
	})
}

func TestSyncWithoutCredential(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(t, http.MethodGet, "/api/spotify/playlists", "user1", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credential, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestMigrateEndpoint(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"results":[{"id":"c1","name":"Matched"}],"total":1}}`)
	}, nil)

	mirror := &models.MirrorPlaylist{
		SubjectID:   "user1",
		RemoteID:    "r1",
		Name:        "Workout",
		TotalTracks: 1,
		Tracks:      []models.RemoteTrack{{RemoteID: "t1", Name: "First", Artists: []string{"Alpha"}}},
	}
	if err := f.mirrors.Upsert(mirror); err != nil {
		t.Fatalf("failed to seed mirror: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/api/spotify/playlists/r1/migrate", "user1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var report models.MigrationReport
	env := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(env.Data)
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.MigratedCount != 1 || report.FailedCount != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	t.Run("second migration conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/spotify/playlists/r1/migrate", "user1", nil)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d (%s)", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown snapshot", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/spotify/playlists/ghost/migrate", "user1", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestWishlistEndpoints(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":[{"id":"ext1","name":"Catalog Song"}]}`)
	}, nil)

	rec := f.do(t, http.MethodPost, "/api/wishlist/", "user1", map[string]string{"song_id": "ext1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/wishlist/", "user1", nil)
	env := decodeEnvelope(t, rec)
	raw, _ := json.Marshal(env.Data)
	var wishlist models.Wishlist
	if err := json.Unmarshal(raw, &wishlist); err != nil {
		t.Fatalf("failed to decode wishlist: %v", err)
	}
	if len(wishlist.Songs) != 1 {
		t.Fatalf("expected 1 song, got %d", len(wishlist.Songs))
	}

	rec = f.do(t, http.MethodDelete, "/api/wishlist/", "user1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
