package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tunebridge/internal/models"
	"tunebridge/internal/repositories"
	"tunebridge/internal/shared"
)

func newTestStore(t *testing.T, tokenURL string) (*Store, *repositories.CredentialRepository) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	repo := repositories.NewCredentialRepository(db)
	store := NewStore(shared.ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:5000/api/spotify/auth/callback",
		AuthURL:      "https://accounts.example.com/authorize",
		TokenURL:     tokenURL,
	}, repo, shared.NewLogger(io.Discard))

	return store, repo
}

func tokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestBeginAuthorization(t *testing.T) {
	store, repo := newTestStore(t, "https://accounts.example.com/api/token")

	t.Run("builds consent URL with composite state", func(t *testing.T) {
		authURL, already, err := store.BeginAuthorization("user42")
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		if already {
			t.Fatal("no credential stored yet, should not short-circuit")
		}

		parsed, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("failed to parse auth URL: %v", err)
		}

		state := parsed.Query().Get("state")
		nonce, subjectID, ok := strings.Cut(state, ":")
		if !ok {
			t.Fatalf("state %q missing separator", state)
		}
		if subjectID != "user42" {
			t.Errorf("expected subject user42 in state, got %q", subjectID)
		}
		if len(nonce) != 16 {
			t.Errorf("expected 16-char nonce, got %q", nonce)
		}
		if parsed.Query().Get("client_id") != "client" {
			t.Errorf("expected client_id in URL, got %q", parsed.Query().Get("client_id"))
		}
	})

	t.Run("short-circuits when credential is live", func(t *testing.T) {
		cred := &models.Credential{
			SubjectID:   "authorized",
			AccessToken: "live-token",
			ExpiresAt:   time.Now().Add(time.Hour),
		}
		if err := repo.Upsert(cred); err != nil {
			t.Fatalf("failed to seed credential: %v", err)
		}

		authURL, already, err := store.BeginAuthorization("authorized")
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		if !already {
			t.Error("expected short-circuit for live credential")
		}
		if authURL != "" {
			t.Errorf("expected empty URL, got %q", authURL)
		}
	})

	t.Run("expired credential restarts the flow", func(t *testing.T) {
		cred := &models.Credential{
			SubjectID:   "stale",
			AccessToken: "dead-token",
			ExpiresAt:   time.Now().Add(-time.Hour),
		}
		if err := repo.Upsert(cred); err != nil {
			t.Fatalf("failed to seed credential: %v", err)
		}

		authURL, already, err := store.BeginAuthorization("stale")
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		if already || authURL == "" {
			t.Errorf("expected a fresh consent URL, got already=%v url=%q", already, authURL)
		}
	})
}

func TestCompleteAuthorization(t *testing.T) {
	server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if r.PostFormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"granted","refresh_token":"keeper","token_type":"Bearer","expires_in":3600}`)
	})

	store, repo := newTestStore(t, server.URL)

	t.Run("round trip persists the token pair", func(t *testing.T) {
		authURL, _, err := store.BeginAuthorization("user42")
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}

		parsed, _ := url.Parse(authURL)
		state := parsed.Query().Get("state")

		subjectID, err := store.CompleteAuthorization(context.Background(), state, "good-code")
		if err != nil {
			t.Fatalf("failed to complete: %v", err)
		}
		if subjectID != "user42" {
			t.Errorf("expected subject user42, got %q", subjectID)
		}

		cred, err := repo.Get("user42")
		if err != nil {
			t.Fatalf("failed to load credential: %v", err)
		}
		if cred.AccessToken != "granted" || cred.RefreshToken != "keeper" {
			t.Errorf("unexpected stored pair: %q %q", cred.AccessToken, cred.RefreshToken)
		}
		if cred.Expired(time.Now()) {
			t.Error("freshly exchanged credential should not be expired")
		}
	})

	t.Run("malformed state", func(t *testing.T) {
		for _, state := range []string{"", "nonseparator", ":user42", "abc123:"} {
			_, err := store.CompleteAuthorization(context.Background(), state, "good-code")
			if !errors.Is(err, shared.ErrStateMismatch) {
				t.Errorf("state %q: expected ErrStateMismatch, got %v", state, err)
			}
		}
	})

	t.Run("state alone resolves the subject", func(t *testing.T) {
		// No pending flow exists, as after a process restart between the
		// consent redirect and the callback.
		subjectID, err := store.CompleteAuthorization(context.Background(), "abc123:user99", "good-code")
		if err != nil {
			t.Fatalf("well-formed state should complete: %v", err)
		}
		if subjectID != "user99" {
			t.Errorf("expected subject user99, got %q", subjectID)
		}

		cred, err := repo.Get("user99")
		if err != nil {
			t.Fatalf("failed to load credential: %v", err)
		}
		if cred.AccessToken != "granted" {
			t.Errorf("unexpected stored token: %q", cred.AccessToken)
		}
	})

	t.Run("pending nonce is consumed on completion", func(t *testing.T) {
		authURL, _, err := store.BeginAuthorization("user7")
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		parsed, _ := url.Parse(authURL)
		state := parsed.Query().Get("state")

		if _, err := store.CompleteAuthorization(context.Background(), state, "good-code"); err != nil {
			t.Fatalf("first completion failed: %v", err)
		}

		store.mu.Lock()
		_, held := store.pending["user7"]
		store.mu.Unlock()
		if held {
			t.Error("pending nonce should be dropped after completion")
		}
	})
}

func TestAccessToken(t *testing.T) {
	t.Run("missing credential", func(t *testing.T) {
		store, _ := newTestStore(t, "https://accounts.example.com/api/token")
		_, err := store.AccessToken(context.Background(), "nobody")
		if !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential, got %v", err)
		}
	})

	t.Run("live token returned without refresh", func(t *testing.T) {
		server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("token endpoint should not be called for a live credential")
		})
		store, repo := newTestStore(t, server.URL)

		cred := &models.Credential{
			SubjectID:    "user1",
			AccessToken:  "still-good",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		}
		if err := repo.Upsert(cred); err != nil {
			t.Fatalf("failed to seed credential: %v", err)
		}

		token, err := store.AccessToken(context.Background(), "user1")
		if err != nil {
			t.Fatalf("failed to get token: %v", err)
		}
		if token != "still-good" {
			t.Errorf("expected stored token, got %q", token)
		}
	})

	t.Run("expired token is refreshed and stored atomically", func(t *testing.T) {
		server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("failed to parse refresh request: %v", err)
			}
			if r.PostFormValue("grant_type") != "refresh_token" {
				t.Errorf("expected refresh_token grant, got %q", r.PostFormValue("grant_type"))
			}
			if r.PostFormValue("refresh_token") != "refresh" {
				t.Errorf("unexpected refresh token %q", r.PostFormValue("refresh_token"))
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"renewed","token_type":"Bearer","expires_in":3600}`)
		})
		store, repo := newTestStore(t, server.URL)

		cred := &models.Credential{
			SubjectID:    "user1",
			AccessToken:  "expired",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(-time.Minute),
		}
		if err := repo.Upsert(cred); err != nil {
			t.Fatalf("failed to seed credential: %v", err)
		}

		token, err := store.AccessToken(context.Background(), "user1")
		if err != nil {
			t.Fatalf("failed to refresh: %v", err)
		}
		if token != "renewed" {
			t.Errorf("expected renewed token, got %q", token)
		}

		stored, err := repo.Get("user1")
		if err != nil {
			t.Fatalf("failed to load credential: %v", err)
		}
		if stored.AccessToken != "renewed" {
			t.Errorf("expected persisted access token, got %q", stored.AccessToken)
		}
		if stored.RefreshToken != "refresh" {
			t.Errorf("refresh token must survive when provider does not rotate it, got %q", stored.RefreshToken)
		}
		if stored.Expired(time.Now()) {
			t.Error("persisted expiry should be in the future")
		}
	})

	t.Run("failed refresh leaves stored pair untouched", func(t *testing.T) {
		server := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
		})
		store, repo := newTestStore(t, server.URL)

		expiry := time.Now().Add(-time.Minute).UTC().Truncate(time.Second)
		cred := &models.Credential{
			SubjectID:    "user1",
			AccessToken:  "expired",
			RefreshToken: "revoked",
			ExpiresAt:    expiry,
		}
		if err := repo.Upsert(cred); err != nil {
			t.Fatalf("failed to seed credential: %v", err)
		}

		_, err := store.AccessToken(context.Background(), "user1")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}

		stored, err := repo.Get("user1")
		if err != nil {
			t.Fatalf("failed to load credential: %v", err)
		}
		if stored.AccessToken != "expired" || stored.RefreshToken != "revoked" {
			t.Errorf("stored pair changed after failed refresh: %q %q", stored.AccessToken, stored.RefreshToken)
		}
		if !stored.ExpiresAt.UTC().Truncate(time.Second).Equal(expiry) {
			t.Errorf("stored expiry changed after failed refresh: %v", stored.ExpiresAt)
		}
	})
}

func TestDisconnect(t *testing.T) {
	store, repo := newTestStore(t, "https://accounts.example.com/api/token")

	cred := &models.Credential{
		SubjectID:    "user1",
		AccessToken:  "live",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := repo.Upsert(cred); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}
	if _, _, err := store.BeginAuthorization("user2"); err != nil {
		t.Fatalf("failed to begin flow: %v", err)
	}

	if err := store.Disconnect("user1"); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if _, err := repo.Get("user1"); !errors.Is(err, shared.ErrNoCredential) {
		t.Errorf("expected credential to be gone, got %v", err)
	}

	if err := store.Disconnect("user2"); err != nil {
		t.Fatalf("disconnecting a pending flow failed: %v", err)
	}
	store.mu.Lock()
	_, held := store.pending["user2"]
	store.mu.Unlock()
	if held {
		t.Error("pending state should be dropped on disconnect")
	}

	if err := store.Disconnect("nobody"); err != nil {
		t.Errorf("disconnecting an unknown subject should be a no-op, got %v", err)
	}
}
