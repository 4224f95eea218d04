// package credentials manages the delegated-access lifecycle against the
// remote provider: building authorization URLs, completing the code exchange,
// and transparently refreshing expired access tokens.
package credentials

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"tunebridge/internal/models"
	"tunebridge/internal/repositories"
	"tunebridge/internal/shared"
)

// Scopes requested during authorization. Read-only access to the subject's
// playlists and profile is all the synchronizer needs.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// Store owns delegated-access credentials keyed by subject id. All reads and
// refreshes for one subject serialize on a per-subject lock so a burst of
// concurrent calls performs at most one refresh.
type Store struct {
	repo   *repositories.CredentialRepository
	config *oauth2.Config
	logger *log.Logger

	mu      sync.Mutex
	pending map[string]string
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewStore creates a credential store backed by the given repository.
func NewStore(cfg shared.ProviderConfig, repo *repositories.CredentialRepository, logger *log.Logger) *Store {
	return &Store{
		repo: repo,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		logger:  logger,
		pending: map[string]string{},
		locks:   map[string]*sync.Mutex{},
		now:     time.Now,
	}
}

// BeginAuthorization starts the authorization flow for a subject. When the
// subject already holds a live credential no new flow is started and already
// is true. Otherwise it returns the provider consent URL carrying a state of
// the form "<nonce>:<subjectID>".
func (s *Store) BeginAuthorization(subjectID string) (authURL string, already bool, err error) {
	if subjectID == "" {
		return "", false, fmt.Errorf("%w: subject id", shared.ErrMissingArgument)
	}

	cred, err := s.repo.Get(subjectID)
	if err == nil && !cred.Expired(s.now()) {
		return "", true, nil
	}
	if err != nil && !errors.Is(err, shared.ErrNoCredential) {
		return "", false, err
	}

	nonce, err := generateNonce()
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	s.pending[subjectID] = nonce
	s.mu.Unlock()

	state := nonce + ":" + subjectID
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline), false, nil
}

// CompleteAuthorization finishes the flow: it recovers the subject id from
// the self-contained state, exchanges the code for a token pair, and persists
// it. Returns the subject id the credential now belongs to. The state alone
// carries everything needed to resolve the subject, so a callback still
// completes after a process restart; a pending nonce, when one is held, is
// consumed and a mismatch only logged.
func (s *Store) CompleteAuthorization(ctx context.Context, state, code string) (string, error) {
	parts := strings.SplitN(state, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: malformed state", shared.ErrStateMismatch)
	}
	nonce, subjectID := parts[0], parts[1]

	s.mu.Lock()
	expected, ok := s.pending[subjectID]
	if ok {
		delete(s.pending, subjectID)
	}
	s.mu.Unlock()

	if ok && expected != nonce {
		s.logger.Warn("state nonce does not match the pending flow", "subject", subjectID)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: code exchange: %v", shared.ErrUpstreamUnavailable, err)
	}

	cred := &models.Credential{
		SubjectID:    subjectID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Scope:        strings.Join(Scopes, " "),
	}
	if err := s.repo.Upsert(cred); err != nil {
		return "", err
	}

	s.logger.Info("stored credential", "subject", subjectID, "expires_at", token.Expiry)
	return subjectID, nil
}

// AccessToken returns a live access token for the subject, refreshing the
// stored pair first when it has expired. A failed refresh leaves the stored
// credential untouched.
func (s *Store) AccessToken(ctx context.Context, subjectID string) (string, error) {
	lock := s.subjectLock(subjectID)
	lock.Lock()
	defer lock.Unlock()

	cred, err := s.repo.Get(subjectID)
	if err != nil {
		return "", err
	}

	if !cred.Expired(s.now()) {
		return cred.AccessToken, nil
	}

	refreshed, err := s.config.TokenSource(ctx, &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.ExpiresAt,
	}).Token()
	if err != nil {
		s.logger.Error("token refresh failed", "subject", subjectID, "error", err)
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	// Providers may or may not rotate the refresh token.
	refreshToken := refreshed.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}

	if err := s.repo.UpdateTokens(subjectID, refreshed.AccessToken, refreshToken, refreshed.Expiry); err != nil {
		return "", err
	}

	return refreshed.AccessToken, nil
}

// Disconnect drops any pending authorization state for the subject and
// deletes the stored credential. Disconnecting an unknown subject is a no-op.
func (s *Store) Disconnect(subjectID string) error {
	s.mu.Lock()
	delete(s.pending, subjectID)
	s.mu.Unlock()

	if err := s.repo.Delete(subjectID); err != nil {
		return err
	}

	s.logger.Info("credential removed", "subject", subjectID)
	return nil
}

func (s *Store) subjectLock(subjectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[subjectID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[subjectID] = lock
	}
	return lock
}

func generateNonce() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
