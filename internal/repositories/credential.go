package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tunebridge/internal/models"
	"tunebridge/internal/shared"
)

// CredentialRepository persists one provider credential per subject.
//
// Credentials are keyed by the external subject identifier everywhere; no
// internal numeric key exists.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get retrieves the credential for a subject.
func (r *CredentialRepository) Get(subjectID string) (*models.Credential, error) {
	query := `
		SELECT subject_id, access_token, refresh_token, expires_at, scope, created_at, updated_at
		FROM credentials
		WHERE subject_id = ?
	`

	var (
		cred  models.Credential
		scope sql.NullString
	)

	err := r.db.QueryRow(query, subjectID).Scan(
		&cred.SubjectID,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.ExpiresAt,
		&scope,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: subject %s", shared.ErrNoCredential, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	cred.Scope = scope.String
	return &cred, nil
}

// Upsert inserts or replaces the credential for cred.SubjectID. Re-running a
// completed authorization lands here and is safe.
func (r *CredentialRepository) Upsert(cred *models.Credential) error {
	now := time.Now()
	cred.UpdatedAt = now
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}

	query := `
		INSERT INTO credentials (subject_id, access_token, refresh_token, expires_at, scope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		cred.SubjectID,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
		cred.Scope,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}

// UpdateTokens writes a refreshed (access token, expiry) pair, plus the
// refresh token (which may or may not have rotated), in one statement so a
// failure can never leave a half-updated pair behind.
func (r *CredentialRepository) UpdateTokens(subjectID, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE credentials
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ?
		WHERE subject_id = ?
	`

	result, err := r.db.Exec(query, accessToken, refreshToken, expiresAt, time.Now(), subjectID)
	if err != nil {
		return fmt.Errorf("failed to update credential tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: subject %s", shared.ErrNoCredential, subjectID)
	}

	return nil
}

// Delete removes the subject's stored credential. Deleting a subject with no
// credential is a no-op.
func (r *CredentialRepository) Delete(subjectID string) error {
	if _, err := r.db.Exec("DELETE FROM credentials WHERE subject_id = ?", subjectID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
