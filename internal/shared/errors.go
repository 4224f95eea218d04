package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Credential lifecycle errors
	ErrStateMismatch = fmt.Errorf("authorization state mismatch")
	ErrNoCredential  = fmt.Errorf("no stored credential")
	ErrRefreshFailed = fmt.Errorf("credential refresh failed")

	// Catalog and provider errors
	ErrSearchFailed        = fmt.Errorf("catalog search failed")
	ErrUpstreamUnavailable = fmt.Errorf("remote provider unavailable")

	// Record errors
	ErrNotFound        = fmt.Errorf("not found")
	ErrAlreadyMigrated = fmt.Errorf("playlist already migrated")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
