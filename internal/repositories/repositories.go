// package repositories provides the sqlite persistence layer for credentials,
// mirror playlists, songs, playlists, wishlists and listening history.
//
// Uniqueness constraints (one credential per subject, one mirror per
// (subject, remote id), one song per external id) are enforced by the schema;
// repositories surface them as idempotent upserts.
package repositories

import "strings"

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. go-sqlite3 exposes these only through the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
