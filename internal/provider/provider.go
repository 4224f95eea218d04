// package provider is a thin read-only client for the remote streaming
// provider's web API. Response types based on
// https://developer.spotify.com/documentation/web-api/reference/
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"tunebridge/internal/shared"
)

// playlistPageLimit is the single page size fetched per synchronization
// pass. Subjects with more playlists see only the first page.
const playlistPageLimit = 50

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents an artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album represents the album a track belongs to.
type Album struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track represents one track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	PreviewURL string   `json:"preview_url"`
}

// PlaylistTrack represents a track within a playlist context.
type PlaylistTrack struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// TrackPage is the track listing embedded in a full playlist object.
type TrackPage struct {
	Total int             `json:"total"`
	Items []PlaylistTrack `json:"items"`
}

// Playlist represents a full playlist object with its tracks.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Images      []Image   `json:"images"`
	Tracks      TrackPage `json:"tracks"`
}

// TrackCount is the bare track total on a simplified playlist.
type TrackCount struct {
	Total int `json:"total"`
}

// SimplePlaylist represents a simplified playlist object (used in lists).
type SimplePlaylist struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Images      []Image    `json:"images"`
	Tracks      TrackCount `json:"tracks"`
}

// PaginatedPlaylists represents a paginated response of playlists.
type PaginatedPlaylists struct {
	Items  []SimplePlaylist `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Next   *string          `json:"next"`
}

// Client performs authenticated requests against the provider API. Tokens
// are supplied per call so one client serves every subject.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a provider client rooted at baseURL. A nil httpClient
// gets a default with a 20 second timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}
}

// Playlists fetches the first page of the subject's playlists.
func (c *Client) Playlists(ctx context.Context, token string) ([]SimplePlaylist, error) {
	endpoint := fmt.Sprintf("/me/playlists?limit=%d", playlistPageLimit)

	var page PaginatedPlaylists
	if err := c.doRequest(ctx, token, endpoint, &page); err != nil {
		return nil, err
	}

	if page.Next != nil {
		c.logger.Debug("subject has more playlists than one page", "total", page.Total)
	}

	return page.Items, nil
}

// Playlist fetches one playlist with its full track listing.
func (c *Client) Playlist(ctx context.Context, token, id string) (*Playlist, error) {
	var playlist Playlist
	if err := c.doRequest(ctx, token, "/playlists/"+id, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// doRequest performs an authenticated GET against the provider API.
func (c *Client) doRequest(ctx context.Context, token, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("provider request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", shared.ErrUpstreamUnavailable, err)
	}

	return nil
}
