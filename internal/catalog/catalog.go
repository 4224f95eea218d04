// package catalog wraps the local music catalog's public text-search API
// (songs, albums, playlists, lyrics) behind per-kind TTL caches.
//
// The upstream sends one of two response envelopes,
// {success, data: {results, total}} or a bare {results}; both normalize to
// [Results]. Transport and non-2xx failures map to [shared.ErrSearchFailed]
// without echoing upstream bodies, and the client never retries. Retry
// policy belongs to callers.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"tunebridge/internal/cache"
	"tunebridge/internal/shared"
)

// Image is one rendition of a piece of artwork.
type Image struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// DownloadLink is one quality variant of a song's media URL.
type DownloadLink struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// AlbumRef is the album a song belongs to.
type AlbumRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Artist is one credited artist on a song or album.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
	Type string `json:"type,omitempty"`
	URL  string `json:"url,omitempty"`
}

// SongArtists groups a song's artist credits.
type SongArtists struct {
	Primary  []Artist `json:"primary"`
	Featured []Artist `json:"featured"`
	All      []Artist `json:"all"`
}

// Song is one catalog song as returned by search and lookup endpoints.
type Song struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            string         `json:"type"`
	Year            int            `json:"year"`
	ReleaseDate     string         `json:"releaseDate,omitempty"`
	Duration        int            `json:"duration"`
	Label           string         `json:"label,omitempty"`
	ExplicitContent bool           `json:"explicitContent"`
	PlayCount       int            `json:"playCount,omitempty"`
	Language        string         `json:"language"`
	HasLyrics       bool           `json:"hasLyrics"`
	LyricsID        string         `json:"lyricsId,omitempty"`
	URL             string         `json:"url"`
	Copyright       string         `json:"copyright,omitempty"`
	Album           AlbumRef       `json:"album"`
	Artists         SongArtists    `json:"artists"`
	Image           []Image        `json:"image"`
	DownloadURL     []DownloadLink `json:"downloadUrl"`
	Lyrics          string         `json:"lyrics,omitempty"`
}

// PlaylistResult is one catalog playlist search hit.
type PlaylistResult struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	URL       string  `json:"url"`
	Language  string  `json:"language,omitempty"`
	SongCount int     `json:"songCount"`
	Image     []Image `json:"image"`
}

// AlbumResult is one catalog album search hit.
type AlbumResult struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Year     int      `json:"year"`
	Language string   `json:"language,omitempty"`
	Artists  []Artist `json:"artists,omitempty"`
	Image    []Image  `json:"image"`
}

// Lyrics is the catalog's lyrics lookup payload.
type Lyrics struct {
	Lyrics    string `json:"lyrics"`
	Snippet   string `json:"snippet,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

// Results is the normalized search response shape.
type Results[T any] struct {
	Status  bool `json:"status"`
	Results []T  `json:"results"`
	Total   int  `json:"total,omitempty"`
}

// envelope is the tagged union of the two upstream response shapes.
type envelope[T any] struct {
	Success bool     `json:"success"`
	Data    *page[T] `json:"data"`
	Results []T      `json:"results"`
}

type page[T any] struct {
	Results []T `json:"results"`
	Total   int `json:"total"`
}

// normalize collapses an envelope to Results. When neither shape is
// recognized, an empty result set is returned rather than an error.
func normalize[T any](env envelope[T]) Results[T] {
	switch {
	case env.Success && env.Data != nil:
		return Results[T]{Status: true, Results: env.Data.Results, Total: env.Data.Total}
	case env.Results != nil:
		return Results[T]{Status: true, Results: env.Results}
	default:
		return Results[T]{Status: true, Results: []T{}}
	}
}

// CacheTTLs configures the lifetime of each cache namespace. Volatility
// differs per data kind, so each gets its own instance.
type CacheTTLs struct {
	Search   time.Duration
	Song     time.Duration
	Playlist time.Duration
	Album    time.Duration
	Lyrics   time.Duration
}

// DefaultTTLs returns the recommended cache lifetimes.
func DefaultTTLs() CacheTTLs {
	return CacheTTLs{
		Search:   30 * time.Minute,
		Song:     60 * time.Minute,
		Playlist: 45 * time.Minute,
		Album:    45 * time.Minute,
		Lyrics:   120 * time.Minute,
	}
}

// CacheStats reports the entry count of each cache namespace.
type CacheStats struct {
	Search    int `json:"search_cache"`
	Songs     int `json:"song_cache"`
	Playlists int `json:"playlist_cache"`
	Albums    int `json:"album_cache"`
	Lyrics    int `json:"lyrics_cache"`
}

// Client is the catalog search client. Each instance owns its cache
// instances; nothing is shared at package level.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger

	searchCache   *cache.Cache[Results[Song]]
	songCache     *cache.Cache[*Song]
	playlistCache *cache.Cache[Results[PlaylistResult]]
	albumCache    *cache.Cache[Results[AlbumResult]]
	lyricsCache   *cache.Cache[*Lyrics]
}

// NewClient creates a catalog client for the given base URL. The HTTP client
// defaults to one with a 20 second timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Logger, ttls CacheTTLs) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:       baseURL,
		httpClient:    httpClient,
		logger:        logger,
		searchCache:   cache.New[Results[Song]](ttls.Search),
		songCache:     cache.New[*Song](ttls.Song),
		playlistCache: cache.New[Results[PlaylistResult]](ttls.Playlist),
		albumCache:    cache.New[Results[AlbumResult]](ttls.Album),
		lyricsCache:   cache.New[*Lyrics](ttls.Lyrics),
	}
}

// get performs one GET against the catalog and decodes the body into out.
// Failures surface as ErrSearchFailed; the upstream body is logged, never
// returned.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request", shared.ErrSearchFailed)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("catalog request failed", "path", path, "err", err)
		return fmt.Errorf("%w: request failed", shared.ErrSearchFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("catalog returned non-2xx", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", shared.ErrSearchFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response", shared.ErrSearchFailed)
	}

	return nil
}

// SearchSongs performs a free-text song search.
func (c *Client) SearchSongs(ctx context.Context, query string) (Results[Song], error) {
	key := fmt.Sprintf("search_songs_%s", query)
	if cached, ok := c.searchCache.Get(key); ok {
		return cached, nil
	}

	var env envelope[Song]
	if err := c.get(ctx, "/search/songs?query="+url.QueryEscape(query), &env); err != nil {
		return Results[Song]{}, err
	}

	result := normalize(env)
	c.searchCache.Set(key, result)
	return result, nil
}

// SongByID fetches one song by its catalog id, optionally with lyrics.
func (c *Client) SongByID(ctx context.Context, id string, lyrics bool) (*Song, error) {
	key := fmt.Sprintf("song_%s_%t", id, lyrics)
	if cached, ok := c.songCache.Get(key); ok {
		return cached, nil
	}

	path := fmt.Sprintf("/songs/get/?id=%s&lyrics=%t", url.QueryEscape(id), lyrics)

	// The lookup endpoint answers with either {success, data: [song]} or a
	// bare song object.
	var wrapped struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, path, &wrapped); err != nil {
		return nil, err
	}

	song, err := decodeSong(wrapped.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: unrecognized song payload", shared.ErrSearchFailed)
	}
	if song == nil {
		return nil, fmt.Errorf("%w: song %s", shared.ErrNotFound, id)
	}

	c.songCache.Set(key, song)
	return song, nil
}

// decodeSong accepts either a single song object or a one-element array.
func decodeSong(raw json.RawMessage) (*Song, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var many []Song
	if err := json.Unmarshal(raw, &many); err == nil {
		if len(many) == 0 {
			return nil, nil
		}
		return &many[0], nil
	}

	var one Song
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	if one.ID == "" {
		return nil, nil
	}
	return &one, nil
}

// SearchPlaylists performs a free-text playlist search.
func (c *Client) SearchPlaylists(ctx context.Context, query string) (Results[PlaylistResult], error) {
	key := fmt.Sprintf("search_playlists_%s", query)
	if cached, ok := c.playlistCache.Get(key); ok {
		return cached, nil
	}

	var env envelope[PlaylistResult]
	if err := c.get(ctx, "/search/playlists?query="+url.QueryEscape(query), &env); err != nil {
		return Results[PlaylistResult]{}, err
	}

	result := normalize(env)
	c.playlistCache.Set(key, result)
	return result, nil
}

// SearchAlbums performs a free-text album search.
func (c *Client) SearchAlbums(ctx context.Context, query string) (Results[AlbumResult], error) {
	key := fmt.Sprintf("search_albums_%s", query)
	if cached, ok := c.albumCache.Get(key); ok {
		return cached, nil
	}

	var env envelope[AlbumResult]
	if err := c.get(ctx, "/search/albums?query="+url.QueryEscape(query), &env); err != nil {
		return Results[AlbumResult]{}, err
	}

	result := normalize(env)
	c.albumCache.Set(key, result)
	return result, nil
}

// GetLyrics performs a free-text lyrics lookup.
func (c *Client) GetLyrics(ctx context.Context, query string) (*Lyrics, error) {
	key := fmt.Sprintf("lyrics_%s", query)
	if cached, ok := c.lyricsCache.Get(key); ok {
		return cached, nil
	}

	var wrapped struct {
		Success bool    `json:"success"`
		Data    *Lyrics `json:"data"`
		Lyrics  string  `json:"lyrics"`
	}
	if err := c.get(ctx, "/lyrics/?query="+url.QueryEscape(query), &wrapped); err != nil {
		return nil, err
	}

	result := wrapped.Data
	if result == nil {
		result = &Lyrics{Lyrics: wrapped.Lyrics}
	}

	c.lyricsCache.Set(key, result)
	return result, nil
}

// Stats returns per-namespace cache entry counts.
func (c *Client) Stats() CacheStats {
	return CacheStats{
		Search:    c.searchCache.Size(),
		Songs:     c.songCache.Size(),
		Playlists: c.playlistCache.Size(),
		Albums:    c.albumCache.Size(),
		Lyrics:    c.lyricsCache.Size(),
	}
}

// ClearCaches empties every cache namespace.
func (c *Client) ClearCaches() {
	c.searchCache.Clear()
	c.songCache.Clear()
	c.playlistCache.Clear()
	c.albumCache.Clear()
	c.lyricsCache.Clear()
}
