package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"tunebridge/internal/shared"
)

// Search queries the local catalog and prints the hits.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	stack, err := r.connect()
	if err != nil {
		return err
	}
	defer stack.Close()

	kind := cmd.String("kind")
	asJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	switch kind {
	case "songs":
		results, err := stack.catalog.SearchSongs(ctx, query)
		if err != nil {
			return err
		}
		if asJSON {
			return r.writeJSON(results, pretty)
		}
		r.writePlainHeader(fmt.Sprintf("Songs matching %q", query))
		for _, song := range results.Results {
			r.writePlain("%s (%s, %d) id=%s\n", song.Name, song.Language, song.Year, song.ID)
		}
		return nil
	case "albums":
		results, err := stack.catalog.SearchAlbums(ctx, query)
		if err != nil {
			return err
		}
		if asJSON {
			return r.writeJSON(results, pretty)
		}
		r.writePlainHeader(fmt.Sprintf("Albums matching %q", query))
		for _, album := range results.Results {
			r.writePlain("%s (%d) id=%s\n", album.Name, album.Year, album.ID)
		}
		return nil
	case "playlists":
		results, err := stack.catalog.SearchPlaylists(ctx, query)
		if err != nil {
			return err
		}
		if asJSON {
			return r.writeJSON(results, pretty)
		}
		r.writePlainHeader(fmt.Sprintf("Playlists matching %q", query))
		for _, playlist := range results.Results {
			r.writePlain("%s (%d songs) id=%s\n", playlist.Name, playlist.SongCount, playlist.ID)
		}
		return nil
	case "lyrics":
		lyrics, err := stack.catalog.GetLyrics(ctx, query)
		if err != nil {
			return err
		}
		if asJSON {
			return r.writeJSON(lyrics, pretty)
		}
		return r.writePlain("%s\n", lyrics.Lyrics)
	default:
		return fmt.Errorf("%w: unknown kind %q", shared.ErrInvalidInput, kind)
	}
}
