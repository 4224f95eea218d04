// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func subjectFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "subject",
		Aliases:  []string{"s"},
		Usage:    "Subject (user) identifier",
		Required: true,
	}
}

// setupCommand initializes configuration and the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize configuration, database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// serveCommand runs the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the bridge HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides the config file",
			},
		},
		Action: r.Serve,
	}
}

// syncCommand refreshes a subject's playlist mirror
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror a subject's Spotify playlists locally",
		Flags: []cli.Flag{
			configFlag(),
			subjectFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Sync,
	}
}

// migrateCommand migrates one mirrored playlist into the catalog
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Migrate a mirrored playlist into the local catalog",
		Flags: []cli.Flag{
			configFlag(),
			subjectFlag(),
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Remote playlist ID to migrate",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Migrate,
	}
}

// searchCommand queries the local catalog
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the local music catalog",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "kind",
				Usage: "What to search: songs, albums, playlists or lyrics",
				Value: "songs",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Search,
	}
}

// tuiCommand launches the interactive migration browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse mirrored playlists and migrate interactively",
		Flags: []cli.Flag{
			configFlag(),
			subjectFlag(),
		},
		Action: r.TUI,
	}
}
