package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"tunebridge/internal/catalog"
	"tunebridge/internal/credentials"
	"tunebridge/internal/library"
	"tunebridge/internal/provider"
	"tunebridge/internal/repositories"
	"tunebridge/internal/shared"
	"tunebridge/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, syncCommand, migrateCommand, searchCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stack bundles the connected services behind one database handle.
type stack struct {
	db        *sql.DB
	catalog   *catalog.Client
	creds     *credentials.Store
	remote    *provider.Client
	sync      *tasks.Synchronizer
	engine    *tasks.Engine
	library   *library.Service
	mirrors   *repositories.MirrorRepository
	playlists *repositories.PlaylistRepository
}

func (s *stack) Close() error {
	return s.db.Close()
}

// connect opens the database and wires every service against it. Callers own
// the returned stack and must Close it.
func (r *Runner) connect() (*stack, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	credRepo := repositories.NewCredentialRepository(db)
	mirrorRepo := repositories.NewMirrorRepository(db)
	songRepo := repositories.NewSongRepository(db)
	playlistRepo := repositories.NewPlaylistRepository(db)
	wishlistRepo := repositories.NewWishlistRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)

	cat := catalog.NewClient(r.config.Catalog.BaseURL, r.catalogHTTPClient(), r.logger, catalog.DefaultTTLs())
	creds := credentials.NewStore(r.config.Provider, credRepo, r.logger)
	remote := provider.NewClient(r.config.Provider.APIURL, r.httpClient, r.logger)

	trackDelay := time.Duration(r.config.Migration.TrackDelayMS) * time.Millisecond

	return &stack{
		db:        db,
		catalog:   cat,
		creds:     creds,
		remote:    remote,
		sync:      tasks.NewSynchronizer(creds, remote, mirrorRepo, playlistRepo, r.logger),
		engine:    tasks.NewEngine(mirrorRepo, playlistRepo, songRepo, cat, tasks.FirstMatch{}, trackDelay, r.logger),
		library:   library.NewService(songRepo, playlistRepo, wishlistRepo, historyRepo, cat, r.logger),
		mirrors:   mirrorRepo,
		playlists: playlistRepo,
	}, nil
}

func (r *Runner) catalogHTTPClient() *http.Client {
	timeout := time.Duration(r.config.Catalog.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		return r.httpClient
	}
	return &http.Client{Timeout: timeout, Transport: r.httpClient.Transport}
}

// loadConfig re-reads the config file named by the command's --config flag,
// falling back to the Runner's current config.
func (r *Runner) loadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", configPath, "error", err)
		return
	}
	r.config = config
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
