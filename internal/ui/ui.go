package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"tunebridge/internal/models"
	"tunebridge/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	MirrorListView ViewState = iota
	TrackListView
	ConfirmView
	MigrateView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx            context.Context
	view           ViewState
	subjectID      string
	sync           *tasks.Synchronizer
	engine         *tasks.Engine
	width          int
	height         int
	mirrorList     list.Model
	mirrors        []models.MirrorPlaylist
	trackList      list.Model
	selectedMirror *models.MirrorPlaylist
	progressChan   chan tasks.ProgressUpdate
	progress       tasks.ProgressUpdate
	report         *models.MigrationReport
	err            error
	help           help.Model
	keys           keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, subjectID string, sync *tasks.Synchronizer, engine *tasks.Engine) *Model {
	return &Model{
		ctx:       ctx,
		view:      MirrorListView,
		subjectID: subjectID,
		sync:      sync,
		engine:    engine,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init kicks off a synchronization pass so the browser shows fresh snapshots.
func (m *Model) Init() tea.Cmd {
	return m.fetchMirrors()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.mirrorList.Width() == 0 {
			m.mirrorList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case MirrorListView:
			return m.handleMirrorListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case mirrorsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.mirrors = msg.mirrors
		items := make([]list.Item, len(msg.mirrors))
		for i, mir := range msg.mirrors {
			items[i] = mirrorItem{mirror: mir}
		}
		m.mirrorList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.mirrorList.Title = "Mirrored Playlists"
		m.mirrorList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case migrateCompleteMsg:
		m.report = msg.report
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case MirrorListView:
		return m.renderMirrorList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case MigrateView:
		return m.renderMigrate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleMirrorListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		selected := m.mirrorList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(mirrorItem); ok {
				m.openMirror(item.mirror)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.mirrorList, cmd = m.mirrorList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = MirrorListView
		return m, nil
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		m.view = TrackListView
		return m, nil
	case "y":
		m.view = MigrateView
		return m, m.startMigration()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = MirrorListView
		m.selectedMirror = nil
		m.report = nil
		m.err = nil
		return m, m.fetchMirrors()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case MirrorListView:
		m.mirrorList, cmd = m.mirrorList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchMirrors() tea.Cmd {
	return func() tea.Msg {
		mirrors, err := m.sync.RefreshMirror(m.ctx, m.subjectID, nil)
		return mirrorsFetchedMsg{mirrors: mirrors, err: err}
	}
}

// openMirror switches to the track preview for a selected snapshot. The
// tracks are already local, so no command is needed.
func (m *Model) openMirror(mirror models.MirrorPlaylist) {
	m.selectedMirror = &mirror
	items := make([]list.Item, len(mirror.Tracks))
	for i, track := range mirror.Tracks {
		items[i] = trackItem{track: track}
	}
	m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = fmt.Sprintf("Tracks in '%s'", mirror.Name)
	m.trackList.SetSize(m.width-4, m.height-8)
	m.view = TrackListView
}

func (m *Model) startMigration() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		report, err := m.engine.Migrate(m.ctx, m.subjectID, m.selectedMirror.RemoteID, m.progressChan)
		m.report = report
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return migrateCompleteMsg{report: m.report, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			m.progressChan = nil
			return migrateCompleteMsg{report: m.report, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderMirrorList() string {
	helpView := m.help.ShortHelpView(m.keys.browseHelp())
	return fmt.Sprintf("%s\n\n%s", m.mirrorList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpView := m.help.ShortHelpView(m.keys.previewHelp())
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Migrate '%s' into the local library?", m.selectedMirror.Name))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\n", m.selectedMirror.Name, len(m.selectedMirror.Tracks))
	if m.selectedMirror.Migrated {
		info += styles.warn.Render("\nThis playlist was already migrated; the run will be refused.\n")
	}

	helpView := m.help.ShortHelpView(m.keys.confirmHelp())

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderMigrate() string {
	title := styles.title.Render("Migrating Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.CreatePlaylist:
		phase = "Creating the local playlist..."
	case tasks.MatchTracks:
		phase = fmt.Sprintf("Matching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Finalize:
		phase = "Finalizing..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Migration failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	if m.report == nil {
		return styles.err.Render("No report available\n\nPress r to go back, q to quit")
	}

	title := styles.ok.Render("✓ Migration Complete!")
	info := fmt.Sprintf(
		"\nSource: %s (%d tracks)\nLocal playlist: %s\nMatched: %d/%d",
		m.selectedMirror.Name,
		m.report.TotalTracks,
		m.report.PlaylistID,
		m.report.MigratedCount,
		m.report.TotalTracks,
	)

	var failed string
	if m.report.FailedCount > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to match %d tracks:", m.report.FailedCount)))
		for _, f := range m.report.Failed {
			failed += fmt.Sprintf("\n  • %s - %s (%s)", strings.Join(f.Artists, ", "), f.SourceName, f.Reason)
		}
	}

	helpView := m.help.ShortHelpView(m.keys.resultHelp())

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
