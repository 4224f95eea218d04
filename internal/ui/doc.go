// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for migrating mirrored playlists:
//  1. [MirrorListView] : Browse the subject's synchronized remote playlists
//  2. [TrackListView] : Preview the snapshot's tracks before migrating
//  3. [ConfirmView] : Confirm the migration
//  4. [MigrateView] : Monitor real-time progress updates
//  5. [ResultView] : Display the migration report and failed matches
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving typed messages.
// Progress updates flow through a channel from the migration engine, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
