package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"tunebridge/internal/models"
)

var (
	_ list.Item = mirrorItem{}
	_ list.Item = trackItem{}
)

// mirrorItem wraps [models.MirrorPlaylist] to implement [list.Item].
type mirrorItem struct {
	mirror models.MirrorPlaylist
}

func (i mirrorItem) FilterValue() string { return i.mirror.Name }
func (i mirrorItem) Title() string       { return i.mirror.Name }
func (i mirrorItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.mirror.TotalTracks)
	if i.mirror.Migrated {
		desc = fmt.Sprintf("%s • migrated", desc)
	}
	if i.mirror.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.mirror.Description)
	}
	return desc
}

// trackItem wraps [models.RemoteTrack] to implement [list.Item].
type trackItem struct {
	track models.RemoteTrack
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := strings.Join(i.track.Artists, ", ")
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}
