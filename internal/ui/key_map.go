package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the workflow bindings layered on top of the list views, which
// bring their own movement keys from bubbles/list. Enter is context-sensitive:
// it opens a playlist in the browser and starts a migration from the preview.
type keyMap struct {
	open    key.Binding
	migrate key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	again   key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open playlist")),
		migrate: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "migrate")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
		again:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "back to playlists")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// Help rows per view, rendered through help.Model.ShortHelpView.
func (k keyMap) browseHelp() []key.Binding  { return []key.Binding{k.open, k.quit} }
func (k keyMap) previewHelp() []key.Binding { return []key.Binding{k.migrate, k.back, k.quit} }
func (k keyMap) confirmHelp() []key.Binding { return []key.Binding{k.yes, k.no, k.quit} }
func (k keyMap) resultHelp() []key.Binding  { return []key.Binding{k.again, k.quit} }
