package review

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the review screen's keyboard shortcuts.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Matched key.Binding
	NoMatch key.Binding
	Skip    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Matched: key.NewBinding(
			key.WithKeys("m", "y"),
			key.WithHelp("m/y", "mark matched"),
		),
		NoMatch: key.NewBinding(
			key.WithKeys("n", "c"),
			key.WithHelp("n/c", "mark clear"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/Esc", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Matched, k.NoMatch, k.Skip, k.Quit}
}

// FullHelp returns all key bindings grouped for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Matched, k.NoMatch, k.Skip},
		{k.Help, k.Quit},
	}
}
