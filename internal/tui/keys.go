package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Strategy key.Binding
	Snap     key.Binding
	Rotate   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Strategy: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "switch strategy"),
		),
		Snap: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "track width"),
		),
		Rotate: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "orientation change"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Strategy, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Strategy, k.Snap, k.Rotate},
		{k.Help, k.Quit},
	}
}
