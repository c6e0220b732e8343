package tui

import "github.com/charmbracelet/bubbles/key"

type keymap struct {
	Open,
	Search,
	Copy,
	Delete,
	Confirm,
	Back,
	Help,
	Quit key.Binding
	listMode bool
}

// ShortHelp implements help.KeyMap.
func (k keymap) ShortHelp() []key.Binding {
	if k.listMode {
		return []key.Binding{k.Open, k.Search, k.Copy, k.Help, k.Quit}
	}
	return []key.Binding{
		key.NewBinding(
			key.WithKeys("up", "down"),
			key.WithHelp("↓↑", "scroll"),
		),
		k.Back,
		k.Delete,
		k.Copy,
	}
}

// FullHelp implements help.KeyMap.
func (k keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Search, k.Back},
		{k.Copy, k.Delete, k.Confirm},
		{k.Help, k.Quit},
	}
}

func defaultKeymap() keymap {
	return keymap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy id"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm delete"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// forList returns the keymap as shown under the session list
func (k keymap) forList() keymap {
	k.listMode = true
	return k
}
