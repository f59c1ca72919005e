package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Save key.Binding
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Save: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Quit: key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// bridgeKeys maps the bridge's key names to terminal key strings.
var bridgeKeys = map[string]string{
	"Ctrl-S": "ctrl+s",
}
