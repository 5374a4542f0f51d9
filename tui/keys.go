package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Scan        key.Binding
	Clear       key.Binding
	SafeExample key.Binding
	SpamExample key.Binding
	Health      key.Binding
	Inbox       key.Binding
	Quit        key.Binding

	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Ignore key.Binding
	Back   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Scan:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "scan")),
		Clear:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "clear")),
		SafeExample: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "safe example")),
		SpamExample: key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "spam example")),
		Health:      key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "health")),
		Inbox:       key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "inbox")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),

		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "scan message")),
		Ignore: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "ignore sender")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

func hint(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += " | "
		}
		h := b.Help()
		out += "[" + h.Key + "]:" + h.Desc
	}
	return out
}
