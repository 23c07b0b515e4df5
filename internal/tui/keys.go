package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle   key.Binding
	Preview  key.Binding
	Settings key.Binding
	Prev     key.Binding
	Next     key.Binding
	Inc      key.Binding
	Dec      key.Binding
	Close    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:   key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "start/stop")),
		Preview:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview bell")),
		Settings: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "settings")),
		Prev:     key.NewBinding(key.WithKeys("left", "up", "h", "k"), key.WithHelp("←/→", "select")),
		Next:     key.NewBinding(key.WithKeys("right", "down", "l", "j", "tab"), key.WithHelp("←/→", "select")),
		Inc:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "adjust")),
		Dec:      key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("+/-", "adjust")),
		Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

// mainKeys is the help shown on the timer screen.
type mainKeys struct{ k keyMap }

func (m mainKeys) ShortHelp() []key.Binding {
	return []key.Binding{m.k.Toggle, m.k.Preview, m.k.Settings, m.k.Quit}
}

func (m mainKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.k.Toggle, m.k.Preview}, {m.k.Settings, m.k.Help, m.k.Quit}}
}

// settingsKeys is the help shown on the settings screen.
type settingsKeys struct{ k keyMap }

func (s settingsKeys) ShortHelp() []key.Binding {
	return []key.Binding{s.k.Next, s.k.Inc, s.k.Preview, s.k.Close}
}

func (s settingsKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{s.k.Next, s.k.Inc}, {s.k.Preview, s.k.Close, s.k.Quit}}
}
