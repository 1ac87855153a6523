package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Back     key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Focus    key.Binding
	Today    key.Binding
	Week     key.Binding
	Month    key.Binding
	Clear    key.Binding
	History  key.Binding
	Refresh  key.Binding
	Start    key.Binding
	Finish   key.Binding
	Copy     key.Binding
	Dismiss  key.Binding
	Help     key.Binding
	Quit     key.Binding

	detail bool
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n/→", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p/←", "prev page"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "edit dates"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		Week: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "this week"),
		),
		Month: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "this month"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear range"),
		),
		History: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "history back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start call"),
		),
		Finish: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "finish call"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy id"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss error"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) forDetail() keyMap {
	k.detail = true
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	if k.detail {
		return []key.Binding{k.Back, k.Start, k.Finish, k.Refresh, k.Copy, k.Help, k.Quit}
	}
	return []key.Binding{k.Open, k.NextPage, k.PrevPage, k.Focus, k.Today, k.Week, k.Month, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	if k.detail {
		return [][]key.Binding{
			{k.Up, k.Down, k.Back},
			{k.Start, k.Finish, k.Dismiss},
			{k.Refresh, k.Copy},
			{k.Help, k.Quit},
		}
	}
	return [][]key.Binding{
		{k.Up, k.Down, k.Open},
		{k.NextPage, k.PrevPage, k.History, k.Refresh},
		{k.Focus, k.Today, k.Week, k.Month, k.Clear},
		{k.Help, k.Quit},
	}
}

var _ help.KeyMap = keyMap{}

func translateNavKeys(msg tea.KeyMsg) tea.KeyMsg {
	switch msg.String() {
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	default:
		return msg
	}
}
