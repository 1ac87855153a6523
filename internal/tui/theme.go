package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/calldesk/calldesk-cli/internal/calls"
)

// Readable on both light and dark terminal backgrounds.
var (
	textColor   = lipgloss.AdaptiveColor{Light: "#1f2a35", Dark: "#f4f7fb"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#6b7a88", Dark: "#b8c4cf"}
	accentColor = lipgloss.AdaptiveColor{Light: "#1d6fb8", Dark: "#5aa9e6"}
	okColor     = lipgloss.AdaptiveColor{Light: "#2f7d32", Dark: "#66bb6a"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#a15c00", Dark: "#f0a94b"}
	dangerColor = lipgloss.AdaptiveColor{Light: "#a32138", Dark: "#e05263"}
)

func faintIfDark(s lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return s.Faint(true)
	}
	return s
}

func statusColor(s calls.Status) lipgloss.TerminalColor {
	switch s {
	case calls.StatusScheduled:
		return accentColor
	case calls.StatusInProgress:
		return warnColor
	case calls.StatusCompleted:
		return okColor
	case calls.StatusCanceled:
		return dangerColor
	default:
		return mutedColor
	}
}

func statusStyle(s calls.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(statusColor(s)).Bold(s == calls.StatusInProgress)
}

func titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(textColor)
}

func mutedStyle() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(mutedColor))
}

func errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(dangerColor)
}

func activeInputStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(accentColor)
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.HiddenBorder()).
		Padding(0, 1).
		AlignVertical(lipgloss.Top).
		Align(lipgloss.Left)
}

func footerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true)
}

func minimalTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true).Padding(0, 1)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	// Typographic emphasis rather than color blocks.
	s.Selected = lipgloss.NewStyle().Bold(true).Underline(true)
	return s
}
