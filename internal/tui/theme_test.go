package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/calldesk/calldesk-cli/internal/calls"
)

func TestStatusStyle_ColorPerStatus(t *testing.T) {
	cases := map[calls.Status]lipgloss.TerminalColor{
		calls.StatusScheduled:  accentColor,
		calls.StatusInProgress: warnColor,
		calls.StatusCompleted:  okColor,
		calls.StatusCanceled:   dangerColor,
		calls.Status("weird"):  mutedColor,
	}
	for st, want := range cases {
		if got := statusStyle(st).GetForeground(); got != want {
			t.Fatalf("status %s: expected %v, got %v", st, want, got)
		}
	}
	if !statusStyle(calls.StatusInProgress).GetBold() {
		t.Fatalf("expected in-progress status to be bold")
	}
}

func TestMinimalTableStyles_SelectedIsTypographic(t *testing.T) {
	s := minimalTableStyles()
	if !s.Selected.GetBold() || !s.Selected.GetUnderline() {
		t.Fatalf("expected bold+underline selected row")
	}
	var wantNoColor lipgloss.TerminalColor = lipgloss.NoColor{}
	if got := s.Selected.GetBackground(); got != wantNoColor {
		t.Fatalf("expected no background on selected row, got %T", got)
	}
}
