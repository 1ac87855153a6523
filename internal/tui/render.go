package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/dustin/go-humanize"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/pagination"
	"github.com/calldesk/calldesk-cli/internal/query"
	"github.com/calldesk/calldesk-cli/internal/stream"
)

const timeLayout = "Mon Jan 2 15:04"

func callColumns(total int) []table.Column {
	// id | status | caller | agent | scheduled | duration
	fixed := []int{10, 12, 0, 10, 16, 9}
	pad := 2 * len(fixed)
	used := pad
	for _, w := range fixed {
		used += w
	}
	caller := total - used
	if caller < 12 {
		caller = 12
	}
	return []table.Column{
		{Title: "ID", Width: fixed[0]},
		{Title: "Status", Width: fixed[1]},
		{Title: "Caller", Width: caller},
		{Title: "Agent", Width: fixed[3]},
		{Title: "Scheduled", Width: fixed[4]},
		{Title: "Duration", Width: fixed[5]},
	}
}

func callRows(items []calls.Call, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, c := range items {
		rows = append(rows, table.Row{
			c.ID,
			string(c.Status),
			cmpOrDash(c.Caller),
			cmpOrDash(c.Agent),
			relTime(c.ScheduledAt, now),
			formatDuration(c, now),
		})
	}
	return rows
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatDuration(c calls.Call, now time.Time) string {
	if c.StartedAt == nil {
		return "-"
	}
	end := now
	if c.EndedAt != nil {
		end = *c.EndedAt
	}
	d := end.Sub(*c.StartedAt).Round(time.Second)
	if d < 0 {
		return "-"
	}
	return d.String()
}

func formatOffset(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func renderFilterSummary(q query.Query, preset string) string {
	from, to := cmpOrDash(q.From), cmpOrDash(q.To)
	out := fmt.Sprintf("from %s  to %s", from, to)
	if preset != "" {
		out += "  (" + preset + ")"
	}
	return out
}

func renderPageStrip(q query.Query, res *calls.ListResponse) string {
	if res == nil || res.TotalPages <= 1 {
		return ""
	}
	return pagination.Render(pagination.Buttons(q.Page, res.TotalPages), q.Page)
}

func listStatusLine(st stream.ListState) string {
	switch {
	case st.Err != nil:
		return "Failed to load calls: " + st.Err.Error()
	case st.Result == nil && st.Loading:
		return "Loading calls…"
	case st.Result == nil:
		return ""
	case st.Result.Total == 0:
		return "No calls match these filters."
	}
	res := st.Result
	line := fmt.Sprintf("%s %s · page %d of %d",
		humanize.Comma(int64(res.Total)), plural(res.Total, "call", "calls"), st.Query.Page, maxInt(res.TotalPages, 1))
	if st.Loading {
		line += " · refreshing…"
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func renderDetail(st stream.DetailState, act stream.ActionState, now time.Time) string {
	var b strings.Builder
	if errors.Is(st.Err, stream.ErrNoCallID) {
		return errorStyle().Render("No call selected.")
	}
	if st.Call == nil {
		switch {
		case st.Err != nil:
			b.WriteString(errorStyle().Render(st.Err.Error()))
		case st.Loading:
			b.WriteString("Loading call…")
		}
		return b.String()
	}

	c := st.Call
	b.WriteString(titleStyle().Render("Call " + c.ID))
	b.WriteString("  ")
	b.WriteString(statusStyle(c.Status).Render(string(c.Status)))
	if st.Loading {
		b.WriteString(mutedStyle().Render("  refreshing…"))
	}
	b.WriteString("\n\n")

	field := func(label, value string) {
		fmt.Fprintf(&b, "%-10s %s\n", label, value)
	}
	field("Caller", cmpOrDash(c.Caller))
	field("Phone", cmpOrDash(c.PhoneNumber))
	field("Agent", cmpOrDash(c.Agent))
	field("Scheduled", formatStamp(&c.ScheduledAt, now))
	field("Started", formatStamp(c.StartedAt, now))
	field("Ended", formatStamp(c.EndedAt, now))
	field("Duration", formatDuration(*c, now))
	if strings.TrimSpace(c.Notes) != "" {
		field("Notes", c.Notes)
	}

	if st.Err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle().Render(st.Err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderActions(c, act))

	if c.Status == calls.StatusCompleted {
		b.WriteString("\n\n")
		b.WriteString(titleStyle().Render("Transcript"))
		b.WriteString("\n")
		b.WriteString(renderTranscript(st.Transcript, st.TranscriptLoading))
	}
	return b.String()
}

func renderActions(c *calls.Call, act stream.ActionState) string {
	if act.Phase == stream.ActionInFlight && act.CallID == c.ID {
		if act.Kind == stream.ActionStart {
			return mutedStyle().Render("Starting call…")
		}
		return mutedStyle().Render("Finishing call…")
	}
	var parts []string
	if stream.CanStart(c) {
		parts = append(parts, "[s] start call")
	}
	if stream.CanFinish(c) {
		parts = append(parts, "[f] finish call")
	}
	out := ""
	if len(parts) > 0 {
		out = activeInputStyle().Render(strings.Join(parts, "  "))
	}
	if act.Phase == stream.ActionError && act.Err != nil {
		if out != "" {
			out += "\n"
		}
		out += errorStyle().Render(act.Err.Error()) + mutedStyle().Render("  (x to dismiss)")
	}
	return out
}

func renderTranscript(tr *calls.Transcript, loading bool) string {
	if tr == nil {
		if loading {
			return "Loading transcript…"
		}
		return mutedStyle().Render("No transcript available.")
	}
	var b strings.Builder
	if s := strings.TrimSpace(tr.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	for i, seg := range tr.Segments {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s: %s", formatOffset(seg.OffsetSeconds), cmpOrDash(seg.Speaker), seg.Text)
	}
	return b.String()
}

func formatStamp(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.In(time.Local).Format(timeLayout), relTime(*t, now))
}

func cmpOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
