package filter

import (
	"fmt"
	"time"
)

// Range is a from/to pair of YYYY-MM-DD dates.
type Range struct {
	From string
	To   string
}

// FormatDate renders the calendar date of t in t's own location. It never
// converts to UTC first, so late-evening local times keep their local day.
func FormatDate(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

func Today(now time.Time) Range {
	d := FormatDate(now)
	return Range{From: d, To: d}
}

// ThisWeek spans Monday to Sunday of the week containing now, regardless of
// locale.
func ThisWeek(now time.Time) Range {
	back := int(now.Weekday()) - 1
	if now.Weekday() == time.Sunday {
		back = 6
	}
	monday := now.AddDate(0, 0, -back)
	sunday := monday.AddDate(0, 0, 6)
	return Range{From: FormatDate(monday), To: FormatDate(sunday)}
}

// ThisMonth spans the first to the last calendar day of now's month.
func ThisMonth(now time.Time) Range {
	y, m, _ := now.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, now.Location())
	return Range{From: FormatDate(first), To: FormatDate(last)}
}
