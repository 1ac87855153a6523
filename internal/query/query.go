// Package query derives the canonical list query from URL query state.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/calldesk/calldesk-cli/internal/calls"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// URL query parameter names.
const (
	KeyPage  = "page"
	KeyLimit = "limit"
	KeyFrom  = "from"
	KeyTo    = "to"
)

// Query is always fully populated: Page and Limit are >= 1.
type Query struct {
	Page  int
	Limit int
	From  string
	To    string
}

func Default() Query {
	return Query{Page: DefaultPage, Limit: DefaultLimit}
}

// Parse never fails. Invalid or missing values fall back to defaults.
func Parse(raw url.Values) Query {
	return Query{
		Page:  positiveInt(raw.Get(KeyPage), DefaultPage),
		Limit: positiveInt(raw.Get(KeyLimit), DefaultLimit),
		From:  strings.TrimSpace(raw.Get(KeyFrom)),
		To:    strings.TrimSpace(raw.Get(KeyTo)),
	}
}

func positiveInt(s string, fallback int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return fallback
	}
	n = math.Trunc(n)
	if n < 1 || n > math.MaxInt32 {
		return fallback
	}
	return int(n)
}

// Values writes all four keys explicitly, empty dates included.
func (q Query) Values() url.Values {
	return url.Values{
		KeyPage:  {strconv.Itoa(q.Page)},
		KeyLimit: {strconv.Itoa(q.Limit)},
		KeyFrom:  {q.From},
		KeyTo:    {q.To},
	}
}

// ListParams is the transport request for q. Empty dates are omitted.
func (q Query) ListParams() calls.ListParams {
	return calls.ListParams{
		Page:   q.Page,
		Limit:  q.Limit,
		Status: calls.StatusAll,
		From:   q.From,
		To:     q.To,
	}
}

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	Page  *int
	Limit *int
	From  *string
	To    *string
}

func (p Patch) apply(q Query) Query {
	if p.Page != nil {
		q.Page = *p.Page
	}
	if p.Limit != nil {
		q.Limit = *p.Limit
	}
	if p.From != nil {
		q.From = strings.TrimSpace(*p.From)
	}
	if p.To != nil {
		q.To = strings.TrimSpace(*p.To)
	}
	return q
}

// PageTo moves to page n.
func PageTo(n int) Patch {
	return Patch{Page: &n}
}

// DateRange rewrites both dates and resets to the first page.
func DateRange(from, to string) Patch {
	page := 1
	return Patch{Page: &page, From: &from, To: &to}
}

// FieldEdit rewrites one date field and resets to the first page.
func FieldEdit(key, value string) Patch {
	page := 1
	p := Patch{Page: &page}
	switch key {
	case KeyFrom:
		p.From = &value
	case KeyTo:
		p.To = &value
	}
	return p
}

// Serialize merges p over the canonical form of raw and writes all four keys.
// Keys other than the four are carried over unchanged.
func Serialize(raw url.Values, p Patch) url.Values {
	merged := p.apply(Parse(raw))
	if merged.Page < 1 {
		merged.Page = DefaultPage
	}
	if merged.Limit < 1 {
		merged.Limit = DefaultLimit
	}
	out := url.Values{}
	for k, v := range raw {
		switch k {
		case KeyPage, KeyLimit, KeyFrom, KeyTo:
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	for k, v := range merged.Values() {
		out[k] = v
	}
	return out
}
