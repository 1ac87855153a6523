package query

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/calldesk/calldesk-cli/internal/calls"
)

func TestParse_Defaults(t *testing.T) {
	q := Parse(url.Values{})
	if q != Default() {
		t.Fatalf("expected defaults, got %+v", q)
	}
	if q.Page != 1 || q.Limit != 10 || q.From != "" || q.To != "" {
		t.Fatalf("unexpected defaults: %+v", q)
	}
}

func TestParse_PageAndLimit(t *testing.T) {
	cases := []struct {
		raw       string
		wantPage  int
		wantLimit int
	}{
		{"page=3&limit=25", 3, 25},
		{"page=abc&limit=xyz", 1, 10},
		{"page=0&limit=-5", 1, 10},
		{"page=-1", 1, 10},
		{"page=Infinity&limit=NaN", 1, 10},
		{"page=inf", 1, 10},
		{"page=%20%204%20", 4, 10},
		{"page=2.7", 2, 10},
		{"page=0.5", 1, 10},
		{"page=1e1", 10, 10},
		{"page=", 1, 10},
		{"page=99999999999999", 1, 10},
	}
	for _, tc := range cases {
		raw, err := url.ParseQuery(tc.raw)
		if err != nil {
			t.Fatalf("ParseQuery(%q): %v", tc.raw, err)
		}
		q := Parse(raw)
		if q.Page != tc.wantPage || q.Limit != tc.wantLimit {
			t.Fatalf("%q: expected page=%d limit=%d, got %+v", tc.raw, tc.wantPage, tc.wantLimit, q)
		}
		if q.Page < 1 || q.Limit < 1 {
			t.Fatalf("%q: invariant violated: %+v", tc.raw, q)
		}
	}
}

func TestParse_TrimsDatesWithoutValidating(t *testing.T) {
	q := Parse(url.Values{"from": {"  2024-06-01 "}, "to": {"not-a-date"}})
	if q.From != "2024-06-01" {
		t.Fatalf("expected trimmed from, got %q", q.From)
	}
	if q.To != "not-a-date" {
		t.Fatalf("expected malformed to passed through, got %q", q.To)
	}
}

func TestSerialize_WritesAllKeysAndKeepsOthers(t *testing.T) {
	raw := url.Values{"page": {"4"}, "view": {"compact"}}
	out := Serialize(raw, FieldEdit(KeyFrom, "2024-06-10"))

	for _, k := range []string{KeyPage, KeyLimit, KeyFrom, KeyTo} {
		if _, ok := out[k]; !ok {
			t.Fatalf("expected key %q to be written explicitly: %v", k, out)
		}
	}
	if out.Get(KeyPage) != "1" {
		t.Fatalf("expected page reset to 1, got %q", out.Get(KeyPage))
	}
	if out.Get(KeyLimit) != "10" {
		t.Fatalf("expected default limit, got %q", out.Get(KeyLimit))
	}
	if out.Get(KeyFrom) != "2024-06-10" || out.Get(KeyTo) != "" {
		t.Fatalf("unexpected dates: %v", out)
	}
	if out.Get("view") != "compact" {
		t.Fatalf("expected unrelated key preserved, got %v", out)
	}
}

func TestSerialize_PageOnly(t *testing.T) {
	raw := url.Values{"page": {"2"}, "limit": {"50"}, "from": {"2024-01-01"}}
	out := Serialize(raw, PageTo(3))
	got := Parse(out)
	want := Query{Page: 3, Limit: 50, From: "2024-01-01"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestQuery_ListParamsOmitsEmptyDates(t *testing.T) {
	p := Query{Page: 2, Limit: 10, From: "2024-01-01"}.ListParams()
	if p.Status != calls.StatusAll {
		t.Fatalf("expected status all, got %q", p.Status)
	}
	if p.From != "2024-01-01" || p.To != "" {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestCell_MergeUsesFreshestSnapshot(t *testing.T) {
	c := NewCell(url.Values{"limit": {"25"}})
	c.Merge(FieldEdit(KeyFrom, "2024-06-01"))
	c.Merge(FieldEdit(KeyTo, "2024-06-30"))

	got := c.Query()
	want := Query{Page: 1, Limit: 25, From: "2024-06-01", To: "2024-06-30"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestCell_SameURLIsIgnored(t *testing.T) {
	c := NewCell(Default().Values())
	c.Merge(PageTo(1))
	if c.Revision() != 0 {
		t.Fatalf("expected no navigation, got revision %d", c.Revision())
	}
	c.Merge(PageTo(2))
	if c.Revision() != 1 {
		t.Fatalf("expected one navigation, got revision %d", c.Revision())
	}
}

func TestCell_Back(t *testing.T) {
	c := NewCell(nil)
	c.Merge(PageTo(2))
	c.Merge(PageTo(3))
	if !c.Back() {
		t.Fatalf("expected back to succeed")
	}
	if c.Query().Page != 2 {
		t.Fatalf("expected page 2 after back, got %+v", c.Query())
	}
	if !c.Back() {
		t.Fatalf("expected second back to succeed")
	}
	if c.Query() != Default() {
		t.Fatalf("expected defaults after second back, got %+v", c.Query())
	}
	if c.Back() {
		t.Fatalf("expected empty history")
	}
}

func TestCell_SubscribeSeesNavigation(t *testing.T) {
	c := NewCell(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := c.Subscribe(ctx)
	if got := <-ch; got != Default() {
		t.Fatalf("expected initial default query, got %+v", got)
	}
	c.Navigate(url.Values{"page": {"5"}})
	select {
	case got := <-ch:
		if got.Page != 5 {
			t.Fatalf("expected page 5, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected navigation event")
	}
}
