package stream

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/calldesk/calldesk-cli/internal/bus"
	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/query"
)

func startList(t *testing.T, p calls.Provider, cell *query.Cell, b *bus.Bus) *List {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l := NewList(p)
	go l.Run(ctx, cell.Subscribe(ctx), b.Subscribe(ctx))
	return l
}

func TestList_InitialFetchUsesCanonicalQuery(t *testing.T) {
	p := &fakeProvider{}
	cell := query.NewCell(url.Values{"page": {"2"}, "limit": {"bogus"}, "to": {" 2024-06-30 "}})
	l := startList(t, p, cell, bus.New())

	waitFor(t, "initial result", func() bool { return l.State().Result != nil })
	if p.count("list") != 1 {
		t.Fatalf("expected one fetch, got %d", p.count("list"))
	}
	got := p.lastParams()
	want := calls.ListParams{Page: 2, Limit: 10, Status: "all", To: "2024-06-30"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestList_RefreshBeforeFirstQueryIsIgnored(t *testing.T) {
	p := &fakeProvider{}
	l := NewList(p)
	l.Refresh()
	time.Sleep(30 * time.Millisecond)
	if p.count("list") != 0 {
		t.Fatalf("expected no fetch before the first query, got %+v", p.lastParams())
	}
	if l.State().Loading {
		t.Fatalf("expected idle state")
	}

	cell := query.NewCell(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx, cell.Subscribe(ctx), nil)
	waitFor(t, "initial result", func() bool { return l.State().Result != nil })
	l.Refresh()
	waitFor(t, "refresh", func() bool { return p.count("list") == 2 })
	if got := p.lastParams(); got.Page != 1 || got.Limit != 10 {
		t.Fatalf("unexpected refresh params: %+v", got)
	}
}

func TestList_RefetchesOnlyWhenCanonicalQueryChanges(t *testing.T) {
	p := &fakeProvider{}
	cell := query.NewCell(nil)
	l := startList(t, p, cell, bus.New())
	waitFor(t, "initial result", func() bool { return l.State().Result != nil })

	// Different raw URL, same canonical query.
	cell.Navigate(url.Values{"page": {"1"}, "limit": {"10"}, "from": {""}, "to": {""}})
	time.Sleep(50 * time.Millisecond)
	if p.count("list") != 1 {
		t.Fatalf("expected no refetch for identical canonical query, got %d", p.count("list"))
	}

	cell.Merge(query.PageTo(3))
	waitFor(t, "page 3", func() bool {
		r := l.State().Result
		return r != nil && r.Page == 3
	})
	if p.count("list") != 2 {
		t.Fatalf("expected two fetches, got %d", p.count("list"))
	}
}

func TestList_SupersededFetchIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	staleDone := make(chan struct{})
	p := &fakeProvider{
		list: func(ctx context.Context, params calls.ListParams) (calls.ListResponse, error) {
			if params.Page == 1 {
				<-release
				defer close(staleDone)
				return calls.ListResponse{Page: 1, Items: []calls.Call{{ID: "stale"}}}, nil
			}
			return calls.ListResponse{Page: params.Page, Items: []calls.Call{{ID: "fresh"}}}, nil
		},
	}
	cell := query.NewCell(nil)
	l := startList(t, p, cell, bus.New())
	waitFor(t, "first fetch issued", func() bool { return p.count("list") == 1 })

	cell.Merge(query.PageTo(2))
	waitFor(t, "fresh result", func() bool {
		r := l.State().Result
		return r != nil && r.Page == 2
	})

	close(release)
	<-staleDone
	time.Sleep(30 * time.Millisecond)

	st := l.State()
	if st.Result == nil || st.Result.Page != 2 || st.Result.Items[0].ID != "fresh" {
		t.Fatalf("stale response leaked into state: %+v", st.Result)
	}
	if st.Loading {
		t.Fatalf("expected loading cleared")
	}
}

func TestList_FailureYieldsNoResultAndRecovers(t *testing.T) {
	fail := true
	done := make(chan struct{}, 4)
	p := &fakeProvider{}
	p.list = func(ctx context.Context, params calls.ListParams) (calls.ListResponse, error) {
		defer func() { done <- struct{}{} }()
		if fail {
			return calls.ListResponse{}, errors.New("boom")
		}
		return calls.ListResponse{Page: params.Page}, nil
	}
	cell := query.NewCell(nil)
	l := startList(t, p, cell, bus.New())

	<-done
	waitFor(t, "error state", func() bool { return l.State().Err != nil })
	if l.State().Result != nil {
		t.Fatalf("expected no result after failure")
	}

	fail = false
	l.Refresh()
	<-done
	waitFor(t, "recovered", func() bool { return l.State().Result != nil && l.State().Err == nil })
}

func TestList_BusEventRefetchesWithoutURLChange(t *testing.T) {
	p := &fakeProvider{}
	cell := query.NewCell(url.Values{"page": {"4"}})
	b := bus.New()
	l := startList(t, p, cell, b)
	waitFor(t, "initial result", func() bool { return l.State().Result != nil })

	b.Publish(nil)
	time.Sleep(30 * time.Millisecond)
	if p.count("list") != 1 {
		t.Fatalf("expected nil event to be ignored, got %d fetches", p.count("list"))
	}

	b.Publish(&calls.Call{ID: "c1", Status: calls.StatusCompleted})
	waitFor(t, "refetch", func() bool { return p.count("list") == 2 })
	if p.lastParams().Page != 4 {
		t.Fatalf("expected same page refetched, got %+v", p.lastParams())
	}
	if cell.Revision() != 0 {
		t.Fatalf("expected URL untouched, got revision %d", cell.Revision())
	}
}

func TestList_ObserversShareOneFetch(t *testing.T) {
	p := &fakeProvider{}
	cell := query.NewCell(nil)
	l := startList(t, p, cell, bus.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := l.Subscribe(ctx)
	b := l.Subscribe(ctx)

	waitFor(t, "result", func() bool { return l.State().Result != nil })
	<-a
	<-b
	if p.count("list") != 1 {
		t.Fatalf("expected a single fetch for two observers, got %d", p.count("list"))
	}
}

func TestFinishAction_RefetchesRenderedList(t *testing.T) {
	p := &fakeProvider{}
	cell := query.NewCell(url.Values{"page": {"2"}})
	b := bus.New()
	l := startList(t, p, cell, b)
	waitFor(t, "initial result", func() bool { return l.State().Result != nil })

	d := NewDetail(p)
	a := NewActions(p, b, d)
	if !a.Finish(context.Background(), "c9") {
		t.Fatalf("expected finish to run")
	}

	if last := b.Last(); last == nil || last.ID != "c9" {
		t.Fatalf("expected finished call on the bus, got %+v", last)
	}
	waitFor(t, "list refetch", func() bool { return p.count("list") == 2 })
	if p.lastParams().Page != 2 {
		t.Fatalf("expected same page, got %+v", p.lastParams())
	}
	if cell.Revision() != 0 {
		t.Fatalf("expected URL untouched, got revision %d", cell.Revision())
	}
}
