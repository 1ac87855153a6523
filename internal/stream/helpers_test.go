package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/calldesk/calldesk-cli/internal/calls"
)

type fakeProvider struct {
	mu     sync.Mutex
	counts map[string]int
	params []calls.ListParams

	list       func(ctx context.Context, p calls.ListParams) (calls.ListResponse, error)
	get        func(ctx context.Context, id string) (calls.Call, error)
	transcript func(ctx context.Context, id string) (calls.Transcript, error)
	start      func(ctx context.Context, id string) (calls.Call, error)
	finish     func(ctx context.Context, id string) (calls.Call, error)
}

func (f *fakeProvider) bump(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[name]++
}

func (f *fakeProvider) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

func (f *fakeProvider) lastParams() calls.ListParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.params) == 0 {
		return calls.ListParams{}
	}
	return f.params[len(f.params)-1]
}

func (f *fakeProvider) List(ctx context.Context, p calls.ListParams) (calls.ListResponse, error) {
	f.bump("list")
	f.mu.Lock()
	f.params = append(f.params, p)
	f.mu.Unlock()
	if f.list != nil {
		return f.list(ctx, p)
	}
	return calls.ListResponse{Page: p.Page, Limit: p.Limit}, nil
}

func (f *fakeProvider) Get(ctx context.Context, id string) (calls.Call, error) {
	f.bump("get")
	if f.get != nil {
		return f.get(ctx, id)
	}
	return calls.Call{ID: id, Status: calls.StatusScheduled}, nil
}

func (f *fakeProvider) Transcript(ctx context.Context, id string) (calls.Transcript, error) {
	f.bump("transcript")
	if f.transcript != nil {
		return f.transcript(ctx, id)
	}
	return calls.Transcript{CallID: id}, nil
}

func (f *fakeProvider) Start(ctx context.Context, id string) (calls.Call, error) {
	f.bump("start")
	if f.start != nil {
		return f.start(ctx, id)
	}
	return calls.Call{ID: id, Status: calls.StatusInProgress}, nil
}

func (f *fakeProvider) Finish(ctx context.Context, id string) (calls.Call, error) {
	f.bump("finish")
	if f.finish != nil {
		return f.finish(ctx, id)
	}
	return calls.Call{ID: id, Status: calls.StatusCompleted}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
