// Package stream keeps list and detail data in step with the query state,
// the update bus and user actions. Every fetch is tagged with a sequence
// number and a cancellable context; only the newest fetch may publish.
package stream

import (
	"context"
	"sync"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/query"
	"github.com/calldesk/calldesk-cli/internal/watch"
	"go.uber.org/zap"
)

type Option func(*options)

type options struct {
	log *zap.Logger
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ListState is one snapshot of the list. Result is nil before the first
// response and after a failed fetch.
type ListState struct {
	Seq     uint64
	Query   query.Query
	Result  *calls.ListResponse
	Loading bool
	Err     error
}

type List struct {
	provider calls.Provider
	log      *zap.Logger

	mu      sync.Mutex
	base    context.Context
	seq     uint64
	cancel  context.CancelFunc
	query   query.Query
	started bool
	fetches uint64

	state *watch.Value[ListState]
}

func NewList(p calls.Provider, opts ...Option) *List {
	o := buildOptions(opts)
	return &List{
		provider: p,
		log:      o.log,
		base:     context.Background(),
		state:    watch.New(ListState{Query: query.Default()}),
	}
}

// Run fetches whenever the canonical query changes or a non-nil call update
// arrives. It returns when ctx is done or queries is closed.
func (l *List) Run(ctx context.Context, queries <-chan query.Query, updates <-chan *calls.Call) {
	l.mu.Lock()
	l.base = ctx
	l.mu.Unlock()
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-queries:
			if !ok {
				return
			}
			l.mu.Lock()
			changed := !l.started || q != l.query
			l.mu.Unlock()
			if changed {
				l.trigger(q, "query")
			}
		case c, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if c == nil {
				continue
			}
			l.mu.Lock()
			started, q := l.started, l.query
			l.mu.Unlock()
			if started {
				l.trigger(q, "call updated")
			}
		}
	}
}

// Refresh refetches the current query. It does nothing before Run has seen
// its first query.
func (l *List) Refresh() {
	l.mu.Lock()
	started, q := l.started, l.query
	l.mu.Unlock()
	if !started {
		return
	}
	l.trigger(q, "refresh")
}

func (l *List) State() ListState {
	return l.state.Get()
}

func (l *List) Subscribe(ctx context.Context) <-chan ListState {
	return l.state.Subscribe(ctx)
}

// Fetches counts requests issued to the provider.
func (l *List) Fetches() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches
}

func (l *List) trigger(q query.Query, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.query = q
	l.started = true
	l.fetches++

	l.state.Update(func(prev ListState) ListState {
		return ListState{Seq: seq, Query: q, Result: prev.Result, Loading: true}
	})
	l.log.Debug("list fetch",
		zap.Uint64("seq", seq),
		zap.String("reason", reason),
		zap.Int("page", q.Page),
		zap.Int("limit", q.Limit),
		zap.String("from", q.From),
		zap.String("to", q.To),
	)

	go l.fetch(ctx, seq, q)
}

func (l *List) fetch(ctx context.Context, seq uint64, q query.Query) {
	res, err := l.provider.List(ctx, q.ListParams())

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		l.log.Debug("list fetch superseded", zap.Uint64("seq", seq), zap.Uint64("current", l.seq))
		return
	}
	l.cancel = nil
	if err != nil {
		l.log.Warn("list fetch failed", zap.Uint64("seq", seq), zap.Error(err))
		l.state.Set(ListState{Seq: seq, Query: q, Err: err})
		return
	}
	l.state.Set(ListState{Seq: seq, Query: q, Result: &res})
}

func (l *List) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Bumping seq makes any in-flight result stale.
	l.seq++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
