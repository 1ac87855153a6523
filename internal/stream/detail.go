package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/watch"
	"go.uber.org/zap"
)

var (
	// ErrNoCallID is terminal until a new id is opened.
	ErrNoCallID = errors.New("no call id provided")
	// ErrLoadCall wraps a failed call fetch; Refresh may recover it.
	ErrLoadCall = errors.New("failed to load call details")
)

// DetailState is one snapshot of the detail view. Call keeps the last good
// value across failed refreshes; Transcript is nil whenever there is nothing
// to show.
type DetailState struct {
	ID                string
	Call              *calls.Call
	Loading           bool
	Err               error
	Transcript        *calls.Transcript
	TranscriptLoading bool
}

// Detail fetches one call, then derives its transcript. The two stages are
// cancelled independently.
type Detail struct {
	provider calls.Provider
	log      *zap.Logger

	mu       sync.Mutex
	base     context.Context
	id       string
	callSeq  uint64
	callStop context.CancelFunc
	trSeq    uint64
	trStop   context.CancelFunc
	closed   bool

	state *watch.Value[DetailState]
}

func NewDetail(p calls.Provider, opts ...Option) *Detail {
	o := buildOptions(opts)
	return &Detail{
		provider: p,
		log:      o.log,
		base:     context.Background(),
		state:    watch.New(DetailState{}),
	}
}

// Bind ties in-flight fetches to ctx.
func (d *Detail) Bind(ctx context.Context) {
	d.mu.Lock()
	d.base = ctx
	d.mu.Unlock()
}

// Open loads the call named by a route id.
func (d *Detail) Open(id string) {
	d.load(strings.TrimSpace(id), "open")
}

// Refresh reloads the current id.
func (d *Detail) Refresh() {
	d.mu.Lock()
	id := d.id
	d.mu.Unlock()
	d.load(id, "refresh")
}

// Close cancels both stages; later results are dropped.
func (d *Detail) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.callSeq++
	d.trSeq++
	if d.callStop != nil {
		d.callStop()
		d.callStop = nil
	}
	if d.trStop != nil {
		d.trStop()
		d.trStop = nil
	}
}

func (d *Detail) ID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

func (d *Detail) State() DetailState {
	return d.state.Get()
}

func (d *Detail) Subscribe(ctx context.Context) <-chan DetailState {
	return d.state.Subscribe(ctx)
}

func (d *Detail) load(id, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if d.callStop != nil {
		d.callStop()
		d.callStop = nil
	}
	d.callSeq++
	seq := d.callSeq
	prevID := d.id
	d.id = id

	if id == "" {
		d.stopTranscriptLocked()
		d.state.Set(DetailState{Err: ErrNoCallID})
		return
	}

	d.state.Update(func(prev DetailState) DetailState {
		next := DetailState{ID: id, Loading: true}
		if prevID == id {
			next.Call = prev.Call
			next.Transcript = prev.Transcript
			next.TranscriptLoading = prev.TranscriptLoading
		}
		return next
	})
	if prevID != id {
		d.stopTranscriptLocked()
	}

	ctx, cancel := context.WithCancel(d.base)
	d.callStop = cancel
	d.log.Debug("call fetch", zap.String("id", id), zap.String("reason", reason), zap.Uint64("seq", seq))
	go d.fetchCall(ctx, seq, id)
}

func (d *Detail) fetchCall(ctx context.Context, seq uint64, id string) {
	c, err := d.provider.Get(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.callSeq {
		return
	}
	d.callStop = nil
	if err != nil {
		d.log.Warn("call fetch failed", zap.String("id", id), zap.Error(err))
		d.state.Update(func(prev DetailState) DetailState {
			prev.Loading = false
			prev.Err = fmt.Errorf("%w: %w", ErrLoadCall, err)
			return prev
		})
		return
	}
	d.state.Update(func(prev DetailState) DetailState {
		prev.Call = &c
		prev.Loading = false
		prev.Err = nil
		// Completed calls move straight into the transcript stage.
		prev.TranscriptLoading = c.Status == calls.StatusCompleted
		return prev
	})
	d.deriveTranscriptLocked(c)
}

func (d *Detail) deriveTranscriptLocked(c calls.Call) {
	d.stopTranscriptLocked()
	if c.Status != calls.StatusCompleted {
		d.state.Update(func(prev DetailState) DetailState {
			prev.Transcript = nil
			prev.TranscriptLoading = false
			return prev
		})
		return
	}

	d.trSeq++
	seq := d.trSeq
	ctx, cancel := context.WithCancel(d.base)
	d.trStop = cancel
	d.state.Update(func(prev DetailState) DetailState {
		if prev.Transcript != nil && prev.Transcript.CallID != c.ID {
			prev.Transcript = nil
		}
		prev.TranscriptLoading = true
		return prev
	})
	go d.fetchTranscript(ctx, seq, c.ID)
}

func (d *Detail) fetchTranscript(ctx context.Context, seq uint64, id string) {
	tr, err := d.provider.Transcript(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.trSeq {
		return
	}
	d.trStop = nil
	if err != nil {
		d.log.Debug("no transcript available", zap.String("id", id), zap.Error(err))
		d.state.Update(func(prev DetailState) DetailState {
			prev.Transcript = nil
			prev.TranscriptLoading = false
			return prev
		})
		return
	}
	d.state.Update(func(prev DetailState) DetailState {
		prev.Transcript = &tr
		prev.TranscriptLoading = false
		return prev
	})
}

// stopTranscriptLocked cancels the transcript stage and invalidates its
// in-flight result.
func (d *Detail) stopTranscriptLocked() {
	d.trSeq++
	if d.trStop != nil {
		d.trStop()
		d.trStop = nil
	}
}
