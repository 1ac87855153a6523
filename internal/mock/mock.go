// Package mock is an in-memory calls backend. It implements calls.Provider
// directly and can be served over HTTP with Handler.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date filter")

type Option func(*Store)

// WithLatency delays every request, honouring ctx cancellation.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	latency time.Duration
	now     func() time.Time

	mu          sync.Mutex
	calls       map[string]*calls.Call
	transcripts map[string]*calls.Transcript
}

func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		calls:       map[string]*calls.Call{},
		transcripts: map[string]*calls.Transcript{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add stores c, assigning an id when it has none, and returns the stored copy.
func (s *Store) Add(c calls.Call) calls.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(c.ID) == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = calls.StatusScheduled
	}
	stored := c
	s.calls[c.ID] = &stored
	if c.Status == calls.StatusCompleted {
		s.transcripts[c.ID] = buildTranscript(stored, s.now())
	}
	return stored
}

func (s *Store) List(ctx context.Context, p calls.ListParams) (calls.ListResponse, error) {
	if err := s.wait(ctx); err != nil {
		return calls.ListResponse{}, err
	}
	from, to, err := parseRange(p.From, p.To)
	if err != nil {
		return calls.ListResponse{}, err
	}
	page, limit := p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	status := strings.TrimSpace(p.Status)

	s.mu.Lock()
	matched := make([]calls.Call, 0, len(s.calls))
	for _, c := range s.calls {
		if status != "" && status != calls.StatusAll && string(c.Status) != status {
			continue
		}
		day := dayOf(c.ScheduledAt)
		if !from.IsZero() && day.Before(from) {
			continue
		}
		if !to.IsZero() && day.After(to) {
			continue
		}
		matched = append(matched, *c)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ScheduledAt.Equal(matched[j].ScheduledAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].ScheduledAt.After(matched[j].ScheduledAt)
	})

	total := len(matched)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	items := []calls.Call{}
	if start < total {
		end := start + limit
		if end > total {
			end = total
		}
		items = matched[start:end]
	}
	return calls.ListResponse{Items: items, Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

func (s *Store) Get(ctx context.Context, id string) (calls.Call, error) {
	if err := s.wait(ctx); err != nil {
		return calls.Call{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.calls[id]
	if c == nil {
		return calls.Call{}, fmt.Errorf("%w: %s", calls.ErrNotFound, id)
	}
	return *c, nil
}

func (s *Store) Transcript(ctx context.Context, id string) (calls.Transcript, error) {
	if err := s.wait(ctx); err != nil {
		return calls.Transcript{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls[id] == nil {
		return calls.Transcript{}, fmt.Errorf("%w: %s", calls.ErrNotFound, id)
	}
	tr := s.transcripts[id]
	if tr == nil {
		return calls.Transcript{}, fmt.Errorf("%w: %s", calls.ErrNotAvailable, id)
	}
	out := *tr
	out.Segments = append([]calls.Segment(nil), tr.Segments...)
	return out, nil
}

func (s *Store) Start(ctx context.Context, id string) (calls.Call, error) {
	return s.transition(ctx, id, calls.StatusScheduled, calls.StatusInProgress)
}

func (s *Store) Finish(ctx context.Context, id string) (calls.Call, error) {
	return s.transition(ctx, id, calls.StatusInProgress, calls.StatusCompleted)
}

func (s *Store) transition(ctx context.Context, id string, from, to calls.Status) (calls.Call, error) {
	if err := s.wait(ctx); err != nil {
		return calls.Call{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.calls[id]
	if c == nil {
		return calls.Call{}, fmt.Errorf("%w: %s", calls.ErrNotFound, id)
	}
	if c.Status != from {
		return calls.Call{}, fmt.Errorf("%w: %s is %s, want %s", calls.ErrInvalidTransition, id, c.Status, from)
	}
	now := s.now().UTC()
	c.Status = to
	switch to {
	case calls.StatusInProgress:
		c.StartedAt = &now
	case calls.StatusCompleted:
		c.EndedAt = &now
		s.transcripts[id] = buildTranscript(*c, now)
	}
	return *c, nil
}

func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var err error
	if s := strings.TrimSpace(from); s != "" {
		if f, err = time.ParseInLocation(dateLayout, s, time.Local); err != nil {
			return f, t, fmt.Errorf("%w: from=%q", ErrInvalidDate, s)
		}
	}
	if s := strings.TrimSpace(to); s != "" {
		if t, err = time.ParseInLocation(dateLayout, s, time.Local); err != nil {
			return f, t, fmt.Errorf("%w: to=%q", ErrInvalidDate, s)
		}
	}
	return f, t, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
