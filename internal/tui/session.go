package tui

import (
	"context"
	"net/url"
	"time"

	"github.com/calldesk/calldesk-cli/internal/bus"
	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/filter"
	"github.com/calldesk/calldesk-cli/internal/query"
	"github.com/calldesk/calldesk-cli/internal/stream"
	"go.uber.org/zap"
)

// Session wires the query cell, the filter form, the list stream and the
// update bus for one run of the UI.
type Session struct {
	Provider calls.Provider
	Cell     *query.Cell
	Bus      *bus.Bus
	Form     *filter.Form
	List     *stream.List

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

type SessionConfig struct {
	Initial url.Values
	Delay   time.Duration
	Now     func() time.Time
	Logger  *zap.Logger
}

func NewSession(p calls.Provider, cfg SessionConfig) *Session {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	formOpts := []filter.Option{filter.WithLogger(log.Named("filter"))}
	if cfg.Delay > 0 {
		formOpts = append(formOpts, filter.WithDelay(cfg.Delay))
	}
	if cfg.Now != nil {
		formOpts = append(formOpts, filter.WithClock(cfg.Now))
	}
	cell := query.NewCell(cfg.Initial)
	return &Session{
		Provider: p,
		Cell:     cell,
		Bus:      bus.New(),
		Form:     filter.NewForm(cell, formOpts...),
		List:     stream.NewList(p, stream.WithLogger(log.Named("list"))),
		log:      log,
		ctx:      context.Background(),
		cancel:   func() {},
	}
}

// Start runs the form mirror and the list stream until Stop or ctx ends.
func (s *Session) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.Form.Run(s.ctx)
	go s.List.Run(s.ctx, s.Cell.Subscribe(s.ctx), s.Bus.Subscribe(s.ctx))
	s.log.Debug("session started", zap.String("query", s.Cell.Encode()))
}

func (s *Session) Stop() {
	s.Form.Close()
	s.cancel()
}

func (s *Session) Context() context.Context { return s.ctx }

// DetailView is one open detail screen. Closing it cancels its fetches and
// any in-flight action.
type DetailView struct {
	Detail  *stream.Detail
	Actions *stream.Actions

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Session) OpenDetail(id string) *DetailView {
	ctx, cancel := context.WithCancel(s.ctx)
	d := stream.NewDetail(s.Provider, stream.WithLogger(s.log.Named("detail")))
	d.Bind(ctx)
	a := stream.NewActions(s.Provider, s.Bus, d, stream.WithLogger(s.log.Named("actions")))
	d.Open(id)
	return &DetailView{Detail: d, Actions: a, ctx: ctx, cancel: cancel}
}

func (v *DetailView) Context() context.Context { return v.ctx }

func (v *DetailView) Close() {
	v.Detail.Close()
	v.cancel()
}
