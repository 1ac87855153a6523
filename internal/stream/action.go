package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/calldesk/calldesk-cli/internal/bus"
	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/watch"
	"go.uber.org/zap"
)

var (
	ErrStartFailed  = errors.New("failed to start call")
	ErrFinishFailed = errors.New("failed to finish call")
)

type ActionPhase int

const (
	ActionIdle ActionPhase = iota
	ActionInFlight
	ActionError
)

func (p ActionPhase) String() string {
	switch p {
	case ActionInFlight:
		return "in-flight"
	case ActionError:
		return "error"
	default:
		return "idle"
	}
}

type ActionKind string

const (
	ActionStart  ActionKind = "start"
	ActionFinish ActionKind = "finish"
)

// ActionState describes the latest action attempt. Err is set only in the
// error phase.
type ActionState struct {
	Phase  ActionPhase
	Kind   ActionKind
	CallID string
	Err    error
}

// CanStart reports whether the UI should offer the start action.
func CanStart(c *calls.Call) bool {
	return c != nil && c.Status == calls.StatusScheduled
}

// CanFinish reports whether the UI should offer the finish action.
func CanFinish(c *calls.Call) bool {
	return c != nil && c.Status == calls.StatusInProgress
}

// Actions runs at most one start/finish at a time for a detail view. Status
// is not re-checked here; the server rejects illegal transitions.
type Actions struct {
	provider calls.Provider
	bus      *bus.Bus
	detail   *Detail
	log      *zap.Logger

	mu    sync.Mutex
	state *watch.Value[ActionState]
}

func NewActions(p calls.Provider, b *bus.Bus, d *Detail, opts ...Option) *Actions {
	o := buildOptions(opts)
	return &Actions{
		provider: p,
		bus:      b,
		detail:   d,
		log:      o.log,
		state:    watch.New(ActionState{}),
	}
}

// Start blocks until the start request finishes. It reports false without
// calling the provider when another action is in flight.
func (a *Actions) Start(ctx context.Context, id string) bool {
	return a.run(ctx, ActionStart, id, a.provider.Start, ErrStartFailed)
}

// Finish is Start's counterpart for in-progress calls.
func (a *Actions) Finish(ctx context.Context, id string) bool {
	return a.run(ctx, ActionFinish, id, a.provider.Finish, ErrFinishFailed)
}

// Dismiss clears an error message.
func (a *Actions) Dismiss() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Get().Phase == ActionError {
		a.state.Set(ActionState{})
	}
}

func (a *Actions) State() ActionState {
	return a.state.Get()
}

func (a *Actions) Subscribe(ctx context.Context) <-chan ActionState {
	return a.state.Subscribe(ctx)
}

func (a *Actions) run(ctx context.Context, kind ActionKind, id string, do func(context.Context, string) (calls.Call, error), failed error) bool {
	a.mu.Lock()
	if a.state.Get().Phase == ActionInFlight {
		a.mu.Unlock()
		a.log.Debug("action ignored, another is in flight", zap.String("action", string(kind)), zap.String("id", id))
		return false
	}
	a.state.Set(ActionState{Phase: ActionInFlight, Kind: kind, CallID: id})
	a.mu.Unlock()

	c, err := do(ctx, id)

	a.mu.Lock()
	if err != nil {
		a.state.Set(ActionState{Phase: ActionError, Kind: kind, CallID: id, Err: fmt.Errorf("%w: %w", failed, err)})
		a.mu.Unlock()
		a.log.Warn("call action failed", zap.String("action", string(kind)), zap.String("id", id), zap.Error(err))
		return true
	}
	a.state.Set(ActionState{Phase: ActionIdle, Kind: kind, CallID: id})
	a.mu.Unlock()

	a.log.Info("call action succeeded", zap.String("action", string(kind)), zap.String("id", id), zap.String("status", string(c.Status)))
	if a.bus != nil {
		a.bus.Publish(&c)
	}
	if a.detail != nil {
		a.detail.Refresh()
	}
	return true
}
