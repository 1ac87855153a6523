// Package filter turns date-field edits into query merges.
package filter

import (
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the quiet period an edit must survive before it is
// committed.
const DefaultDelay = 300 * time.Millisecond

// Input buffers edits of one text field behind a resettable timer. Only the
// value still present after the quiet period is committed, and only when it
// differs from the last committed value. The first value to survive the
// quiet period is always committed.
type Input struct {
	delay  time.Duration
	commit func(string)

	mu         sync.Mutex
	display    string
	timer      *time.Timer
	gen        uint64
	last       string
	primed     bool
	committing int
	stopped    bool
}

// NewInput seeds the field with initial and arms the countdown with it, so
// the initial value goes through the same pipeline as an edit.
func NewInput(initial string, delay time.Duration, commit func(string)) *Input {
	if delay <= 0 {
		delay = DefaultDelay
	}
	in := &Input{
		delay:   delay,
		commit:  commit,
		display: initial,
	}
	in.mu.Lock()
	in.armLocked(strings.TrimSpace(initial))
	in.mu.Unlock()
	return in
}

// Change records a user edit and restarts the countdown.
func (in *Input) Change(raw string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.stopped {
		return
	}
	in.display = raw
	in.armLocked(strings.TrimSpace(raw))
}

// Settle drops any pending edit and records value as already committed.
// Used when the field was written directly, as presets do.
func (in *Input) Settle(value string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.gen++
	if in.timer != nil {
		in.timer.Stop()
		in.timer = nil
	}
	in.display = value
	in.last = strings.TrimSpace(value)
	in.primed = true
}

func (in *Input) armLocked(value string) {
	in.gen++
	gen := in.gen
	if in.timer != nil {
		in.timer.Stop()
	}
	in.timer = time.AfterFunc(in.delay, func() { in.fire(gen, value) })
}

// Sync updates the displayed value without treating it as an edit.
func (in *Input) Sync(value string) {
	in.mu.Lock()
	in.display = value
	in.mu.Unlock()
}

func (in *Input) Value() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.display
}

// Pending reports whether an edit is waiting for its quiet period or is
// still being committed.
func (in *Input) Pending() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.timer != nil || in.committing > 0
}

// Stop discards any pending edit. Later edits are ignored.
func (in *Input) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stopped = true
	in.gen++
	if in.timer != nil {
		in.timer.Stop()
		in.timer = nil
	}
}

func (in *Input) fire(gen uint64, value string) {
	in.mu.Lock()
	if gen != in.gen {
		in.mu.Unlock()
		return
	}
	in.timer = nil
	if in.primed && value == in.last {
		in.mu.Unlock()
		return
	}
	in.last = value
	in.primed = true
	commit := in.commit
	in.committing++
	in.mu.Unlock()

	if commit != nil {
		commit(value)
	}
	in.mu.Lock()
	in.committing--
	in.mu.Unlock()
}
