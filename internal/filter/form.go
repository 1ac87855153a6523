package filter

import (
	"context"
	"sync"
	"time"

	"github.com/calldesk/calldesk-cli/internal/query"
	"go.uber.org/zap"
)

// Preset records which range button produced the current dates. It is UI
// state only and never part of the query.
type Preset string

const (
	PresetNone  Preset = ""
	PresetToday Preset = "today"
	PresetWeek  Preset = "week"
	PresetMonth Preset = "month"
)

type Option func(*Form)

func WithDelay(d time.Duration) Option {
	return func(f *Form) { f.delay = d }
}

func WithClock(now func() time.Time) Option {
	return func(f *Form) { f.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(f *Form) { f.log = log }
}

// Form owns the from/to inputs and writes their committed values into the
// query cell.
type Form struct {
	cell  *query.Cell
	delay time.Duration
	now   func() time.Time
	log   *zap.Logger

	From *Input
	To   *Input

	mu     sync.Mutex
	preset Preset
}

func NewForm(cell *query.Cell, opts ...Option) *Form {
	f := &Form{
		cell:  cell,
		delay: DefaultDelay,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	q := cell.Query()
	f.From = NewInput(q.From, f.delay, func(v string) { f.commitField(query.KeyFrom, v) })
	f.To = NewInput(q.To, f.delay, func(v string) { f.commitField(query.KeyTo, v) })
	return f
}

// Run mirrors every navigation into the input displays until ctx is done.
// Mirroring never feeds back into the merge path.
func (f *Form) Run(ctx context.Context) {
	updates := f.cell.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-updates:
			if !ok {
				return
			}
			f.SyncFromQuery(q)
		}
	}
}

// SyncFromQuery updates displays that differ from q.
func (f *Form) SyncFromQuery(q query.Query) {
	if f.From.Value() != q.From {
		f.From.Sync(q.From)
	}
	if f.To.Value() != q.To {
		f.To.Sync(q.To)
	}
}

func (f *Form) EditFrom(raw string) { f.From.Change(raw) }
func (f *Form) EditTo(raw string)   { f.To.Change(raw) }

func (f *Form) Preset() Preset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preset
}

func (f *Form) SetToday()     { f.applyPreset(PresetToday, Today(f.now())) }
func (f *Form) SetThisWeek()  { f.applyPreset(PresetWeek, ThisWeek(f.now())) }
func (f *Form) SetThisMonth() { f.applyPreset(PresetMonth, ThisMonth(f.now())) }

// ClearRange empties both dates in one write and drops the preset.
func (f *Form) ClearRange() {
	f.setPreset(PresetNone)
	f.settle(f.cell.Merge(query.DateRange("", "")))
}

// Close stops both inputs; pending edits are dropped.
func (f *Form) Close() {
	f.From.Stop()
	f.To.Stop()
}

func (f *Form) applyPreset(p Preset, r Range) {
	q := f.cell.Merge(query.DateRange(r.From, r.To))
	f.settle(q)
	f.setPreset(p)
	f.log.Debug("range preset applied",
		zap.String("preset", string(p)),
		zap.String("from", q.From),
		zap.String("to", q.To),
	)
}

func (f *Form) commitField(key, value string) {
	f.setPreset(PresetNone)
	q := f.cell.Merge(query.FieldEdit(key, value))
	f.log.Debug("date filter committed",
		zap.String("field", key),
		zap.String("value", value),
		zap.Int("page", q.Page),
	)
}

// settle makes a direct range write supersede edits still in their quiet
// period.
func (f *Form) settle(q query.Query) {
	f.From.Settle(q.From)
	f.To.Settle(q.To)
}

// Idle reports whether neither input has an edit waiting or committing.
func (f *Form) Idle() bool {
	return !f.From.Pending() && !f.To.Pending()
}

func (f *Form) setPreset(p Preset) {
	f.mu.Lock()
	f.preset = p
	f.mu.Unlock()
}
