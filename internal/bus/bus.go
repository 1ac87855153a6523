// Package bus broadcasts "a call changed" events across views.
package bus

import (
	"context"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/watch"
)

// Bus keeps only the most recent event. Late subscribers receive it on
// subscribe; nil means no mutation has happened yet.
type Bus struct {
	last *watch.Value[*calls.Call]
}

func New() *Bus {
	return &Bus{last: watch.New[*calls.Call](nil)}
}

// Publish records c as the latest mutation. A nil call is a no-op signal
// that subscribers are expected to ignore.
func (b *Bus) Publish(c *calls.Call) {
	if c != nil {
		cp := *c
		c = &cp
	}
	b.last.Set(c)
}

func (b *Bus) Subscribe(ctx context.Context) <-chan *calls.Call {
	return b.last.Subscribe(ctx)
}

func (b *Bus) Last() *calls.Call {
	return b.last.Get()
}
