package query

import (
	"context"
	"net/url"
	"sync"

	"github.com/calldesk/calldesk-cli/internal/watch"
)

// Cell is the current URL query state. Every writer goes through Merge or
// Navigate, which read the freshest snapshot under the lock, so independent
// writers never overwrite each other's keys with a stale copy.
type Cell struct {
	mu       sync.Mutex
	raw      url.Values
	history  []url.Values
	revision uint64
	current  *watch.Value[Query]
}

func NewCell(raw url.Values) *Cell {
	raw = cloneValues(raw)
	return &Cell{
		raw:     raw,
		current: watch.New(Parse(raw)),
	}
}

// Snapshot returns a copy of the raw query values.
func (c *Cell) Snapshot() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneValues(c.raw)
}

func (c *Cell) Query() Query {
	return c.current.Get()
}

// Encode returns the query string as it would appear in the address bar.
func (c *Cell) Encode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw.Encode()
}

// Revision counts committed navigations.
func (c *Cell) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Merge applies p against the latest snapshot and navigates to the result.
func (c *Cell) Merge(p Patch) Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigateLocked(Serialize(c.raw, p), true)
	return Parse(c.raw)
}

// Navigate replaces the whole query, as an external navigation would.
func (c *Cell) Navigate(raw url.Values) Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigateLocked(cloneValues(raw), true)
	return Parse(c.raw)
}

// Back restores the previous query. It reports false when there is no
// history left.
func (c *Cell) Back() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return false
	}
	prev := c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	c.navigateLocked(prev, false)
	return true
}

// Subscribe emits the canonical query after every navigation, starting with
// the current one.
func (c *Cell) Subscribe(ctx context.Context) <-chan Query {
	return c.current.Subscribe(ctx)
}

func (c *Cell) navigateLocked(next url.Values, record bool) {
	if next.Encode() == c.raw.Encode() {
		return
	}
	if record {
		c.history = append(c.history, c.raw)
	}
	c.raw = next
	c.revision++
	c.current.Set(Parse(next))
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
