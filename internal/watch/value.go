// Package watch provides a latest-value broadcast cell.
package watch

import (
	"context"
	"sync"
)

// Value holds one value and hands it to every subscriber. Each subscriber
// has a single-slot buffer: a slow reader only ever sees the most recent
// value, never a backlog.
type Value[T any] struct {
	mu   sync.Mutex
	cur  T
	subs map[chan T]struct{}
}

func New[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: map[chan T]struct{}{}}
}

func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = x
	v.broadcastLocked()
}

// Update applies fn to the current value and stores the result atomically.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = fn(v.cur)
	v.broadcastLocked()
	return v.cur
}

// Subscribe returns a channel preloaded with the current value. The channel
// is closed once ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	v.mu.Lock()
	ch <- v.cur
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, ch)
		close(ch)
		v.mu.Unlock()
	}()
	return ch
}

func (v *Value[T]) broadcastLocked() {
	for ch := range v.subs {
		offer(ch, v.cur)
	}
}

// offer replaces whatever is buffered in ch with x. Callers hold the lock, so
// no other sender can refill the slot between the drain and the send.
func offer[T any](ch chan T, x T) {
	select {
	case ch <- x:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- x
	}
}
