package daemon

import "sync"

// Latest is a single-slot, latest-value handoff between one publisher and its readers.
// Publish never blocks; a reader that falls behind only sees the newest value.
type Latest[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
	ch    chan T
}

// NewLatest creates an empty slot.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ch: make(chan T, 1)}
}

// Publish overwrites the slot and replaces any undelivered value on C.
func (l *Latest[T]) Publish(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.value, l.set = v, true

	// Only Publish sends, and only under mu, so the send after the drain cannot block.
	select {
	case <-l.ch:
	default:
	}
	l.ch <- v
}

// Load returns the most recent value without consuming it.
func (l *Latest[T]) Load() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.set
}

// C delivers published values, newest only. It is never closed.
func (l *Latest[T]) C() <-chan T {
	return l.ch
}
