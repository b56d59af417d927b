package utils

import (
	"context"
	"sync"
)

// Mailbox is a single-slot buffer with overwrite semantics. Put never blocks: a newer value
// replaces an unconsumed older one, which is handed back to the caller as evicted. Take blocks
// until a value is available, the mailbox is closed, or the context is done.
//
// A Mailbox has any number of producers but is expected to have a single consumer.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	value  T
	full   bool
	closed bool
	drops  uint64
}

// NewMailbox returns an empty, open mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Put stores v. If an unconsumed value was displaced it is returned with evicted=true and
// counted as a drop. If the mailbox is closed, v itself is returned as evicted.
func (m *Mailbox[T]) Put(v T) (old T, evicted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return v, true
	}
	if m.full {
		old, evicted = m.value, true
		m.drops++
	}
	m.value = v
	m.full = true
	m.cond.Signal()
	return old, evicted
}

// Take removes and returns the stored value. ok is false when the mailbox was closed or ctx
// finished before a value arrived.
func (m *Mailbox[T]) Take(ctx context.Context) (v T, ok bool) {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.full && !m.closed && ctx.Err() == nil {
		m.cond.Wait()
	}
	if m.closed || ctx.Err() != nil {
		return v, false
	}

	v = m.value
	var zero T
	m.value = zero
	m.full = false
	return v, true
}

// Close wakes any blocked Take and rejects future values. An unconsumed value is returned so
// the caller can release it. Close is idempotent.
func (m *Mailbox[T]) Close() (leftover T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.full {
		leftover, ok = m.value, true
		var zero T
		m.value = zero
		m.full = false
	}
	m.closed = true
	m.cond.Broadcast()
	return leftover, ok
}

// Drops returns how many values were overwritten before being consumed.
func (m *Mailbox[T]) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}
