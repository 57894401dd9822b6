// Package ring provides a fixed-capacity circular buffer shared by the
// history, event, and window stores.
package ring

import "sync"

// Buffer is a generic, thread-safe, fixed-capacity circular buffer. The
// backing slice is allocated once; Add never grows it.
type Buffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int
	count int
	cap   int
}

// New creates a Buffer with the given capacity. A capacity below one is
// raised to one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		items: make([]T, capacity),
		cap:   capacity,
	}
}

// Add inserts an item, overwriting the oldest if full. It reports whether an
// item was overwritten.
func (r *Buffer[T]) Add(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.head] = item
	r.head = (r.head + 1) % r.cap
	if r.count < r.cap {
		r.count++
		return false
	}
	return true
}

// Len returns the number of items currently in the buffer.
func (r *Buffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the fixed capacity.
func (r *Buffer[T]) Cap() int {
	return r.cap
}

// All returns all items in order from oldest to newest.
func (r *Buffer[T]) All() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]T, r.count)
	start := r.startLocked()
	for i := 0; i < r.count; i++ {
		result[i] = r.items[(start+i)%r.cap]
	}
	return result
}

// Newest returns up to n items ordered from newest to oldest. A negative n
// returns everything.
func (r *Buffer[T]) Newest(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newestLocked(n)
}

// Drain returns every item newest first and empties the buffer.
func (r *Buffer[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.newestLocked(-1)
	r.resetLocked()
	return out
}

// Last returns the most recently added item.
func (r *Buffer[T]) Last() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := (r.head - 1 + r.cap) % r.cap
	return r.items[idx], true
}

// Reset empties the buffer without releasing its storage.
func (r *Buffer[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

// Resize returns a new buffer of the given capacity holding the newest items
// of r in their original order.
func (r *Buffer[T]) Resize(capacity int) *Buffer[T] {
	items := r.All()
	nb := New[T](capacity)
	if len(items) > nb.cap {
		items = items[len(items)-nb.cap:]
	}
	for _, it := range items {
		nb.Add(it)
	}
	return nb
}

func (r *Buffer[T]) startLocked() int {
	if r.count == r.cap {
		return r.head
	}
	return 0
}

func (r *Buffer[T]) newestLocked(n int) []T {
	if n < 0 || n > r.count {
		n = r.count
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.items[(r.head-1-i+2*r.cap)%r.cap]
	}
	return out
}

func (r *Buffer[T]) resetLocked() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.count = 0
}
