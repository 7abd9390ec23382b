// Package ring provides a fixed-capacity circular buffer.
// Once full, new entries overwrite the oldest; the buffer never grows.
package ring

// Buffer is a bounded ring buffer over T.
// The zero value is not usable; construct with New.
type Buffer[T any] struct {
	items []T
	head  int // index of the oldest entry
	size  int // number of live entries, size <= cap(items)
}

// New creates a ring buffer holding at most capacity entries.
// Capacity must be positive.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when the buffer is full.
// It returns the absolute index of the pushed entry (monotonic across
// evictions) so callers can address entries stably.
func (b *Buffer[T]) Push(v T) int {
	pos := (b.head + b.size) % len(b.items)
	if b.size == len(b.items) {
		// Full: overwrite the oldest slot and advance head.
		b.items[b.head] = v
		b.head = (b.head + 1) % len(b.items)
		return pos
	}
	b.items[pos] = v
	b.size++
	return pos
}

// Len returns the number of live entries.
func (b *Buffer[T]) Len() int { return b.size }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// At returns the i-th oldest entry (0 = oldest, Len()-1 = newest).
func (b *Buffer[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= b.size {
		return zero, false
	}
	return b.items[(b.head+i)%len(b.items)], true
}

// Latest returns the newest entry.
func (b *Buffer[T]) Latest() (T, bool) {
	return b.At(b.size - 1)
}

// Items returns the live entries oldest-first as a fresh slice.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Reset discards all entries while keeping the allocated capacity.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head = 0
	b.size = 0
}
