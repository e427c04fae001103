// Package frames stores the pixel buffers of frame stacks.
//
// Buffers live in an Arena and are referred to by Handle.  Every handle has one
// ValueRange entry caching the buffer's statistics.  Containers that share a
// buffer share its handle (Alias), and therefore its statistics: invalidating the
// entry through one container is visible through every other.  Duplicate
// allocates a new buffer with its own entry.
//
// Buffer contents are not synchronized.  Callers must not mutate a buffer from
// several goroutines at once.
package frames

import (
	"errors"
	"fmt"
	"sync"

	"hyperstack/internal/logging"
)

var ErrUnknownHandle = errors.New("unknown frame handle")

// Handle identifies a buffer within an Arena.  The zero Handle is never issued.
type Handle uint64

type entry[T any] struct {
	data []T
	rng  ValueRange
	refs int
	// gen counts invalidations; a scan only stores its result if gen is unchanged.
	gen  uint64
}

// Arena owns buffers of element type T.
type Arena[T any] struct {
	mu      sync.RWMutex
	next    Handle
	entries map[Handle]*entry[T]

	finder    Finder[T]
	hasFinder bool
	limit     int64
}

// Option configures an Arena.
type Option func(*settings)

type settings struct {
	limit int64
}

// WithAllocationLimit caps the size in bytes of any single allocation.  Zero
// means no limit.
func WithAllocationLimit(bytes int64) Option {
	return func(s *settings) {
		s.limit = bytes
	}
}

// NewArena creates an empty arena.  The statistics finder for T is looked up once.
func NewArena[T any](opts ...Option) *Arena[T] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	f, found := LookupFinder[T]()
	if !found {
		logging.Debugf("no statistics finder registered for %s, ranges will be NaN", typeName[T]())
	}
	return &Arena[T]{
		entries:   make(map[Handle]*entry[T]),
		finder:    f,
		hasFinder: found,
		limit:     s.limit,
	}
}

// AllocationLimit returns the per-allocation limit in bytes, 0 if unlimited.
func (a *Arena[T]) AllocationLimit() int64 {
	return a.limit
}

func (a *Arena[T]) insert(data []T, rng ValueRange) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	h := a.next
	a.entries[h] = &entry[T]{data: data, rng: rng, refs: 1}
	return h
}

func (a *Arena[T]) lookup(h Handle) (*entry[T], error) {
	a.mu.RLock()
	e, found := a.entries[h]
	a.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return e, nil
}

// Allocate creates a zeroed buffer of n elements.
func (a *Arena[T]) Allocate(n int) (Handle, error) {
	buf, err := allocate[T](n, a.limit)
	if err != nil {
		return 0, err
	}
	return a.insert(buf, ValueRange{}), nil
}

// AllocateFrames allocates count buffers of n elements.  If any allocation
// fails, the buffers allocated so far are released before the error is returned.
func (a *Arena[T]) AllocateFrames(count, n int) ([]Handle, error) {
	handles := make([]Handle, 0, count)
	for i := 0; i < count; i++ {
		h, err := a.Allocate(n)
		if err != nil {
			for _, done := range handles {
				a.Release(done)
			}
			return nil, fmt.Errorf("frame %d of %d: %w", i, count, err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Adopt takes ownership of an existing buffer.
func (a *Arena[T]) Adopt(data []T) Handle {
	return a.insert(data, ValueRange{})
}

// Alias adds a reference to h and returns it.  The buffer and its statistics
// are shared.
func (a *Arena[T]) Alias(h Handle) (Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, found := a.entries[h]
	if !found {
		return 0, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	e.refs++
	return h, nil
}

// Duplicate copies the buffer behind h into a new buffer with its own statistics
// entry.
func (a *Arena[T]) Duplicate(h Handle) (Handle, error) {
	e, err := a.lookup(h)
	if err != nil {
		return 0, err
	}
	buf, err := allocate[T](len(e.data), a.limit)
	if err != nil {
		return 0, err
	}
	copy(buf, e.data)
	a.mu.RLock()
	rng := e.rng.Clone()
	a.mu.RUnlock()
	return a.insert(buf, rng), nil
}

// Release drops one reference to h.  The buffer is forgotten when no references
// remain.
func (a *Arena[T]) Release(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, found := a.entries[h]
	if !found {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(a.entries, h)
	}
}

// RefCount returns the number of references to h, 0 if unknown.
func (a *Arena[T]) RefCount(h Handle) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, found := a.entries[h]; found {
		return e.refs
	}
	return 0
}

// Len returns the number of live buffers.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Data returns the buffer behind h for reading.  Writing through the returned
// slice leaves stale statistics; use Mutable for writes.
func (a *Arena[T]) Data(h Handle) ([]T, error) {
	e, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	return e.data, nil
}

// Mutable returns the buffer behind h for writing and marks its statistics stale.
func (a *Arena[T]) Mutable(h Handle) ([]T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, found := a.entries[h]
	if !found {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	e.rng.Valid = false
	e.gen++
	return e.data, nil
}

// Invalidate marks the statistics of h stale.
func (a *Arena[T]) Invalidate(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, found := a.entries[h]; found {
		e.rng.Valid = false
		e.gen++
	}
}

// Valid reports whether the cached statistics of h are current.
func (a *Arena[T]) Valid(h Handle) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, found := a.entries[h]; found {
		return e.rng.usable()
	}
	return false
}

// Range returns the statistics of h, recomputing them first if they are stale.
// Element types without a finder report NaNRange.
func (a *Arena[T]) Range(h Handle) (ValueRange, error) {
	e, err := a.lookup(h)
	if err != nil {
		return ValueRange{}, err
	}
	a.mu.RLock()
	if e.rng.usable() {
		rng := e.rng.Clone()
		a.mu.RUnlock()
		return rng, nil
	}
	data, gen := e.data, e.gen
	a.mu.RUnlock()

	if !a.hasFinder {
		return NaNRange(), nil
	}
	min, max := a.finder(data)
	rng := ValueRange{Min: min, Max: max, Valid: true}

	a.mu.Lock()
	if e.gen == gen {
		e.rng = rng
	}
	a.mu.Unlock()
	return rng.Clone(), nil
}

// Seed stores externally known statistics for h, for example ones loaded with
// the buffer, so that no rescan is needed.
func (a *Arena[T]) Seed(h Handle, min, max []float64) error {
	if len(min) == 0 || len(min) != len(max) {
		return fmt.Errorf("statistics for handle %d have %d minima and %d maxima", h, len(min), len(max))
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	e, found := a.entries[h]
	if !found {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	e.gen++
	e.rng = ValueRange{
		Min:   append([]float64(nil), min...),
		Max:   append([]float64(nil), max...),
		Valid: true,
	}
	return nil
}
