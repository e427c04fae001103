// Package axis implements a single named dimension of a frame sequence: a fixed
// element count, a physical value range, and a current position with change
// notifications.
package axis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"hyperstack/internal/logging"
)

var (
	// ErrOutOfRange is returned for indices or coordinates outside their valid span.
	ErrOutOfRange = errors.New("index out of range")

	// ErrInvalidCount is returned when an axis is created with a non-positive count.
	ErrInvalidCount = errors.New("axis count must be positive")
)

// Event identifies which property of an Axis changed.
type Event int

const (
	NameChanged Event = iota
	IndexChanged
	ScaleChanged
	UnitChanged
)

func (e Event) String() string {
	switch e {
	case NameChanged:
		return "name"
	case IndexChanged:
		return "index"
	case ScaleChanged:
		return "scale"
	case UnitChanged:
		return "unit"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Listener is called after a property of the axis actually changed.
type Listener func(a *Axis, ev Event)

// Axis is one named dimension.  The count is fixed at construction; everything
// else may change.  When the axis is index based its range is pinned to
// [0, count-1].
//
// An Axis is not safe for concurrent mutation.
type Axis struct {
	count      int
	min, max   float64
	name       string
	unit       string
	index      int
	indexBased bool

	nextID    int
	listeners map[int]Listener
}

// New creates a range axis with count elements spanning [min, max].
func New(name string, count int, min, max float64, unit string) (*Axis, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: axis %q has count %d", ErrInvalidCount, name, count)
	}
	return &Axis{
		count: count,
		min:   min,
		max:   max,
		name:  name,
		unit:  unit,
	}, nil
}

func (a *Axis) Count() int         { return a.count }
func (a *Axis) Min() float64       { return a.min }
func (a *Axis) Max() float64       { return a.max }
func (a *Axis) Name() string       { return a.name }
func (a *Axis) Unit() string       { return a.unit }
func (a *Axis) Index() int         { return a.index }
func (a *Axis) IsIndexBased() bool { return a.indexBased }

// Size returns the extent max-min.
func (a *Axis) Size() float64 { return a.max - a.min }

// Step returns the physical distance between adjacent indices, or 0 for a
// single-element axis.
func (a *Axis) Step() float64 {
	if a.count == 1 {
		return 0
	}
	return (a.max - a.min) / float64(a.count-1)
}

// IndexOf maps a physical value to the nearest grid index.  Values that fall
// outside the axis are clamped to the first or last index and a warning is logged.
func (a *Axis) IndexOf(value float64) int {
	if a.count == 1 || a.max == a.min {
		return 0
	}
	pos := (value - a.min) * float64(a.count-1) / (a.max - a.min)
	if math.IsNaN(pos) {
		logging.Warningf("axis %q: value %g has no index, clamping to 0", a.name, value)
		return 0
	}
	pos = math.Round(pos)
	switch {
	case pos < 0:
		logging.Warningf("axis %q: value %g below range [%g, %g], clamping to index 0",
			a.name, value, a.min, a.max)
		return 0
	case pos > float64(a.count-1):
		logging.Warningf("axis %q: value %g above range [%g, %g], clamping to index %d",
			a.name, value, a.min, a.max, a.count-1)
		return a.count - 1
	}
	return int(pos)
}

// ValueAt returns the physical value at the given index.
func (a *Axis) ValueAt(index int) (float64, error) {
	if index < 0 || index >= a.count {
		return 0, fmt.Errorf("%w: axis %q index %d not in [0,%d)", ErrOutOfRange, a.name, index, a.count)
	}
	return float64(index)*a.Step() + a.min, nil
}

// SetIndex moves the current position of the axis.
func (a *Axis) SetIndex(i int) error {
	if i < 0 || i >= a.count {
		return fmt.Errorf("%w: axis %q index %d not in [0,%d)", ErrOutOfRange, a.name, i, a.count)
	}
	if i == a.index {
		return nil
	}
	a.index = i
	a.notify(IndexChanged)
	return nil
}

// SetMin sets the lower bound.  Ignored while the axis is index based.
func (a *Axis) SetMin(v float64) {
	a.SetRange(v, a.max)
}

// SetMax sets the upper bound.  Ignored while the axis is index based.
func (a *Axis) SetMax(v float64) {
	a.SetRange(a.min, v)
}

// SetRange sets both bounds with a single notification.  Ignored while the axis is
// index based.
func (a *Axis) SetRange(min, max float64) {
	if a.indexBased {
		return
	}
	if min == a.min && max == a.max {
		return
	}
	a.min, a.max = min, max
	a.notify(ScaleChanged)
}

// SetIndexBased toggles index-based mode.  Turning it on pins the range to
// [0, count-1]; turning it off keeps the last range until it is set explicitly.
func (a *Axis) SetIndexBased(on bool) {
	if on == a.indexBased {
		return
	}
	a.indexBased = on
	if !on {
		return
	}
	a.min, a.max = 0, float64(a.count-1)
	a.notify(ScaleChanged)
}

func (a *Axis) SetName(name string) {
	if name == a.name {
		return
	}
	a.name = name
	a.notify(NameChanged)
}

func (a *Axis) SetUnit(unit string) {
	if unit == a.unit {
		return
	}
	a.unit = unit
	a.notify(UnitChanged)
}

// Subscribe registers fn for change notifications.  The returned function removes
// the registration and is safe to call more than once.
func (a *Axis) Subscribe(fn Listener) (cancel func()) {
	if a.listeners == nil {
		a.listeners = make(map[int]Listener)
	}
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		delete(a.listeners, id)
	}
}

// Listeners returns the number of registered listeners.
func (a *Axis) Listeners() int {
	return len(a.listeners)
}

// notify calls listeners in registration order.
func (a *Axis) notify(ev Event) {
	if len(a.listeners) == 0 {
		return
	}
	ids := make([]int, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, found := a.listeners[id]; found {
			fn(a, ev)
		}
	}
}

// Clone returns an independent copy with the same count, range, name, unit and
// index-based flag.  Listeners and the current index are not copied.
func (a *Axis) Clone() *Axis {
	return &Axis{
		count:      a.count,
		min:        a.min,
		max:        a.max,
		name:       a.name,
		unit:       a.unit,
		indexBased: a.indexBased,
	}
}

func (a *Axis) String() string {
	if a.indexBased {
		return fmt.Sprintf("%s[%d] (index %d)", a.name, a.count, a.index)
	}
	return fmt.Sprintf("%s[%d] %g..%g %s (index %d)", a.name, a.count, a.min, a.max, a.unit, a.index)
}
