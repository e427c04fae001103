package axis

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"hyperstack/internal/logging"
)

type warnings struct {
	lines []string
}

func (w *warnings) Debugf(format string, args ...interface{})    {}
func (w *warnings) Infof(format string, args ...interface{})     {}
func (w *warnings) Errorf(format string, args ...interface{})    {}
func (w *warnings) Criticalf(format string, args ...interface{}) {}
func (w *warnings) Shutdown()                                    {}
func (w *warnings) Warningf(format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...))
}

func captureWarnings(t *testing.T) *warnings {
	t.Helper()
	w := &warnings{}
	prev := logging.SetLogger(w)
	prevMode := logging.Mode()
	logging.SetLogMode(logging.DebugMode)
	t.Cleanup(func() {
		logging.SetLogger(prev)
		logging.SetLogMode(prevMode)
	})
	return w
}

func mustNew(t *testing.T, name string, count int, min, max float64) *Axis {
	t.Helper()
	a, err := New(name, count, min, max, "")
	if err != nil {
		t.Fatalf("New(%q, %d) failed: %v", name, count, err)
	}
	return a
}

func TestNewRejectsBadCount(t *testing.T) {
	for _, count := range []int{0, -3} {
		if _, err := New("Z", count, 0, 1, ""); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("count %d: expected ErrInvalidCount, got %v", count, err)
		}
	}
	if _, err := NewChannel(0); !errors.Is(err, ErrInvalidCount) {
		t.Errorf("NewChannel(0): expected ErrInvalidCount, got %v", err)
	}
}

func TestStepAndSize(t *testing.T) {
	a := mustNew(t, "Z", 5, 10, 30)
	if a.Step() != 5 {
		t.Errorf("Expected step 5, got %g", a.Step())
	}
	if a.Size() != 20 {
		t.Errorf("Expected size 20, got %g", a.Size())
	}
	single := mustNew(t, "T", 1, 3, 3)
	if single.Step() != 0 {
		t.Errorf("Single element axis should have step 0, got %g", single.Step())
	}
}

func TestIndexOf(t *testing.T) {
	w := captureWarnings(t)
	a := mustNew(t, "Z", 5, 0, 4)

	tests := []struct {
		value float64
		want  int
	}{
		{0, 0},
		{2.6, 3},
		{2.4, 2},
		{4, 4},
		{4.2, 4},
	}
	for _, tt := range tests {
		if got := a.IndexOf(tt.value); got != tt.want {
			t.Errorf("IndexOf(%g) = %d, want %d", tt.value, got, tt.want)
		}
	}
	if len(w.lines) != 0 {
		t.Errorf("In-range lookups should not warn, got %v", w.lines)
	}

	if got := a.IndexOf(-7); got != 0 {
		t.Errorf("IndexOf(-7) = %d, want 0", got)
	}
	if got := a.IndexOf(99); got != 4 {
		t.Errorf("IndexOf(99) = %d, want 4", got)
	}
	if got := a.IndexOf(math.NaN()); got != 0 {
		t.Errorf("IndexOf(NaN) = %d, want 0", got)
	}
	if len(w.lines) != 3 {
		t.Fatalf("Expected 3 clamp warnings, got %d: %v", len(w.lines), w.lines)
	}
	if !strings.Contains(w.lines[1], "clamping to index 4") {
		t.Errorf("Unexpected warning %q", w.lines[1])
	}
}

func TestIndexOfDescendingRange(t *testing.T) {
	a := mustNew(t, "Z", 3, 10, 0)
	if got := a.IndexOf(5); got != 1 {
		t.Errorf("IndexOf(5) = %d, want 1", got)
	}
	if got := a.IndexOf(0); got != 2 {
		t.Errorf("IndexOf(0) = %d, want 2", got)
	}
}

func TestValueAt(t *testing.T) {
	a := mustNew(t, "Z", 5, 1, 3)
	v, err := a.ValueAt(2)
	if err != nil {
		t.Fatalf("ValueAt(2) failed: %v", err)
	}
	if v != 2 {
		t.Errorf("ValueAt(2) = %g, want 2", v)
	}
	for _, i := range []int{-1, 5} {
		if _, err := a.ValueAt(i); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ValueAt(%d): expected ErrOutOfRange, got %v", i, err)
		}
	}
}

func TestSetIndexNotifiesOnlyOnChange(t *testing.T) {
	a := mustNew(t, "T", 4, 0, 3)
	var events []Event
	a.Subscribe(func(ax *Axis, ev Event) { events = append(events, ev) })

	if err := a.SetIndex(2); err != nil {
		t.Fatalf("SetIndex(2) failed: %v", err)
	}
	if err := a.SetIndex(2); err != nil {
		t.Fatalf("SetIndex(2) again failed: %v", err)
	}
	if len(events) != 1 || events[0] != IndexChanged {
		t.Errorf("Expected a single IndexChanged, got %v", events)
	}
	if err := a.SetIndex(4); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetIndex(4): expected ErrOutOfRange, got %v", err)
	}
	if a.Index() != 2 {
		t.Errorf("Failed SetIndex should not move the axis, index is %d", a.Index())
	}
}

func TestScaleSetters(t *testing.T) {
	a := mustNew(t, "Z", 3, 0, 1)
	scaleEvents := 0
	a.Subscribe(func(ax *Axis, ev Event) {
		if ev == ScaleChanged {
			scaleEvents++
		}
	})

	a.SetMin(0)
	a.SetMax(2)
	a.SetRange(-1, 2)
	if scaleEvents != 2 {
		t.Errorf("Expected 2 scale events, got %d", scaleEvents)
	}

	a.SetIndexBased(true)
	if a.Min() != 0 || a.Max() != 2 {
		t.Errorf("Index-based axis should span [0,2], got [%g,%g]", a.Min(), a.Max())
	}
	if scaleEvents != 3 {
		t.Errorf("Turning on index-based mode should fire a scale event, got %d", scaleEvents)
	}

	a.SetMin(5)
	a.SetMax(9)
	if a.Min() != 0 || a.Max() != 2 || scaleEvents != 3 {
		t.Errorf("Setters must be ignored while index based: [%g,%g] events=%d", a.Min(), a.Max(), scaleEvents)
	}

	a.SetIndexBased(false)
	if a.Min() != 0 || a.Max() != 2 {
		t.Errorf("Turning off index-based mode should keep the range, got [%g,%g]", a.Min(), a.Max())
	}
	a.SetMax(10)
	if a.Max() != 10 {
		t.Errorf("Expected max 10 after leaving index-based mode, got %g", a.Max())
	}
}

func TestNameAndUnitEvents(t *testing.T) {
	a := mustNew(t, "Z", 2, 0, 1)
	var events []Event
	cancel := a.Subscribe(func(ax *Axis, ev Event) { events = append(events, ev) })

	a.SetName("Z")
	a.SetName("Depth")
	a.SetUnit("nm")
	a.SetUnit("nm")
	if len(events) != 2 || events[0] != NameChanged || events[1] != UnitChanged {
		t.Errorf("Unexpected events %v", events)
	}

	cancel()
	cancel()
	a.SetName("Z")
	if len(events) != 2 {
		t.Errorf("Cancelled listener still notified: %v", events)
	}
	if a.Listeners() != 0 {
		t.Errorf("Expected no listeners, got %d", a.Listeners())
	}
}

func TestClone(t *testing.T) {
	a := mustNew(t, "Z", 6, 2, 12)
	a.SetUnit("µm")
	if err := a.SetIndex(3); err != nil {
		t.Fatal(err)
	}
	a.Subscribe(func(*Axis, Event) {})

	c := a.Clone()
	if c.Count() != 6 || c.Min() != 2 || c.Max() != 12 || c.Name() != "Z" || c.Unit() != "µm" {
		t.Errorf("Clone lost properties: %v", c)
	}
	if c.Listeners() != 0 {
		t.Errorf("Clone should not copy listeners")
	}
	if c.Index() != 0 {
		t.Errorf("Clone should start at index 0, got %d", c.Index())
	}
	c.SetName("Other")
	if a.Name() != "Z" {
		t.Errorf("Clone shares state with original")
	}
}

func TestFactories(t *testing.T) {
	ch, err := NewChannel(3)
	if err != nil {
		t.Fatal(err)
	}
	if !ch.IsIndexBased() || ch.Name() != NameChannel || ch.Max() != 2 {
		t.Errorf("Unexpected channel axis %v", ch)
	}
	z, err := NewZ(10, 0, 9)
	if err != nil {
		t.Fatal(err)
	}
	if z.Unit() != "µm" || z.IsIndexBased() {
		t.Errorf("Unexpected Z axis %v", z)
	}
	tm, err := NewTime(4, 0, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	if tm.Unit() != "s" || tm.Step() != 0.5 {
		t.Errorf("Unexpected time axis %v", tm)
	}
}
