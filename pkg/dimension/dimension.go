// Package dimension maps an ordered list of axes onto a flat sequence of frames.
//
// The first axis varies fastest: strides[0] is 1 and strides[i] is
// strides[i-1]*count[i-1], so the frame index of a coordinate vector v is
// Σ v[i]*strides[i].  A Structure also keeps the active frame index of its host
// and the current index of every axis in agreement, whichever side changes.
package dimension

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"hyperstack/internal/logging"
	"hyperstack/pkg/axis"
)

var (
	ErrDuplicateAxis      = errors.New("duplicate axis name")
	ErrFrameCountMismatch = errors.New("axis counts do not multiply to the frame count")
	ErrNoAxes             = errors.New("no axes defined")
	ErrUnknownAxis        = errors.New("unknown axis")
)

// Host is the container whose frames a Structure describes.
type Host interface {
	FrameCount() int
	ActiveIndex() int
	SetActiveIndex(int) error
}

type syncState int32

const (
	stateIdle syncState = iota
	stateSyncingFromHost
	stateSyncingFromAxis
)

func (s syncState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSyncingFromHost:
		return "syncing from host"
	case stateSyncingFromAxis:
		return "syncing from axis"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Structure composes axes over the frames of a Host.
type Structure struct {
	host    Host
	axes    []*axis.Axis
	strides []int
	cancels []func()

	state atomic.Int32
}

// New creates a Structure over host with the given axes.
func New(host Host, axes ...*axis.Axis) (*Structure, error) {
	s := &Structure{host: host}
	if err := s.Define(axes...); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that axes can describe frameCount frames and returns their strides.
func Validate(frameCount int, axes []*axis.Axis) ([]int, error) {
	if len(axes) == 0 {
		return nil, ErrNoAxes
	}
	seen := make(map[string]struct{}, len(axes))
	strides := make([]int, len(axes))
	product := 1
	for i, a := range axes {
		if a == nil {
			return nil, fmt.Errorf("axis %d is nil", i)
		}
		key := strings.ToLower(a.Name())
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAxis, a.Name())
		}
		seen[key] = struct{}{}
		strides[i] = product
		product *= a.Count()
	}
	if product != frameCount {
		return nil, fmt.Errorf("%w: %s gives %d, host has %d frames",
			ErrFrameCountMismatch, describe(axes), product, frameCount)
	}
	return strides, nil
}

func describe(axes []*axis.Axis) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = fmt.Sprintf("%s=%d", a.Name(), a.Count())
	}
	return strings.Join(parts, "×")
}

// Define replaces the axis list.  On failure the previous definition stays in place.
// The new axes are aligned with the host's active index before they are subscribed,
// so defining never moves the host.  Subscriptions on the previous axes are released.
func (s *Structure) Define(axes ...*axis.Axis) error {
	frameCount := s.host.FrameCount()
	strides, err := Validate(frameCount, axes)
	if err != nil {
		return err
	}
	frame := s.host.ActiveIndex()
	if frame < 0 || frame >= frameCount {
		return fmt.Errorf("%w: active frame %d not in [0,%d)", axis.ErrOutOfRange, frame, frameCount)
	}
	for i, a := range axes {
		if err := a.SetIndex((frame / strides[i]) % a.Count()); err != nil {
			return err
		}
	}
	s.release()

	s.axes = append([]*axis.Axis(nil), axes...)
	s.strides = strides
	s.cancels = make([]func(), len(s.axes))
	for i, a := range s.axes {
		s.cancels[i] = a.Subscribe(s.axisChanged)
	}
	logging.Debugf("dimensions defined: %s", describe(s.axes))
	return nil
}

func (s *Structure) release() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

// Close releases the axis subscriptions.  The Structure must not be used afterwards.
func (s *Structure) Close() {
	s.release()
}

// claim moves the state machine from idle to next.  It fails if a synchronization
// is already in progress, which means the caller is being notified of a change
// made by that synchronization.
func (s *Structure) claim(next syncState) bool {
	return s.state.CompareAndSwap(int32(stateIdle), int32(next))
}

func (s *Structure) done() {
	s.state.Store(int32(stateIdle))
}

// HostIndexChanged moves every axis to the position of frame.  The host calls it
// after its active index changed; calls made while the axes are themselves
// updating the host are ignored.
func (s *Structure) HostIndexChanged(frame int) error {
	if !s.claim(stateSyncingFromHost) {
		return nil
	}
	defer s.done()

	if frame < 0 || frame >= s.host.FrameCount() {
		return fmt.Errorf("%w: frame %d not in [0,%d)", axis.ErrOutOfRange, frame, s.host.FrameCount())
	}
	for i, a := range s.axes {
		if err := a.SetIndex((frame / s.strides[i]) % a.Count()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Structure) axisChanged(a *axis.Axis, ev axis.Event) {
	if ev != axis.IndexChanged {
		return
	}
	if !s.claim(stateSyncingFromAxis) {
		return
	}
	defer s.done()

	frame := 0
	for i, ax := range s.axes {
		frame += ax.Index() * s.strides[i]
	}
	if err := s.host.SetActiveIndex(frame); err != nil {
		logging.Errorf("axis %q moved to %d but host rejected frame %d: %v", a.Name(), a.Index(), frame, err)
	}
}

// Rank returns the number of axes.
func (s *Structure) Rank() int { return len(s.axes) }

// FrameCount returns the number of frames described.
func (s *Structure) FrameCount() int { return s.host.FrameCount() }

// Axes returns the axes in declaration order.
func (s *Structure) Axes() []*axis.Axis {
	return append([]*axis.Axis(nil), s.axes...)
}

// Strides returns a copy of the stride table.
func (s *Structure) Strides() []int {
	return append([]int(nil), s.strides...)
}

// AxisPosition returns the position of the named axis, matched case-insensitively,
// or -1.
func (s *Structure) AxisPosition(name string) int {
	for i, a := range s.axes {
		if strings.EqualFold(a.Name(), name) {
			return i
		}
	}
	return -1
}

// Axis returns the named axis.
func (s *Structure) Axis(name string) (*axis.Axis, bool) {
	if i := s.AxisPosition(name); i >= 0 {
		return s.axes[i], true
	}
	return nil, false
}

// FrameIndexOf composes per-axis indices into a flat frame index.
func (s *Structure) FrameIndexOf(indices []int) (int, error) {
	if len(indices) != len(s.axes) {
		return 0, fmt.Errorf("%w: got %d indices for %d axes", axis.ErrOutOfRange, len(indices), len(s.axes))
	}
	frame := 0
	for i, a := range s.axes {
		if indices[i] < 0 || indices[i] >= a.Count() {
			return 0, fmt.Errorf("%w: axis %q index %d not in [0,%d)", axis.ErrOutOfRange, a.Name(), indices[i], a.Count())
		}
		frame += indices[i] * s.strides[i]
	}
	return frame, nil
}

// CopyAxisIndicesTo decomposes frame into per-axis indices written to dst.
func (s *Structure) CopyAxisIndicesTo(dst []int, frame int) error {
	if len(dst) < len(s.axes) {
		return fmt.Errorf("%w: buffer holds %d indices, need %d", axis.ErrOutOfRange, len(dst), len(s.axes))
	}
	if frame < 0 || frame >= s.host.FrameCount() {
		return fmt.Errorf("%w: frame %d not in [0,%d)", axis.ErrOutOfRange, frame, s.host.FrameCount())
	}
	for i, a := range s.axes {
		dst[i] = (frame / s.strides[i]) % a.Count()
	}
	return nil
}

// CurrentIndices writes the current index of every axis to dst.
func (s *Structure) CurrentIndices(dst []int) error {
	if len(dst) < len(s.axes) {
		return fmt.Errorf("%w: buffer holds %d indices, need %d", axis.ErrOutOfRange, len(dst), len(s.axes))
	}
	for i, a := range s.axes {
		dst[i] = a.Index()
	}
	return nil
}

// IndicesForSlice returns, in ascending order, the frames whose index along the
// named axis equals fixed.
func (s *Structure) IndicesForSlice(name string, fixed int) ([]int, error) {
	return s.IndicesWhere(map[string]int{name: fixed})
}

// IndicesWhere returns, in ascending order, the frames matching every
// axis-name/index pair in fixed.
func (s *Structure) IndicesWhere(fixed map[string]int) ([]int, error) {
	type constraint struct{ pos, index int }
	constraints := make([]constraint, 0, len(fixed))
	expected := s.host.FrameCount()
	for name, index := range fixed {
		pos := s.AxisPosition(name)
		if pos < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAxis, name)
		}
		a := s.axes[pos]
		if index < 0 || index >= a.Count() {
			return nil, fmt.Errorf("%w: axis %q index %d not in [0,%d)", axis.ErrOutOfRange, a.Name(), index, a.Count())
		}
		constraints = append(constraints, constraint{pos, index})
		expected /= a.Count()
	}

	frames := make([]int, 0, expected)
	for f := 0; f < s.host.FrameCount(); f++ {
		match := true
		for _, c := range constraints {
			if (f/s.strides[c.pos])%s.axes[c.pos].Count() != c.index {
				match = false
				break
			}
		}
		if match {
			frames = append(frames, f)
		}
	}
	return frames, nil
}

func (s *Structure) String() string {
	return describe(s.axes)
}
