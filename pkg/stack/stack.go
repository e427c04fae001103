// Package stack implements the frame stack: a sequence of equally sized 2D pixel
// buffers described by a 2D scale and a set of named frame axes.
package stack

import (
	"errors"
	"fmt"
	"math"

	"hyperstack/internal/logging"
	"hyperstack/pkg/axis"
	"hyperstack/pkg/dimension"
	"hyperstack/pkg/frames"
)

var (
	// ErrBufferLength is returned when a buffer does not hold xCount*yCount elements.
	ErrBufferLength = errors.New("buffer length does not match frame size")

	// ErrScaleMismatch is returned when a scale axis count differs from the plane size.
	ErrScaleMismatch = errors.New("scale axis does not match frame size")

	// ErrClosed is returned by operations on a closed stack.
	ErrClosed = errors.New("stack is closed")
)

// Option configures a new Stack.
type Option func(*options)

type options struct {
	scaleX, scaleY *axis.Axis
	axes           []*axis.Axis
	limit          int64
}

// WithScale sets the physical scale of the image plane.  The axis counts must
// equal the plane width and height.
func WithScale(x, y *axis.Axis) Option {
	return func(o *options) {
		o.scaleX, o.scaleY = x, y
	}
}

// WithAxes defines the frame dimensions.  Without it a stack has a single
// index-based axis named "Frame".
func WithAxes(axes ...*axis.Axis) Option {
	return func(o *options) {
		o.axes = axes
	}
}

// WithAllocationLimit caps the size in bytes of each frame allocation.
func WithAllocationLimit(bytes int64) Option {
	return func(o *options) {
		o.limit = bytes
	}
}

// Stack is a sequence of frames of element type T.
//
// Frames may be shared with other stacks created by Reorder or SubStack; such
// stacks share the buffers and their cached statistics.  A Stack is not safe for
// concurrent mutation.
type Stack[T any] struct {
	arena   *frames.Arena[T]
	handles []frames.Handle

	xCount, yCount int
	scaleX, scaleY *axis.Axis
	dims           *dimension.Structure
	active         int

	nextID    int
	listeners map[int]func(int)
	closed    bool
}

// New allocates a stack of frameCount zeroed frames of xCount by yCount pixels.
func New[T any](xCount, yCount, frameCount int, opts ...Option) (*Stack[T], error) {
	o := collect(opts)
	n, err := planeSize(xCount, yCount)
	if err != nil {
		return nil, err
	}
	if frameCount <= 0 {
		return nil, fmt.Errorf("%w: frame count %d", axis.ErrInvalidCount, frameCount)
	}
	arena := frames.NewArena[T](frames.WithAllocationLimit(o.limit))
	handles, err := arena.AllocateFrames(frameCount, n)
	if err != nil {
		return nil, err
	}
	return build(arena, handles, xCount, yCount, o)
}

// FromFrames builds a stack over existing buffers.  The buffers are adopted, not
// copied.
func FromFrames[T any](xCount, yCount int, data [][]T, opts ...Option) (*Stack[T], error) {
	o := collect(opts)
	n, err := planeSize(xCount, yCount)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no frames", axis.ErrInvalidCount)
	}
	for i, buf := range data {
		if len(buf) != n {
			return nil, fmt.Errorf("%w: frame %d has %d elements, want %d", ErrBufferLength, i, len(buf), n)
		}
	}
	arena := frames.NewArena[T](frames.WithAllocationLimit(o.limit))
	handles := make([]frames.Handle, len(data))
	for i, buf := range data {
		handles[i] = arena.Adopt(buf)
	}
	return build(arena, handles, xCount, yCount, o)
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func planeSize(xCount, yCount int) (int, error) {
	if xCount <= 0 || yCount <= 0 {
		return 0, fmt.Errorf("%w: plane %dx%d", axis.ErrInvalidCount, xCount, yCount)
	}
	if yCount > math.MaxInt/xCount {
		return 0, fmt.Errorf("%w: plane %dx%d overflows", frames.ErrOutOfMemory, xCount, yCount)
	}
	return xCount * yCount, nil
}

// build wires a stack around handles it now owns.  On failure the handles are
// released.
func build[T any](arena *frames.Arena[T], handles []frames.Handle, xCount, yCount int, o options) (*Stack[T], error) {
	s := &Stack[T]{
		arena:   arena,
		handles: handles,
		xCount:  xCount,
		yCount:  yCount,
		scaleX:  o.scaleX,
		scaleY:  o.scaleY,
	}
	fail := func(err error) (*Stack[T], error) {
		for _, h := range handles {
			arena.Release(h)
		}
		return nil, err
	}

	var err error
	if s.scaleX == nil {
		if s.scaleX, err = axis.NewPixels(axis.NameX, xCount); err != nil {
			return fail(err)
		}
	}
	if s.scaleY == nil {
		if s.scaleY, err = axis.NewPixels(axis.NameY, yCount); err != nil {
			return fail(err)
		}
	}
	if s.scaleX.Count() != xCount || s.scaleY.Count() != yCount {
		return fail(fmt.Errorf("%w: scale %dx%d for plane %dx%d", ErrScaleMismatch,
			s.scaleX.Count(), s.scaleY.Count(), xCount, yCount))
	}

	axes := o.axes
	if len(axes) == 0 {
		def, err := axis.NewIndexBased(axis.NameFrame, len(handles))
		if err != nil {
			return fail(err)
		}
		axes = []*axis.Axis{def}
	}
	if s.dims, err = dimension.New(s, axes...); err != nil {
		return fail(err)
	}
	logging.Debugf("stack %dx%d with %d frames (%s)", xCount, yCount, len(handles), s.dims)
	return s, nil
}

// derive creates a stack sharing this stack's arena.
func (s *Stack[T]) derive(handles []frames.Handle, o options) (*Stack[T], error) {
	return build(s.arena, handles, s.xCount, s.yCount, o)
}

func (s *Stack[T]) XCount() int { return s.xCount }
func (s *Stack[T]) YCount() int { return s.yCount }

// FrameCount returns the number of frames.
func (s *Stack[T]) FrameCount() int { return len(s.handles) }

// ScaleX returns the axis describing image columns.
func (s *Stack[T]) ScaleX() *axis.Axis { return s.scaleX }

// ScaleY returns the axis describing image rows.
func (s *Stack[T]) ScaleY() *axis.Axis { return s.scaleY }

// Dimensions returns the frame axes.
func (s *Stack[T]) Dimensions() *dimension.Structure { return s.dims }

// DefineDimensions replaces the frame axes.
func (s *Stack[T]) DefineDimensions(axes ...*axis.Axis) error {
	return s.dims.Define(axes...)
}

// ActiveIndex returns the selected frame.
func (s *Stack[T]) ActiveIndex() int { return s.active }

// SetActiveIndex selects a frame and moves every axis to its coordinates.
func (s *Stack[T]) SetActiveIndex(i int) error {
	if err := s.checkFrame(i); err != nil {
		return err
	}
	if i == s.active {
		return nil
	}
	s.active = i
	var err error
	if s.dims != nil {
		err = s.dims.HostIndexChanged(i)
	}
	for _, fn := range s.listeners {
		fn(i)
	}
	return err
}

// SetPosition moves the named axis, which in turn moves the active frame.
func (s *Stack[T]) SetPosition(name string, index int) error {
	a, found := s.dims.Axis(name)
	if !found {
		return fmt.Errorf("%w: %q", dimension.ErrUnknownAxis, name)
	}
	return a.SetIndex(index)
}

// FrameAt returns the frame index of the given per-axis coordinates.
func (s *Stack[T]) FrameAt(indices ...int) (int, error) {
	return s.dims.FrameIndexOf(indices)
}

// OnActiveIndexChanged registers fn to be called with the new active index.
func (s *Stack[T]) OnActiveIndexChanged(fn func(int)) (cancel func()) {
	if s.listeners == nil {
		s.listeners = make(map[int]func(int))
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Stack[T]) checkFrame(i int) error {
	if s.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(s.handles) {
		return fmt.Errorf("%w: frame %d not in [0,%d)", axis.ErrOutOfRange, i, len(s.handles))
	}
	return nil
}

func (s *Stack[T]) checkPixel(x, y, frame int) error {
	if err := s.checkFrame(frame); err != nil {
		return err
	}
	if x < 0 || x >= s.xCount || y < 0 || y >= s.yCount {
		return fmt.Errorf("%w: pixel (%d,%d) outside %dx%d", axis.ErrOutOfRange, x, y, s.xCount, s.yCount)
	}
	return nil
}

// Close releases the frames and axis subscriptions.  Stacks sharing frames with
// this one are unaffected.
func (s *Stack[T]) Close() {
	if s.closed {
		return
	}
	for _, h := range s.handles {
		s.arena.Release(h)
	}
	if s.dims != nil {
		s.dims.Close()
	}
	s.closed = true
}

func (s *Stack[T]) String() string {
	return fmt.Sprintf("stack %dx%d %s active %d", s.xCount, s.yCount, s.dims, s.active)
}
