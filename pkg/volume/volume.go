// Package volume provides 3D access to a set of frames: voxel lookup, restacking
// along X, Y or Z, single-plane slicing and reductions along an axis.
//
// A Volume borrows its buffers.  Writes to the source frames made while an
// operation runs give undefined results; the outputs of every operation are new
// stacks that do not share memory with the source.
package volume

import (
	"errors"
	"fmt"
	"strings"

	"hyperstack/internal/logging"
	"hyperstack/pkg/axis"
	"hyperstack/pkg/dimension"
	"hyperstack/pkg/stack"
)

// Direction selects the axis an operation runs along.
type Direction int

const (
	X Direction = iota
	Y
	Z
)

func (d Direction) String() string {
	switch d {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses "x", "y" or "z" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "x":
		return X, nil
	case "y":
		return Y, nil
	case "z":
		return Z, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrDirection, s)
}

var (
	ErrDirection = errors.New("unknown direction")
	ErrGeometry  = errors.New("buffers do not match volume geometry")
)

const defaultBlockSize = 64

// Volume is a 3D view over depth frames of width by height pixels.
type Volume[T any] struct {
	buffers               [][]T
	scaleX, scaleY, depth *axis.Axis
	width, height         int

	workers int
	block   int
	limit   int64
}

// New binds buffers, one per depth index, to the given scale axes.
func New[T any](buffers [][]T, x, y, depth *axis.Axis) (*Volume[T], error) {
	if x == nil || y == nil || depth == nil {
		return nil, fmt.Errorf("%w: missing axis", ErrGeometry)
	}
	if len(buffers) != depth.Count() {
		return nil, fmt.Errorf("%w: %d buffers for depth %d", ErrGeometry, len(buffers), depth.Count())
	}
	n := x.Count() * y.Count()
	for i, buf := range buffers {
		if len(buf) != n {
			return nil, fmt.Errorf("%w: buffer %d has %d elements, want %dx%d", ErrGeometry, i, len(buf), x.Count(), y.Count())
		}
	}
	return &Volume[T]{
		buffers: buffers,
		scaleX:  x,
		scaleY:  y,
		depth:   depth,
		width:   x.Count(),
		height:  y.Count(),
		block:   defaultBlockSize,
	}, nil
}

// FromStack views the frames of s along the named axis.  Every other axis is
// held at its current index.
func FromStack[T any](s *stack.Stack[T], axisName string) (*Volume[T], error) {
	dims := s.Dimensions()
	pos := dims.AxisPosition(axisName)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %q", dimension.ErrUnknownAxis, axisName)
	}
	fixed := make(map[string]int)
	for i, a := range dims.Axes() {
		if i != pos {
			fixed[a.Name()] = a.Index()
		}
	}
	indices, err := dims.IndicesWhere(fixed)
	if err != nil {
		return nil, err
	}
	buffers := make([][]T, len(indices))
	for i, f := range indices {
		if buffers[i], err = s.FrameView(f); err != nil {
			return nil, err
		}
	}
	logging.Debugf("volume along %s over frames %v", axisName, indices)
	return New(buffers, s.ScaleX(), s.ScaleY(), dims.Axes()[pos])
}

// WithWorkers sets the number of goroutines used by operations on v.  Zero uses
// the process default.
func (v *Volume[T]) WithWorkers(n int) *Volume[T] {
	v.workers = n
	return v
}

// WithBlockSize sets the number of columns copied per block by X restacks.
func (v *Volume[T]) WithBlockSize(n int) *Volume[T] {
	if n < 1 {
		n = defaultBlockSize
	}
	v.block = n
	return v
}

// WithAllocationLimit caps each buffer allocated for outputs.
func (v *Volume[T]) WithAllocationLimit(bytes int64) *Volume[T] {
	v.limit = bytes
	return v
}

func (v *Volume[T]) Width() int  { return v.width }
func (v *Volume[T]) Height() int { return v.height }
func (v *Volume[T]) Depth() int  { return len(v.buffers) }

func (v *Volume[T]) ScaleX() *axis.Axis    { return v.scaleX }
func (v *Volume[T]) ScaleY() *axis.Axis    { return v.scaleY }
func (v *Volume[T]) DepthAxis() *axis.Axis { return v.depth }

// At returns the voxel at (ix, iy, iz).  Indices are not checked.
func (v *Volume[T]) At(ix, iy, iz int) T {
	return v.buffers[iz][iy*v.width+ix]
}

// plane describes the output of an operation along a direction: planes of
// xCount by yCount pixels scaled by sx and sy, and the axis that runs across
// them with count entries.
type plane struct {
	xCount, yCount int
	sx, sy         *axis.Axis
	across         *axis.Axis
}

func (p plane) count() int { return p.across.Count() }

func (v *Volume[T]) plane(dir Direction) (plane, error) {
	switch dir {
	case X:
		return plane{len(v.buffers), v.height, v.depth, v.scaleY, v.scaleX}, nil
	case Y:
		return plane{v.width, len(v.buffers), v.scaleX, v.depth, v.scaleY}, nil
	case Z:
		return plane{v.width, v.height, v.scaleX, v.scaleY, v.depth}, nil
	}
	return plane{}, fmt.Errorf("%w: %d", ErrDirection, int(dir))
}

// allocate creates a stack of count frames with the geometry of p and returns
// its writable buffers.
func (v *Volume[T]) allocate(p plane, count int, axes ...*axis.Axis) (*stack.Stack[T], [][]T, error) {
	opts := []stack.Option{
		stack.WithScale(p.sx.Clone(), p.sy.Clone()),
		stack.WithAllocationLimit(v.limit),
	}
	if len(axes) > 0 {
		opts = append(opts, stack.WithAxes(axes...))
	}
	s, err := stack.New[T](p.xCount, p.yCount, count, opts...)
	if err != nil {
		return nil, nil, err
	}
	out := make([][]T, count)
	for i := range out {
		if out[i], err = s.Frame(i); err != nil {
			s.Close()
			return nil, nil, err
		}
	}
	return s, out, nil
}
