package volume

import (
	"fmt"

	"hyperstack/internal/logging"
	"hyperstack/pkg/axis"
	"hyperstack/pkg/parallel"
	"hyperstack/pkg/stack"
)

// Restack returns the volume viewed along dir as a new stack.
//
// Along X there is one frame per column, each depth by height pixels scaled by
// the depth and Y axes.  Along Y there is one frame per row, each width by depth
// pixels scaled by the X and depth axes.  Along Z the frames are copied.
func (v *Volume[T]) Restack(dir Direction) (*stack.Stack[T], error) {
	p, err := v.plane(dir)
	if err != nil {
		return nil, err
	}
	tlog := logging.NewTimeLog()
	s, out, err := v.allocate(p, p.count(), p.across.Clone())
	if err != nil {
		return nil, err
	}
	v.fill(dir, out, 0, p.count(), true)
	tlog.Debugf("restacked %dx%dx%d along %s", v.width, v.height, len(v.buffers), dir)
	return s, nil
}

// SliceAt returns the single plane at index along dir.
func (v *Volume[T]) SliceAt(dir Direction, index int) (*stack.Stack[T], error) {
	p, err := v.plane(dir)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= p.count() {
		return nil, fmt.Errorf("%w: %s slice %d not in [0,%d)", axis.ErrOutOfRange, dir, index, p.count())
	}
	s, out, err := v.allocate(p, 1)
	if err != nil {
		return nil, err
	}
	// fill addresses planes by their index along dir.
	planes := make([][]T, p.count())
	planes[index] = out[0]
	v.fill(dir, planes, index, index+1, false)
	return s, nil
}

// fill copies planes [lo, hi) along dir into out, which is indexed by plane.
func (v *Volume[T]) fill(dir Direction, out [][]T, lo, hi int, concurrent bool) {
	workers := v.workers
	if !concurrent {
		workers = 1
	}
	switch dir {
	case X:
		// Columns are gathered in blocks so every source row is read contiguously.
		parallel.For(hi-lo, workers, func(a, b int) {
			v.fillX(out, lo+a, lo+b)
		})
	case Y:
		parallel.For(hi-lo, workers, func(a, b int) {
			for iy := lo + a; iy < lo+b; iy++ {
				dst := out[iy]
				for iz, buf := range v.buffers {
					copy(dst[iz*v.width:(iz+1)*v.width], buf[iy*v.width:(iy+1)*v.width])
				}
			}
		})
	case Z:
		parallel.For(hi-lo, workers, func(a, b int) {
			for iz := lo + a; iz < lo+b; iz++ {
				copy(out[iz], v.buffers[iz])
			}
		})
	}
}

func (v *Volume[T]) fillX(out [][]T, lo, hi int) {
	depth := len(v.buffers)
	for b := lo; b < hi; b += v.block {
		e := min(b+v.block, hi)
		for iz, buf := range v.buffers {
			for iy := 0; iy < v.height; iy++ {
				row := buf[iy*v.width : (iy+1)*v.width]
				o := iy*depth + iz
				for ix := b; ix < e; ix++ {
					out[ix][o] = row[ix]
				}
			}
		}
	}
}
