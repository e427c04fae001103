package volume

import (
	"reflect"
	"sync"

	"hyperstack/internal/logging"
	"hyperstack/pkg/axis"
	"hyperstack/pkg/parallel"
	"hyperstack/pkg/stack"
)

// ReduceInput is passed to a ReduceFunc for one output pixel.
type ReduceInput[T any] struct {
	// X and Y are the pixel indices in the output plane; PX and PY are their
	// physical coordinates on the output scale.
	X, Y   int
	PX, PY float64

	// Axis is the axis being reduced.
	Axis *axis.Axis

	// Values holds the samples along Axis in index order.  The slice is reused
	// after the call returns.
	Values []T
}

// ReduceFunc combines the samples along an axis into one output value.
type ReduceFunc[T any] func(in ReduceInput[T]) T

var scratchPools sync.Map // reflect.Type -> *sync.Pool of *[]T

func poolFor[T any]() *sync.Pool {
	t := reflect.TypeFor[T]()
	if p, found := scratchPools.Load(t); found {
		return p.(*sync.Pool)
	}
	p, _ := scratchPools.LoadOrStore(t, &sync.Pool{})
	return p.(*sync.Pool)
}

func getScratch[T any](n int) *[]T {
	if p, ok := poolFor[T]().Get().(*[]T); ok && cap(*p) >= n {
		*p = (*p)[:n]
		return p
	}
	buf := make([]T, n)
	return &buf
}

func putScratch[T any](p *[]T) {
	poolFor[T]().Put(p)
}

// gather copies the samples behind output pixel (ox, oy) of a reduction along
// dir into dst.
func (v *Volume[T]) gather(dir Direction, ox, oy int, dst []T) {
	w := v.width
	switch dir {
	case X:
		copy(dst, v.buffers[ox][oy*w:(oy+1)*w])
	case Y:
		buf := v.buffers[oy]
		for iy := range dst {
			dst[iy] = buf[iy*w+ox]
		}
	case Z:
		o := oy*w + ox
		for iz, buf := range v.buffers {
			dst[iz] = buf[o]
		}
	}
}

func coordinates(a *axis.Axis) []float64 {
	out := make([]float64, a.Count())
	for i := range out {
		out[i], _ = a.ValueAt(i)
	}
	return out
}

// ReduceAlong collapses the volume along dir into a single-frame stack by
// calling fn once per output pixel.  fn runs concurrently on different pixels
// and must not retain in.Values.
func (v *Volume[T]) ReduceAlong(dir Direction, fn ReduceFunc[T]) (*stack.Stack[T], error) {
	p, err := v.plane(dir)
	if err != nil {
		return nil, err
	}
	s, out, err := v.allocate(p, 1)
	if err != nil {
		return nil, err
	}
	tlog := logging.NewTimeLog()
	dst := out[0]
	px, py := coordinates(p.sx), coordinates(p.sy)
	n := p.count()

	parallel.For(p.yCount, v.workers, func(lo, hi int) {
		scratch := getScratch[T](n)
		defer putScratch(scratch)
		in := ReduceInput[T]{Axis: p.across, Values: *scratch}
		for oy := lo; oy < hi; oy++ {
			in.Y, in.PY = oy, py[oy]
			for ox := 0; ox < p.xCount; ox++ {
				in.X, in.PX = ox, px[ox]
				v.gather(dir, ox, oy, in.Values)
				dst[oy*p.xCount+ox] = fn(in)
			}
		}
	})
	tlog.Debugf("reduced %s (%d samples) into %dx%d", dir, n, p.xCount, p.yCount)
	return s, nil
}
