package volume

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"hyperstack/pkg/frames"
	"hyperstack/pkg/parallel"
	"hyperstack/pkg/stack"
)

// Op is a built-in projection.
type Op int

const (
	ProjectMax Op = iota
	ProjectMin
	ProjectAverage
	ProjectSum
)

var ErrOp = errors.New("unknown projection")

func (o Op) String() string {
	switch o {
	case ProjectMax:
		return "max"
	case ProjectMin:
		return "min"
	case ProjectAverage:
		return "avg"
	case ProjectSum:
		return "sum"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp parses max, min, avg (or average) and sum.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(s) {
	case "max":
		return ProjectMax, nil
	case "min":
		return ProjectMin, nil
	case "avg", "average", "mean":
		return ProjectAverage, nil
	case "sum":
		return ProjectSum, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrOp, s)
}

// limits returns the representable range of T and whether T is an integer type.
func limits[T frames.Numeric]() (lo, hi float64, integer bool) {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Int8:
		return math.MinInt8, math.MaxInt8, true
	case reflect.Uint8:
		return 0, math.MaxUint8, true
	case reflect.Int16:
		return math.MinInt16, math.MaxInt16, true
	case reflect.Uint16:
		return 0, math.MaxUint16, true
	case reflect.Int32:
		return math.MinInt32, math.MaxInt32, true
	case reflect.Uint32:
		return 0, math.MaxUint32, true
	case reflect.Int64, reflect.Int:
		return math.MinInt64, math.MaxInt64, true
	case reflect.Uint64, reflect.Uint:
		return 0, math.MaxUint64, true
	}
	return math.Inf(-1), math.Inf(1), false
}

// converter returns a function mapping float64 results to T.  Integer results
// are rounded and saturated.
func converter[T frames.Numeric]() func(float64) T {
	lo, hi, integer := limits[T]()
	if !integer {
		return func(f float64) T { return T(f) }
	}
	return func(f float64) T {
		switch {
		case math.IsNaN(f):
			return 0
		case f <= lo:
			f = lo
		case f >= hi:
			// float64(MaxInt64) rounds up past the type's range.
			if hi > 1<<53 {
				return T(uint64(math.Nextafter(hi, 0)))
			}
			f = hi
		}
		return T(math.Round(f))
	}
}

// Project reduces v along dir with a built-in operation.  Average and sum are
// accumulated in float64; integer results are rounded and saturated.
func Project[T frames.Numeric](v *Volume[T], dir Direction, op Op) (*stack.Stack[T], error) {
	if op < ProjectMax || op > ProjectSum {
		return nil, fmt.Errorf("%w: %d", ErrOp, int(op))
	}
	p, err := v.plane(dir)
	if err != nil {
		return nil, err
	}
	s, out, err := v.allocate(p, 1)
	if err != nil {
		return nil, err
	}
	dst := out[0]
	conv := converter[T]()
	n := p.count()
	w := v.width

	switch dir {
	case X:
		// Every output pixel reduces one contiguous source row.
		parallel.For(p.yCount, v.workers, func(lo, hi int) {
			for oy := lo; oy < hi; oy++ {
				for oz := 0; oz < p.xCount; oz++ {
					dst[oy*p.xCount+oz] = reduceRow(v.buffers[oz][oy*w:(oy+1)*w], op, conv)
				}
			}
		})
	case Y, Z:
		// Whole output rows accumulate one contiguous source line per sample.
		line := func(oy, k int) []T {
			if dir == Y {
				return v.buffers[oy][k*w : (k+1)*w]
			}
			return v.buffers[k][oy*w : (oy+1)*w]
		}
		parallel.For(p.yCount, v.workers, func(lo, hi int) {
			acc := make([]float64, p.xCount)
			for oy := lo; oy < hi; oy++ {
				row := dst[oy*p.xCount : (oy+1)*p.xCount]
				accumulate(row, acc, n, func(k int) []T { return line(oy, k) }, op, conv)
			}
		})
	}
	return s, nil
}

func reduceRow[T frames.Numeric](vals []T, op Op, conv func(float64) T) T {
	switch op {
	case ProjectMax:
		m := vals[0]
		for _, x := range vals[1:] {
			m = max(m, x)
		}
		return m
	case ProjectMin:
		m := vals[0]
		for _, x := range vals[1:] {
			m = min(m, x)
		}
		return m
	}
	sum := 0.0
	for _, x := range vals {
		sum += float64(x)
	}
	if op == ProjectAverage {
		sum /= float64(len(vals))
	}
	return conv(sum)
}

func accumulate[T frames.Numeric](row []T, acc []float64, n int, line func(k int) []T, op Op, conv func(float64) T) {
	switch op {
	case ProjectMax, ProjectMin:
		copy(row, line(0))
		for k := 1; k < n; k++ {
			src := line(k)
			if op == ProjectMax {
				for i, x := range src {
					row[i] = max(row[i], x)
				}
			} else {
				for i, x := range src {
					row[i] = min(row[i], x)
				}
			}
		}
		return
	}
	clear(acc)
	for k := 0; k < n; k++ {
		for i, x := range line(k) {
			acc[i] += float64(x)
		}
	}
	for i, sum := range acc {
		if op == ProjectAverage {
			sum /= float64(n)
		}
		row[i] = conv(sum)
	}
}
