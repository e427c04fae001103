package volume

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"hyperstack/pkg/axis"
	"hyperstack/pkg/frames"
)

// samples converts in.Values into pooled float64 scratch.  The caller returns
// the scratch with putScratch.
func samples[T frames.Numeric](values []T) *[]float64 {
	x := getScratch[float64](len(values))
	for i, v := range values {
		(*x)[i] = float64(v)
	}
	return x
}

// Quantile returns a reducer yielding the empirical p-quantile of the samples.
func Quantile[T frames.Numeric](p float64) (ReduceFunc[T], error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: quantile %g not in [0,1]", axis.ErrOutOfRange, p)
	}
	conv := converter[T]()
	return func(in ReduceInput[T]) T {
		x := samples(in.Values)
		defer putScratch(x)
		sort.Float64s(*x)
		return conv(stat.Quantile(p, stat.Empirical, *x, nil))
	}, nil
}

// Median returns a reducer yielding the median of the samples.  With an even
// number of samples the two middle values are averaged.
func Median[T frames.Numeric]() ReduceFunc[T] {
	conv := converter[T]()
	return func(in ReduceInput[T]) T {
		x := samples(in.Values)
		defer putScratch(x)
		sort.Float64s(*x)
		n := len(*x)
		if n%2 == 1 {
			return conv((*x)[n/2])
		}
		return conv(((*x)[n/2-1] + (*x)[n/2]) / 2)
	}
}

// StdDev returns a reducer yielding the sample standard deviation.
func StdDev[T frames.Numeric]() ReduceFunc[T] {
	conv := converter[T]()
	return func(in ReduceInput[T]) T {
		if len(in.Values) < 2 {
			return 0
		}
		x := samples(in.Values)
		defer putScratch(x)
		return conv(stat.StdDev(*x, nil))
	}
}

// Range returns a reducer yielding the spread between the largest and
// smallest sample.
func Range[T frames.Numeric]() ReduceFunc[T] {
	conv := converter[T]()
	return func(in ReduceInput[T]) T {
		x := samples(in.Values)
		defer putScratch(x)
		return conv(floats.Max(*x) - floats.Min(*x))
	}
}
