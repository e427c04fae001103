package frames

import (
	"math"
	"math/cmplx"
	"reflect"
	"sync"
)

// Numeric is the set of element types with built-in arithmetic and statistics.
type Numeric interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 |
		~int | ~uint | ~float32 | ~float64
}

// Finder computes per-mode minimum and maximum values of a buffer.  Both slices
// must have one entry per mode.
type Finder[T any] func(data []T) (min, max []float64)

// Modes of complex-valued frames, in the order their finder reports them.
const (
	ModeMagnitude = iota
	ModePhase
	ModeReal
	ModeImaginary
	ModePower
	complexModes
)

var finders sync.Map // reflect.Type -> Finder[T]

// RegisterFinder installs the statistics finder for element type T, replacing
// any previous one.  Arenas created afterwards use it.
func RegisterFinder[T any](f Finder[T]) {
	finders.Store(reflect.TypeFor[T](), f)
}

// LookupFinder returns the finder registered for T.
func LookupFinder[T any]() (Finder[T], bool) {
	v, found := finders.Load(reflect.TypeFor[T]())
	if !found {
		return nil, false
	}
	f, ok := v.(Finder[T])
	return f, ok
}

func init() {
	RegisterFinder[uint8](NumericFinder[uint8])
	RegisterFinder[int8](NumericFinder[int8])
	RegisterFinder[uint16](NumericFinder[uint16])
	RegisterFinder[int16](NumericFinder[int16])
	RegisterFinder[uint32](NumericFinder[uint32])
	RegisterFinder[int32](NumericFinder[int32])
	RegisterFinder[uint64](NumericFinder[uint64])
	RegisterFinder[int64](NumericFinder[int64])
	RegisterFinder[int](NumericFinder[int])
	RegisterFinder[uint](NumericFinder[uint])
	RegisterFinder[float32](NumericFinder[float32])
	RegisterFinder[float64](NumericFinder[float64])
	RegisterFinder[complex64](ComplexFinder[complex64])
	RegisterFinder[complex128](ComplexFinder[complex128])
}

// NumericFinder returns the single-mode range of data.  NaN values are skipped;
// a buffer with no comparable values yields a NaN pair.
func NumericFinder[T Numeric](data []T) (min, max []float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range data {
		f := float64(v)
		if f != f {
			continue
		}
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	if lo > hi {
		return []float64{math.NaN()}, []float64{math.NaN()}
	}
	return []float64{lo}, []float64{hi}
}

// ComplexFinder returns ranges for magnitude, phase, real, imaginary and power.
func ComplexFinder[T ~complex64 | ~complex128](data []T) (min, max []float64) {
	min = make([]float64, complexModes)
	max = make([]float64, complexModes)
	for m := range min {
		min[m], max[m] = math.Inf(1), math.Inf(-1)
	}
	var vals [complexModes]float64
	for _, v := range data {
		c := complex128(v)
		if cmplx.IsNaN(c) {
			continue
		}
		mag := cmplx.Abs(c)
		vals[ModeMagnitude] = mag
		vals[ModePhase] = cmplx.Phase(c)
		vals[ModeReal] = real(c)
		vals[ModeImaginary] = imag(c)
		vals[ModePower] = mag * mag
		for m, f := range vals {
			if f < min[m] {
				min[m] = f
			}
			if f > max[m] {
				max[m] = f
			}
		}
	}
	for m := range min {
		if min[m] > max[m] {
			min[m], max[m] = math.NaN(), math.NaN()
		}
	}
	return min, max
}
