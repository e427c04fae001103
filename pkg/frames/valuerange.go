package frames

import "math"

// ValueRange holds cached per-mode minima and maxima of one buffer.
type ValueRange struct {
	Min   []float64
	Max   []float64
	Valid bool
}

// NaNRange is the range reported when no statistics can be computed.
func NaNRange() ValueRange {
	return ValueRange{
		Min: []float64{math.NaN()},
		Max: []float64{math.NaN()},
	}
}

// Modes returns the number of (min, max) pairs.
func (r ValueRange) Modes() int {
	return len(r.Min)
}

// usable reports whether the cached values can be returned without a rescan.
func (r ValueRange) usable() bool {
	return r.Valid && len(r.Min) > 0 && len(r.Min) == len(r.Max)
}

// Clone returns a deep copy.
func (r ValueRange) Clone() ValueRange {
	return ValueRange{
		Min:   append([]float64(nil), r.Min...),
		Max:   append([]float64(nil), r.Max...),
		Valid: r.Valid,
	}
}

// Union widens r to include other, mode by mode.  NaN bounds are ignored.
func (r ValueRange) Union(other ValueRange) ValueRange {
	if len(r.Min) == 0 {
		return other.Clone()
	}
	out := r.Clone()
	for m := 0; m < len(out.Min) && m < len(other.Min); m++ {
		if lo := other.Min[m]; !math.IsNaN(lo) && (math.IsNaN(out.Min[m]) || lo < out.Min[m]) {
			out.Min[m] = lo
		}
		if hi := other.Max[m]; !math.IsNaN(hi) && (math.IsNaN(out.Max[m]) || hi > out.Max[m]) {
			out.Max[m] = hi
		}
	}
	out.Valid = r.Valid && other.Valid
	return out
}
