// Package description encodes the layout of a frame stack for external codecs:
// the plane size and scale, the ordered frame axes with their stride table, and
// optionally the cached per-frame statistics so that a loader can seed them
// without rescanning the pixels.
//
// Strides follow the first-axis-fastest convention: strides[0] is 1 and
// strides[i] is strides[i-1]*count[i-1].  Tools that use the row-major "last
// axis fastest" convention must transpose the axis order on import and export.
package description

import (
	"errors"
	"fmt"
	"io"

	"github.com/blang/semver"

	"hyperstack/pkg/axis"
)

// FormatVersion is the version written into new descriptions.  Descriptions
// with the same major version can be read.
const FormatVersion = "1.0.0"

var (
	ErrIncompatibleVersion = errors.New("incompatible description version")
	ErrInconsistent        = errors.New("inconsistent description")
)

// Axis is the serialized form of an axis.
type Axis struct {
	Name       string
	Count      int
	Min        float64
	Max        float64
	Unit       string
	IndexBased bool
}

// FrameStatistics holds per-mode minima and maxima of one frame.
type FrameStatistics struct {
	Min []float64
	Max []float64
}

// Description is the dimension description of a stack.
type Description struct {
	Version    string
	XCount     int
	YCount     int
	ScaleX     Axis
	ScaleY     Axis
	Axes       []Axis
	Strides    []int
	Statistics []FrameStatistics
}

// FromAxis captures the properties of a.
func FromAxis(a *axis.Axis) Axis {
	return Axis{
		Name:       a.Name(),
		Count:      a.Count(),
		Min:        a.Min(),
		Max:        a.Max(),
		Unit:       a.Unit(),
		IndexBased: a.IsIndexBased(),
	}
}

// NewAxis creates an axis with these properties.
func (d Axis) NewAxis() (*axis.Axis, error) {
	if d.IndexBased {
		a, err := axis.NewIndexBased(d.Name, d.Count)
		if err != nil {
			return nil, err
		}
		a.SetUnit(d.Unit)
		return a, nil
	}
	return axis.New(d.Name, d.Count, d.Min, d.Max, d.Unit)
}

// Strides computes the stride table of axes.
func Strides(axes []Axis) []int {
	strides := make([]int, len(axes))
	product := 1
	for i, a := range axes {
		strides[i] = product
		product *= a.Count
	}
	return strides
}

// FrameCount returns the product of the axis counts.
func (d *Description) FrameCount() int {
	n := 1
	for _, a := range d.Axes {
		n *= a.Count
	}
	return n
}

// Validate checks the version and the internal consistency of d.
func (d *Description) Validate() error {
	v, err := semver.Make(d.Version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrIncompatibleVersion, d.Version, err)
	}
	current := semver.MustParse(FormatVersion)
	if v.Major != current.Major {
		return fmt.Errorf("%w: %s, this build reads %d.x", ErrIncompatibleVersion, v, current.Major)
	}

	if d.XCount <= 0 || d.YCount <= 0 {
		return fmt.Errorf("%w: plane %dx%d", ErrInconsistent, d.XCount, d.YCount)
	}
	if d.ScaleX.Count != d.XCount || d.ScaleY.Count != d.YCount {
		return fmt.Errorf("%w: scale %dx%d for plane %dx%d", ErrInconsistent,
			d.ScaleX.Count, d.ScaleY.Count, d.XCount, d.YCount)
	}
	if len(d.Axes) == 0 {
		return fmt.Errorf("%w: no axes", ErrInconsistent)
	}
	for _, a := range d.Axes {
		if a.Count <= 0 {
			return fmt.Errorf("%w: axis %q has count %d", ErrInconsistent, a.Name, a.Count)
		}
	}
	want := Strides(d.Axes)
	if len(d.Strides) != len(want) {
		return fmt.Errorf("%w: %d strides for %d axes", ErrInconsistent, len(d.Strides), len(want))
	}
	for i := range want {
		if d.Strides[i] != want[i] {
			return fmt.Errorf("%w: stride %d of axis %q is %d, want %d", ErrInconsistent,
				i, d.Axes[i].Name, d.Strides[i], want[i])
		}
	}
	if n := len(d.Statistics); n != 0 {
		if n != d.FrameCount() {
			return fmt.Errorf("%w: statistics for %d frames, axes describe %d", ErrInconsistent, n, d.FrameCount())
		}
		for i, st := range d.Statistics {
			if len(st.Min) == 0 || len(st.Min) != len(st.Max) {
				return fmt.Errorf("%w: frame %d has %d minima and %d maxima", ErrInconsistent, i, len(st.Min), len(st.Max))
			}
		}
	}
	return nil
}

// Write encodes d as MessagePack.
func (d *Description) Write(w io.Writer) error {
	b, err := d.MarshalMsg(nil)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Read decodes and validates a MessagePack description.
func Read(r io.Reader) (*Description, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d := &Description{}
	if _, err := d.UnmarshalMsg(b); err != nil {
		return nil, fmt.Errorf("decoding description: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
