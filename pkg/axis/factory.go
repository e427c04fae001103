package axis

// Names used by the factory helpers.
const (
	NameTime    = "Time"
	NameChannel = "Channel"
	NameZ       = "Z"
	NameX       = "X"
	NameY       = "Y"
	NameFrame   = "Frame"
)

// NewRange creates a plain range axis.  It is New under a name that reads well
// next to the other factories.
func NewRange(name string, count int, min, max float64, unit string) (*Axis, error) {
	return New(name, count, min, max, unit)
}

// NewIndexBased creates an axis whose values are its indices.
func NewIndexBased(name string, count int) (*Axis, error) {
	a, err := New(name, count, 0, float64(count-1), "")
	if err != nil {
		return nil, err
	}
	a.indexBased = true
	return a, nil
}

// NewChannel creates an index-based channel axis.
func NewChannel(count int) (*Axis, error) {
	return NewIndexBased(NameChannel, count)
}

// NewZ creates a depth axis in micrometers.
func NewZ(count int, min, max float64) (*Axis, error) {
	return New(NameZ, count, min, max, "µm")
}

// NewTime creates a time axis in seconds.
func NewTime(count int, min, max float64) (*Axis, error) {
	return New(NameTime, count, min, max, "s")
}

// NewPixels creates the default pixel scale for an image plane dimension.
func NewPixels(name string, count int) (*Axis, error) {
	return New(name, count, 0, float64(count-1), "px")
}
