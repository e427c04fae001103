package stack

import (
	"fmt"

	"hyperstack/pkg/axis"
	"hyperstack/pkg/description"
	"hyperstack/pkg/frames"
)

func cloneAxes(axes []*axis.Axis) []*axis.Axis {
	out := make([]*axis.Axis, len(axes))
	for i, a := range axes {
		out[i] = a.Clone()
	}
	return out
}

// alias takes a new reference to each listed frame.  On failure the references
// taken so far are dropped.
func (s *Stack[T]) alias(order []int) ([]frames.Handle, error) {
	handles := make([]frames.Handle, 0, len(order))
	for _, i := range order {
		err := s.checkFrame(i)
		var h frames.Handle
		if err == nil {
			h, err = s.arena.Alias(s.handles[i])
		}
		if err != nil {
			for _, taken := range handles {
				s.arena.Release(taken)
			}
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Reorder returns a stack whose frame i is frame order[i] of s.  Frames are
// shared, not copied, and an index may appear more than once.  The new stack has
// a single "Frame" axis.
func (s *Stack[T]) Reorder(order []int) (*Stack[T], error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: empty frame order", axis.ErrInvalidCount)
	}
	handles, err := s.alias(order)
	if err != nil {
		return nil, err
	}
	return s.derive(handles, options{scaleX: s.scaleX.Clone(), scaleY: s.scaleY.Clone()})
}

// Duplicate returns a deep copy of s with its own buffers, statistics and axes.
func (s *Stack[T]) Duplicate() (*Stack[T], error) {
	if s.closed {
		return nil, ErrClosed
	}
	handles := make([]frames.Handle, 0, len(s.handles))
	for _, h := range s.handles {
		d, err := s.arena.Duplicate(h)
		if err != nil {
			for _, taken := range handles {
				s.arena.Release(taken)
			}
			return nil, err
		}
		handles = append(handles, d)
	}
	dup, err := s.derive(handles, options{
		scaleX: s.scaleX.Clone(),
		scaleY: s.scaleY.Clone(),
		axes:   cloneAxes(s.dims.Axes()),
	})
	if err != nil {
		return nil, err
	}
	if err := dup.SetActiveIndex(s.active); err != nil {
		dup.Close()
		return nil, err
	}
	return dup, nil
}

// SubStack returns the frames whose index along the named axis equals index.
// The frames are shared; the remaining axes are copied in their original order.
func (s *Stack[T]) SubStack(name string, index int) (*Stack[T], error) {
	if s.closed {
		return nil, ErrClosed
	}
	order, err := s.dims.IndicesForSlice(name, index)
	if err != nil {
		return nil, err
	}
	pos := s.dims.AxisPosition(name)
	var rest []*axis.Axis
	for i, a := range s.dims.Axes() {
		if i != pos {
			rest = append(rest, a.Clone())
		}
	}
	handles, err := s.alias(order)
	if err != nil {
		return nil, err
	}
	return s.derive(handles, options{scaleX: s.scaleX.Clone(), scaleY: s.scaleY.Clone(), axes: rest})
}

// Describe exports the dimension description.  With stats set the per-frame
// statistics are included, computing any that are stale.
func (s *Stack[T]) Describe(stats bool) (*description.Description, error) {
	if s.closed {
		return nil, ErrClosed
	}
	axes := s.dims.Axes()
	d := &description.Description{
		Version: description.FormatVersion,
		XCount:  s.xCount,
		YCount:  s.yCount,
		ScaleX:  description.FromAxis(s.scaleX),
		ScaleY:  description.FromAxis(s.scaleY),
		Axes:    make([]description.Axis, len(axes)),
		Strides: s.dims.Strides(),
	}
	for i, a := range axes {
		d.Axes[i] = description.FromAxis(a)
	}
	if stats {
		d.Statistics = make([]description.FrameStatistics, len(s.handles))
		for i := range s.handles {
			rng, err := s.ValueRange(i)
			if err != nil {
				return nil, err
			}
			d.Statistics[i] = description.FrameStatistics{Min: rng.Min, Max: rng.Max}
		}
	}
	return d, nil
}

// ApplyStatistics seeds the frame statistics from d.  A description without
// statistics leaves the cache untouched.
func (s *Stack[T]) ApplyStatistics(d *description.Description) error {
	if len(d.Statistics) == 0 {
		return nil
	}
	if len(d.Statistics) != len(s.handles) {
		return fmt.Errorf("%w: statistics for %d frames, stack has %d",
			description.ErrInconsistent, len(d.Statistics), len(s.handles))
	}
	for i, st := range d.Statistics {
		if err := s.SeedStatistics(i, st.Min, st.Max); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// FromDescription builds a stack over data laid out as d describes and seeds
// the statistics it carries.
func FromDescription[T any](d *description.Description, data [][]T, opts ...Option) (*Stack[T], error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	scaleX, err := d.ScaleX.NewAxis()
	if err != nil {
		return nil, err
	}
	scaleY, err := d.ScaleY.NewAxis()
	if err != nil {
		return nil, err
	}
	axes := make([]*axis.Axis, len(d.Axes))
	for i, a := range d.Axes {
		if axes[i], err = a.NewAxis(); err != nil {
			return nil, err
		}
	}
	all := append([]Option{WithScale(scaleX, scaleY), WithAxes(axes...)}, opts...)
	s, err := FromFrames(d.XCount, d.YCount, data, all...)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyStatistics(d); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
