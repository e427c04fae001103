package stack

import (
	"encoding/binary"
	"fmt"

	"github.com/DmitriyVTitov/size"

	"hyperstack/pkg/frames"
)

// Value returns the pixel at (x, y) of frame.
func (s *Stack[T]) Value(x, y, frame int) (T, error) {
	var zero T
	if err := s.checkPixel(x, y, frame); err != nil {
		return zero, err
	}
	data, err := s.arena.Data(s.handles[frame])
	if err != nil {
		return zero, err
	}
	return data[y*s.xCount+x], nil
}

// SetValue writes the pixel at (x, y) of frame and invalidates the frame's
// statistics for every stack sharing it.
func (s *Stack[T]) SetValue(x, y, frame int, v T) error {
	if err := s.checkPixel(x, y, frame); err != nil {
		return err
	}
	data, err := s.arena.Mutable(s.handles[frame])
	if err != nil {
		return err
	}
	data[y*s.xCount+x] = v
	return nil
}

// Frame returns the row-major buffer of frame for writing.  Its statistics are
// invalidated; call Invalidate again after later writes through the same slice.
func (s *Stack[T]) Frame(frame int) ([]T, error) {
	if err := s.checkFrame(frame); err != nil {
		return nil, err
	}
	return s.arena.Mutable(s.handles[frame])
}

// FrameView returns the row-major buffer of frame for reading.  Writes through
// it are not tracked: use Frame, or call Invalidate afterwards.
func (s *Stack[T]) FrameView(frame int) ([]T, error) {
	if err := s.checkFrame(frame); err != nil {
		return nil, err
	}
	return s.arena.Data(s.handles[frame])
}

// Buffers returns read views of all frames in order.  Writes through them are
// not tracked; use MutableBuffers to fetch the frames for writing.
func (s *Stack[T]) Buffers() [][]T {
	out := make([][]T, len(s.handles))
	for i, h := range s.handles {
		out[i], _ = s.arena.Data(h)
	}
	return out
}

// MutableBuffers returns all frames in order for writing and invalidates the
// statistics of each, for every stack sharing them.
func (s *Stack[T]) MutableBuffers() ([][]T, error) {
	if s.closed {
		return nil, ErrClosed
	}
	out := make([][]T, len(s.handles))
	for i, h := range s.handles {
		var err error
		if out[i], err = s.arena.Mutable(h); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Shares reports whether frame i of s and frame j of other are the same buffer.
func (s *Stack[T]) Shares(i int, other *Stack[T], j int) bool {
	if s.checkFrame(i) != nil || other.checkFrame(j) != nil {
		return false
	}
	return s.arena == other.arena && s.handles[i] == other.handles[j]
}

// WriteBytes replaces frame with little-endian encoded elements from b.
func (s *Stack[T]) WriteBytes(frame int, b []byte) error {
	if err := s.checkFrame(frame); err != nil {
		return err
	}
	view, err := s.arena.Data(s.handles[frame])
	if err != nil {
		return err
	}
	want := binary.Size(view)
	if want < 0 {
		return fmt.Errorf("element type %T has no fixed binary size", view)
	}
	if len(b) != want {
		return fmt.Errorf("%w: %d bytes for frame %d, want %d", ErrBufferLength, len(b), frame, want)
	}
	data, err := s.arena.Mutable(s.handles[frame])
	if err != nil {
		return err
	}
	_, err = binary.Decode(b, binary.LittleEndian, data)
	return err
}

// ReadBytes returns frame encoded as little-endian elements.
func (s *Stack[T]) ReadBytes(frame int) ([]byte, error) {
	data, err := s.FrameView(frame)
	if err != nil {
		return nil, err
	}
	return binary.Append(nil, binary.LittleEndian, data)
}

// ValueRange returns the statistics of frame, computing them if stale.
func (s *Stack[T]) ValueRange(frame int) (frames.ValueRange, error) {
	if err := s.checkFrame(frame); err != nil {
		return frames.ValueRange{}, err
	}
	return s.arena.Range(s.handles[frame])
}

// Range returns the union of all frame statistics.
func (s *Stack[T]) Range() (frames.ValueRange, error) {
	var out frames.ValueRange
	for i := range s.handles {
		rng, err := s.ValueRange(i)
		if err != nil {
			return frames.ValueRange{}, err
		}
		out = out.Union(rng)
	}
	return out, nil
}

// Invalidate marks the statistics of frame stale.
func (s *Stack[T]) Invalidate(frame int) error {
	if err := s.checkFrame(frame); err != nil {
		return err
	}
	s.arena.Invalidate(s.handles[frame])
	return nil
}

// StatisticsValid reports whether the cached statistics of frame are current.
func (s *Stack[T]) StatisticsValid(frame int) bool {
	if s.checkFrame(frame) != nil {
		return false
	}
	return s.arena.Valid(s.handles[frame])
}

// SeedStatistics stores known statistics of frame without scanning it.
func (s *Stack[T]) SeedStatistics(frame int, min, max []float64) error {
	if err := s.checkFrame(frame); err != nil {
		return err
	}
	return s.arena.Seed(s.handles[frame], min, max)
}

// Footprint returns the approximate memory held by the frame buffers in bytes.
func (s *Stack[T]) Footprint() uint64 {
	n := size.Of(s.Buffers())
	if n < 0 {
		return 0
	}
	return uint64(n)
}
