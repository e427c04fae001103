package stack

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"hyperstack/pkg/axis"
	"hyperstack/pkg/description"
	"hyperstack/pkg/dimension"
	"hyperstack/pkg/frames"
)

// zt builds a 2x2 stack with Z=4, T=3 where frame f holds the value f in every pixel.
func zt(t *testing.T) *Stack[uint16] {
	t.Helper()
	z, err := axis.NewZ(4, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	tm, err := axis.NewTime(3, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	data := make([][]uint16, 12)
	for f := range data {
		data[f] = []uint16{uint16(f), uint16(f), uint16(f), uint16(f)}
	}
	s, err := FromFrames(2, 2, data, WithAxes(z, tm))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewDefaults(t *testing.T) {
	s, err := New[float32](3, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.FrameCount() != 5 || s.XCount() != 3 || s.YCount() != 2 {
		t.Errorf("Unexpected geometry %s", s)
	}
	axes := s.Dimensions().Axes()
	if len(axes) != 1 || axes[0].Name() != axis.NameFrame || !axes[0].IsIndexBased() {
		t.Errorf("Expected a single index-based Frame axis, got %s", s.Dimensions())
	}
	if s.ScaleX().Count() != 3 || s.ScaleY().Unit() != "px" {
		t.Errorf("Unexpected default scale %s %s", s.ScaleX(), s.ScaleY())
	}
}

func TestConstructionErrors(t *testing.T) {
	if _, err := New[uint8](0, 4, 1); !errors.Is(err, axis.ErrInvalidCount) {
		t.Errorf("Expected ErrInvalidCount for empty plane, got %v", err)
	}
	if _, err := New[uint8](4, 4, 0); !errors.Is(err, axis.ErrInvalidCount) {
		t.Errorf("Expected ErrInvalidCount for zero frames, got %v", err)
	}
	if _, err := FromFrames(2, 2, [][]uint8{{1, 2, 3}}); !errors.Is(err, ErrBufferLength) {
		t.Errorf("Expected ErrBufferLength, got %v", err)
	}
	x, _ := axis.NewPixels(axis.NameX, 5)
	y, _ := axis.NewPixels(axis.NameY, 2)
	if _, err := New[uint8](4, 2, 1, WithScale(x, y)); !errors.Is(err, ErrScaleMismatch) {
		t.Errorf("Expected ErrScaleMismatch, got %v", err)
	}
	c, _ := axis.NewChannel(3)
	if _, err := New[uint8](2, 2, 4, WithAxes(c)); !errors.Is(err, dimension.ErrFrameCountMismatch) {
		t.Errorf("Expected ErrFrameCountMismatch, got %v", err)
	}
	if _, err := New[float64](1024, 1024, 1, WithAllocationLimit(1024)); !errors.Is(err, frames.ErrOutOfMemory) {
		t.Errorf("Expected ErrOutOfMemory, got %v", err)
	}
}

func TestValueAccess(t *testing.T) {
	s, _ := New[int16](3, 2, 2)
	if err := s.SetValue(2, 1, 1, -7); err != nil {
		t.Fatal(err)
	}
	v, err := s.Value(2, 1, 1)
	if err != nil || v != -7 {
		t.Errorf("Expected -7, got %d (%v)", v, err)
	}
	view, _ := s.FrameView(1)
	if view[1*3+2] != -7 {
		t.Errorf("Frames must be row-major, got %v", view)
	}
	if _, err := s.Value(3, 0, 0); !errors.Is(err, axis.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange for x, got %v", err)
	}
	if err := s.SetValue(0, 0, 2, 1); !errors.Is(err, axis.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange for frame, got %v", err)
	}
}

func TestStatisticsInvalidation(t *testing.T) {
	s, _ := FromFrames(2, 1, [][]float64{{1, 5}, {-2, 0}})
	rng, err := s.ValueRange(0)
	if err != nil || rng.Min[0] != 1 || rng.Max[0] != 5 {
		t.Fatalf("Unexpected range %+v (%v)", rng, err)
	}
	if !s.StatisticsValid(0) || s.StatisticsValid(1) {
		t.Error("Only frame 0 should have cached statistics")
	}
	if err := s.SetValue(1, 0, 0, 40); err != nil {
		t.Fatal(err)
	}
	if s.StatisticsValid(0) {
		t.Error("SetValue should invalidate the frame")
	}
	all, _ := s.Range()
	if all.Min[0] != -2 || all.Max[0] != 40 {
		t.Errorf("Unexpected stack range %+v", all)
	}

	buf, _ := s.Frame(1)
	buf[0] = 100
	if err := s.Invalidate(1); err != nil {
		t.Fatal(err)
	}
	rng, _ = s.ValueRange(1)
	if rng.Max[0] != 100 {
		t.Errorf("Expected max 100 after invalidation, got %g", rng.Max[0])
	}
}

func TestMutableBuffersInvalidate(t *testing.T) {
	s, _ := FromFrames(2, 1, [][]float32{{1, 2}, {3, 4}})
	r, _ := s.Reorder([]int{1})
	if _, err := s.Range(); err != nil {
		t.Fatal(err)
	}
	bufs, err := r.MutableBuffers()
	if err != nil {
		t.Fatal(err)
	}
	bufs[0][1] = 40
	if s.StatisticsValid(1) {
		t.Error("Bulk fetch for writing should invalidate the shared frame")
	}
	if !s.StatisticsValid(0) {
		t.Error("Frames not fetched should keep their statistics")
	}
	rng, _ := s.ValueRange(1)
	if rng.Max[0] != 40 {
		t.Errorf("Expected max 40, got %g", rng.Max[0])
	}

	views := s.Buffers()
	if len(views) != 2 || views[1][1] != 40 {
		t.Errorf("Unexpected read views %v", views)
	}
	if !s.StatisticsValid(1) {
		t.Error("Read views should not invalidate")
	}

	r.Close()
	if _, err := r.MutableBuffers(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

// Reordered stacks alias the source frames, including repeated ones.
func TestReorderAliases(t *testing.T) {
	s, _ := FromFrames(2, 1, [][]int32{{1, 1}, {2, 2}, {3, 3}})
	if _, err := s.Range(); err != nil {
		t.Fatal(err)
	}
	r, err := s.Reorder([]int{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if r.FrameCount() != 3 {
		t.Fatalf("Expected 3 frames, got %d", r.FrameCount())
	}
	if !r.Shares(0, s, 0) || !r.Shares(1, s, 0) || !r.Shares(2, s, 1) {
		t.Fatal("Reordered frames must share the original buffers")
	}

	if err := r.SetValue(0, 0, 0, 99); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Value(0, 0, 0); v != 99 {
		t.Errorf("Original frame A did not observe the write: %d", v)
	}
	if v, _ := r.Value(0, 0, 1); v != 99 {
		t.Errorf("Reordered frame 1 did not observe the write: %d", v)
	}
	if s.StatisticsValid(0) {
		t.Error("Writing through an alias must invalidate the shared statistics")
	}
	rng, _ := s.ValueRange(0)
	if rng.Max[0] != 99 {
		t.Errorf("Expected shared max 99, got %g", rng.Max[0])
	}
	if !r.StatisticsValid(1) {
		t.Error("Statistics computed through the original should be visible through the alias")
	}

	// Closing the original keeps the shared buffers alive for the alias.
	s.Close()
	if v, err := r.Value(0, 0, 2); err != nil || v != 2 {
		t.Errorf("Expected 2 from the alias after close, got %d (%v)", v, err)
	}
	if _, err := s.Value(0, 0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestReorderOutOfRange(t *testing.T) {
	s, _ := FromFrames(1, 1, [][]uint8{{1}, {2}})
	before := s.arena.Len()
	if _, err := s.Reorder([]int{1, 2}); !errors.Is(err, axis.ErrOutOfRange) {
		t.Fatalf("Expected ErrOutOfRange, got %v", err)
	}
	if s.arena.RefCount(s.handles[1]) != 1 || s.arena.Len() != before {
		t.Error("Failed reorder leaked references")
	}
}

func TestDuplicateIsDeep(t *testing.T) {
	s := zt(t)
	if err := s.SetActiveIndex(9); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ValueRange(3); err != nil {
		t.Fatal(err)
	}
	d, err := s.Duplicate()
	if err != nil {
		t.Fatal(err)
	}
	if d.ActiveIndex() != 9 {
		t.Errorf("Duplicate should keep the active index, got %d", d.ActiveIndex())
	}
	if d.Shares(0, s, 0) {
		t.Fatal("Duplicate must not share buffers")
	}
	if !d.StatisticsValid(3) {
		t.Error("Duplicate should copy the cached statistics")
	}
	if err := d.SetValue(0, 0, 3, 500); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Value(0, 0, 3); v != 3 {
		t.Errorf("Source changed through duplicate: %d", v)
	}
	if !s.StatisticsValid(3) {
		t.Error("Writing the duplicate invalidated the source statistics")
	}

	// The duplicate's axes are independent objects.
	if err := d.SetPosition(axis.NameZ, 0); err != nil {
		t.Fatal(err)
	}
	if s.ActiveIndex() != 9 || d.ActiveIndex() != 8 {
		t.Errorf("Active indices source=%d duplicate=%d, want 9 and 8", s.ActiveIndex(), d.ActiveIndex())
	}
}

func TestSubStack(t *testing.T) {
	s := zt(t)
	sub, err := s.SubStack(axis.NameTime, 2)
	if err != nil {
		t.Fatal(err)
	}
	if sub.FrameCount() != 4 {
		t.Fatalf("Expected 4 frames, got %d", sub.FrameCount())
	}
	axes := sub.Dimensions().Axes()
	if len(axes) != 1 || axes[0].Name() != axis.NameZ || axes[0].Unit() != "µm" {
		t.Errorf("Expected the Z axis to remain, got %s", sub.Dimensions())
	}
	for z := 0; z < 4; z++ {
		if !sub.Shares(z, s, 8+z) {
			t.Errorf("Frame %d should alias source frame %d", z, 8+z)
		}
	}

	// Fixing the only axis leaves the default axis.
	zs, err := sub.SubStack(axis.NameZ, 1)
	if err != nil {
		t.Fatal(err)
	}
	if zs.FrameCount() != 1 || zs.Dimensions().Axes()[0].Name() != axis.NameFrame {
		t.Errorf("Unexpected single-frame substack %s", zs)
	}
	if v, _ := zs.Value(1, 1, 0); v != 9 {
		t.Errorf("Expected frame 9 values, got %d", v)
	}

	if _, err := s.SubStack("Channel", 0); !errors.Is(err, dimension.ErrUnknownAxis) {
		t.Errorf("Expected ErrUnknownAxis, got %v", err)
	}
}

func TestActiveIndexSync(t *testing.T) {
	s := zt(t)
	var seen []int
	cancel := s.OnActiveIndexChanged(func(i int) { seen = append(seen, i) })

	if err := s.SetActiveIndex(9); err != nil {
		t.Fatal(err)
	}
	z, _ := s.Dimensions().Axis(axis.NameZ)
	tm, _ := s.Dimensions().Axis(axis.NameTime)
	if z.Index() != 1 || tm.Index() != 2 {
		t.Errorf("Frame 9 should be Z=1 T=2, got Z=%d T=%d", z.Index(), tm.Index())
	}

	if err := s.SetPosition("z", 3); err != nil {
		t.Fatal(err)
	}
	if s.ActiveIndex() != 11 {
		t.Errorf("Expected active frame 11, got %d", s.ActiveIndex())
	}
	if f, _ := s.FrameAt(3, 0); f != 3 {
		t.Errorf("FrameAt(3,0) = %d, want 3", f)
	}

	cancel()
	_ = s.SetActiveIndex(0)
	if len(seen) != 2 || seen[0] != 9 || seen[1] != 11 {
		t.Errorf("Unexpected notifications %v", seen)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	s, _ := New[uint16](2, 2, 1)
	raw := []byte{1, 0, 2, 0, 0, 1, 255, 255}
	if err := s.WriteBytes(0, raw); err != nil {
		t.Fatal(err)
	}
	view, _ := s.FrameView(0)
	if view[0] != 1 || view[1] != 2 || view[2] != 256 || view[3] != math.MaxUint16 {
		t.Errorf("Unexpected decoded frame %v", view)
	}
	out, err := s.ReadBytes(0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("Expected %v, got %v", raw, out)
	}
	if err := s.WriteBytes(0, raw[:6]); !errors.Is(err, ErrBufferLength) {
		t.Errorf("Expected ErrBufferLength, got %v", err)
	}
}

func TestDescribeAndRestore(t *testing.T) {
	s := zt(t)
	d, err := s.Describe(true)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	if d.Strides[1] != 4 || d.Axes[0].Name != axis.NameZ || len(d.Statistics) != 12 {
		t.Errorf("Unexpected description %+v", d)
	}

	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := description.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	// Seeded statistics are used without scanning, so give them a visible value.
	loaded.Statistics[5] = description.FrameStatistics{Min: []float64{-1}, Max: []float64{1000}}

	restored, err := FromDescription(loaded, s.Buffers())
	if err != nil {
		t.Fatal(err)
	}
	if !restored.StatisticsValid(5) {
		t.Fatal("Statistics should be seeded from the description")
	}
	rng, _ := restored.ValueRange(5)
	if rng.Max[0] != 1000 {
		t.Errorf("Expected seeded max 1000, got %g", rng.Max[0])
	}
	tm, _ := restored.Dimensions().Axis(axis.NameTime)
	if tm.Unit() != "s" || tm.Count() != 3 {
		t.Errorf("Time axis not restored: %s", tm)
	}

	d.Statistics = d.Statistics[:3]
	if err := restored.ApplyStatistics(d); !errors.Is(err, description.ErrInconsistent) {
		t.Errorf("Expected ErrInconsistent, got %v", err)
	}
}

func TestFootprint(t *testing.T) {
	s, _ := New[float64](16, 16, 4)
	if fp := s.Footprint(); fp < 16*16*4*8 {
		t.Errorf("Footprint %d smaller than the pixel data", fp)
	}
}
