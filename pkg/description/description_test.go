package description

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/tinylib/msgp/msgp"

	"hyperstack/pkg/axis"
)

func sample() *Description {
	axes := []Axis{
		{Name: "Z", Count: 4, Min: 0, Max: 1.5, Unit: "µm"},
		{Name: "Channel", Count: 2, Min: 0, Max: 1, IndexBased: true},
	}
	d := &Description{
		Version: FormatVersion,
		XCount:  3,
		YCount:  2,
		ScaleX:  Axis{Name: "X", Count: 3, Min: 0, Max: 2, Unit: "px"},
		ScaleY:  Axis{Name: "Y", Count: 2, Min: 0, Max: 1, Unit: "px"},
		Axes:    axes,
		Strides: Strides(axes),
	}
	for i := 0; i < 8; i++ {
		d.Statistics = append(d.Statistics, FrameStatistics{Min: []float64{float64(i)}, Max: []float64{float64(10 * i)}})
	}
	return d
}

func TestStrides(t *testing.T) {
	got := Strides([]Axis{{Count: 4}, {Count: 3}, {Count: 2}})
	want := []int{1, 4, 12}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Strides = %v, want %v", got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	d := sample()
	d.Statistics[3].Min[0] = math.Inf(-1)
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() > d.Msgsize() {
		t.Errorf("Encoded %d bytes, Msgsize promised at most %d", buf.Len(), d.Msgsize())
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.XCount != 3 || got.ScaleX.Unit != "px" || len(got.Axes) != 2 {
		t.Fatalf("Unexpected description %+v", got)
	}
	if got.Axes[0].Unit != "µm" || got.Axes[0].Max != 1.5 || !got.Axes[1].IndexBased {
		t.Errorf("Axes not preserved: %+v", got.Axes)
	}
	if got.Strides[1] != 4 || got.FrameCount() != 8 {
		t.Errorf("Unexpected strides %v", got.Strides)
	}
	if !math.IsInf(got.Statistics[3].Min[0], -1) || got.Statistics[7].Max[0] != 70 {
		t.Errorf("Statistics not preserved: %+v", got.Statistics)
	}
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	d := sample()
	d.Statistics = nil
	b, err := d.MarshalMsg(nil)
	if err != nil {
		t.Fatal(err)
	}
	// Rewrite the header for one more entry and append an unknown key.
	if b[0] != 0x88 {
		t.Fatalf("Expected fixmap header of 8 entries, got %#x", b[0])
	}
	b[0] = 0x89
	b = msgp.AppendString(b, "comment")
	b = msgp.AppendString(b, "added by a newer writer")

	var got Description
	if _, err := got.UnmarshalMsg(b); err != nil {
		t.Fatal(err)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Description with an unknown field should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Description)
		want   error
	}{
		{"newer major", func(d *Description) { d.Version = "2.0.0" }, ErrIncompatibleVersion},
		{"garbage version", func(d *Description) { d.Version = "one" }, ErrIncompatibleVersion},
		{"empty plane", func(d *Description) { d.XCount = 0 }, ErrInconsistent},
		{"scale mismatch", func(d *Description) { d.ScaleY.Count = 5 }, ErrInconsistent},
		{"no axes", func(d *Description) { d.Axes, d.Strides = nil, nil }, ErrInconsistent},
		{"bad stride", func(d *Description) { d.Strides[1] = 3 }, ErrInconsistent},
		{"stride count", func(d *Description) { d.Strides = d.Strides[:1] }, ErrInconsistent},
		{"statistics length", func(d *Description) { d.Statistics = d.Statistics[:2] }, ErrInconsistent},
		{"statistics modes", func(d *Description) { d.Statistics[0].Max = nil }, ErrInconsistent},
	}
	for _, tc := range tests {
		d := sample()
		tc.modify(d)
		if err := d.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	d := sample()
	d.Version = "1.4.2"
	if err := d.Validate(); err != nil {
		t.Errorf("Minor versions should be accepted: %v", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte{0xc1})); err == nil {
		t.Error("Expected decode error")
	}
}

func TestReadRejectsOversizedArrays(t *testing.T) {
	for _, key := range []string{"axes", "strides", "stats"} {
		b := msgp.AppendMapHeader(nil, 1)
		b = msgp.AppendString(b, key)
		b = msgp.AppendArrayHeader(b, math.MaxUint32)
		if _, err := Read(bytes.NewReader(b)); !errors.Is(err, msgp.ErrShortBytes) {
			t.Errorf("%s: expected ErrShortBytes, got %v", key, err)
		}
	}

	stats := msgp.AppendMapHeader(nil, 1)
	stats = msgp.AppendString(stats, "stats")
	stats = msgp.AppendArrayHeader(stats, 1)
	stats = msgp.AppendMapHeader(stats, 1)
	stats = msgp.AppendString(stats, "min")
	stats = msgp.AppendArrayHeader(stats, math.MaxUint32)
	if _, err := Read(bytes.NewReader(stats)); !errors.Is(err, msgp.ErrShortBytes) {
		t.Errorf("statistics minima: expected ErrShortBytes, got %v", err)
	}
}

func TestAxisConversion(t *testing.T) {
	z, err := axis.NewZ(5, -1, 1)
	if err != nil {
		t.Fatal(err)
	}
	d := FromAxis(z)
	if d.Name != axis.NameZ || d.Count != 5 || d.Min != -1 || d.Unit != "µm" || d.IndexBased {
		t.Errorf("Unexpected conversion %+v", d)
	}
	back, err := d.NewAxis()
	if err != nil {
		t.Fatal(err)
	}
	if back.Max() != 1 || back.Step() != 0.5 {
		t.Errorf("Unexpected axis %s", back)
	}

	c, _ := axis.NewChannel(3)
	c.SetUnit("dye")
	back, err = FromAxis(c).NewAxis()
	if err != nil {
		t.Fatal(err)
	}
	if !back.IsIndexBased() || back.Max() != 2 || back.Unit() != "dye" {
		t.Errorf("Index-based axis not restored: %s", back)
	}

	if _, err := (Axis{Name: "bad", Count: 0}).NewAxis(); !errors.Is(err, axis.ErrInvalidCount) {
		t.Errorf("Expected ErrInvalidCount, got %v", err)
	}
}
