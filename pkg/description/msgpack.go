package description

// MessagePack encoding in the style of the msgp code generator
// (github.com/tinylib/msgp).  Structs are maps keyed by field name; unknown
// keys are skipped so older readers accept newer descriptions.

import (
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler
func (z *Axis) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 6)
	o = msgp.AppendString(o, "name")
	o = msgp.AppendString(o, z.Name)
	o = msgp.AppendString(o, "count")
	o = msgp.AppendInt(o, z.Count)
	o = msgp.AppendString(o, "min")
	o = msgp.AppendFloat64(o, z.Min)
	o = msgp.AppendString(o, "max")
	o = msgp.AppendFloat64(o, z.Max)
	o = msgp.AppendString(o, "unit")
	o = msgp.AppendString(o, z.Unit)
	o = msgp.AppendString(o, "index_based")
	o = msgp.AppendBool(o, z.IndexBased)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Axis) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "name":
			z.Name, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Name")
				return
			}
		case "count":
			z.Count, bts, err = msgp.ReadIntBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Count")
				return
			}
		case "min":
			z.Min, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Min")
				return
			}
		case "max":
			z.Max, bts, err = msgp.ReadFloat64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Max")
				return
			}
		case "unit":
			z.Unit, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Unit")
				return
			}
		case "index_based":
			z.IndexBased, bts, err = msgp.ReadBoolBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "IndexBased")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *Axis) Msgsize() (s int) {
	s = msgp.MapHeaderSize +
		msgp.StringPrefixSize + 4 + msgp.StringPrefixSize + len(z.Name) +
		msgp.StringPrefixSize + 5 + msgp.IntSize +
		msgp.StringPrefixSize + 3 + msgp.Float64Size +
		msgp.StringPrefixSize + 3 + msgp.Float64Size +
		msgp.StringPrefixSize + 4 + msgp.StringPrefixSize + len(z.Unit) +
		msgp.StringPrefixSize + 11 + msgp.BoolSize
	return
}

func appendFloats(o []byte, fs []float64) []byte {
	o = msgp.AppendArrayHeader(o, uint32(len(fs)))
	for _, f := range fs {
		o = msgp.AppendFloat64(o, f)
	}
	return o
}

func readFloats(bts []byte, dst []float64) ([]float64, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, bts, err
	}
	if int(sz) > len(bts) {
		return nil, bts, msgp.ErrShortBytes
	}
	if cap(dst) >= int(sz) {
		dst = dst[:sz]
	} else {
		dst = make([]float64, sz)
	}
	for i := range dst {
		dst[i], bts, err = msgp.ReadFloat64Bytes(bts)
		if err != nil {
			return nil, bts, msgp.WrapError(err, i)
		}
	}
	return dst, bts, nil
}

// MarshalMsg implements msgp.Marshaler
func (z *FrameStatistics) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 2)
	o = msgp.AppendString(o, "min")
	o = appendFloats(o, z.Min)
	o = msgp.AppendString(o, "max")
	o = appendFloats(o, z.Max)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *FrameStatistics) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "min":
			z.Min, bts, err = readFloats(bts, z.Min)
			if err != nil {
				err = msgp.WrapError(err, "Min")
				return
			}
		case "max":
			z.Max, bts, err = readFloats(bts, z.Max)
			if err != nil {
				err = msgp.WrapError(err, "Max")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *FrameStatistics) Msgsize() (s int) {
	s = msgp.MapHeaderSize +
		msgp.StringPrefixSize + 3 + msgp.ArrayHeaderSize + len(z.Min)*msgp.Float64Size +
		msgp.StringPrefixSize + 3 + msgp.ArrayHeaderSize + len(z.Max)*msgp.Float64Size
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *Description) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 8)
	o = msgp.AppendString(o, "version")
	o = msgp.AppendString(o, z.Version)
	o = msgp.AppendString(o, "x")
	o = msgp.AppendInt(o, z.XCount)
	o = msgp.AppendString(o, "y")
	o = msgp.AppendInt(o, z.YCount)
	o = msgp.AppendString(o, "scale_x")
	o, err = z.ScaleX.MarshalMsg(o)
	if err != nil {
		err = msgp.WrapError(err, "ScaleX")
		return
	}
	o = msgp.AppendString(o, "scale_y")
	o, err = z.ScaleY.MarshalMsg(o)
	if err != nil {
		err = msgp.WrapError(err, "ScaleY")
		return
	}
	o = msgp.AppendString(o, "axes")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Axes)))
	for za0001 := range z.Axes {
		o, err = z.Axes[za0001].MarshalMsg(o)
		if err != nil {
			err = msgp.WrapError(err, "Axes", za0001)
			return
		}
	}
	o = msgp.AppendString(o, "strides")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Strides)))
	for _, s := range z.Strides {
		o = msgp.AppendInt(o, s)
	}
	o = msgp.AppendString(o, "stats")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Statistics)))
	for za0002 := range z.Statistics {
		o, err = z.Statistics[za0002].MarshalMsg(o)
		if err != nil {
			err = msgp.WrapError(err, "Statistics", za0002)
			return
		}
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Description) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "version":
			z.Version, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Version")
				return
			}
		case "x":
			z.XCount, bts, err = msgp.ReadIntBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "XCount")
				return
			}
		case "y":
			z.YCount, bts, err = msgp.ReadIntBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "YCount")
				return
			}
		case "scale_x":
			bts, err = z.ScaleX.UnmarshalMsg(bts)
			if err != nil {
				err = msgp.WrapError(err, "ScaleX")
				return
			}
		case "scale_y":
			bts, err = z.ScaleY.UnmarshalMsg(bts)
			if err != nil {
				err = msgp.WrapError(err, "ScaleY")
				return
			}
		case "axes":
			var zb0002 uint32
			zb0002, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Axes")
				return
			}
			if int(zb0002) > len(bts) {
				err = msgp.WrapError(msgp.ErrShortBytes, "Axes")
				return
			}
			z.Axes = make([]Axis, zb0002)
			for za0001 := range z.Axes {
				bts, err = z.Axes[za0001].UnmarshalMsg(bts)
				if err != nil {
					err = msgp.WrapError(err, "Axes", za0001)
					return
				}
			}
		case "strides":
			var zb0003 uint32
			zb0003, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Strides")
				return
			}
			if int(zb0003) > len(bts) {
				err = msgp.WrapError(msgp.ErrShortBytes, "Strides")
				return
			}
			z.Strides = make([]int, zb0003)
			for za0002 := range z.Strides {
				z.Strides[za0002], bts, err = msgp.ReadIntBytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "Strides", za0002)
					return
				}
			}
		case "stats":
			var zb0004 uint32
			zb0004, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Statistics")
				return
			}
			if int(zb0004) > len(bts) {
				err = msgp.WrapError(msgp.ErrShortBytes, "Statistics")
				return
			}
			z.Statistics = nil
			if zb0004 > 0 {
				z.Statistics = make([]FrameStatistics, zb0004)
			}
			for za0003 := range z.Statistics {
				bts, err = z.Statistics[za0003].UnmarshalMsg(bts)
				if err != nil {
					err = msgp.WrapError(err, "Statistics", za0003)
					return
				}
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *Description) Msgsize() (s int) {
	s = msgp.MapHeaderSize +
		msgp.StringPrefixSize + 7 + msgp.StringPrefixSize + len(z.Version) +
		msgp.StringPrefixSize + 1 + msgp.IntSize +
		msgp.StringPrefixSize + 1 + msgp.IntSize +
		msgp.StringPrefixSize + 7 + z.ScaleX.Msgsize() +
		msgp.StringPrefixSize + 7 + z.ScaleY.Msgsize() +
		msgp.StringPrefixSize + 4 + msgp.ArrayHeaderSize
	for za0001 := range z.Axes {
		s += z.Axes[za0001].Msgsize()
	}
	s += msgp.StringPrefixSize + 7 + msgp.ArrayHeaderSize + len(z.Strides)*msgp.IntSize
	s += msgp.StringPrefixSize + 5 + msgp.ArrayHeaderSize
	for za0002 := range z.Statistics {
		s += z.Statistics[za0002].Msgsize()
	}
	return
}
