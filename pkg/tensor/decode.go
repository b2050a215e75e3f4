package tensor

import (
	"encoding/binary"
	"math"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/datatypeconverter/float8"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"github.com/x448/float16"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Dims returns the dimension sizes of t, or nil when t carries no shape.
func Dims(t protoreflect.Message) []int64 {
	if t == nil {
		return nil
	}
	shape := tfproto.Message(t, "tensor_shape")
	if shape == nil {
		return nil
	}
	dims := tfproto.Messages(shape, "dim")
	out := make([]int64, len(dims))
	for i, d := range dims {
		out[i] = tfproto.Int64(d, "size")
	}
	return out
}

// Float32s reads the values of a floating point tensor. Packed tensor_content
// takes precedence over the typed value fields.
func Float32s(t protoreflect.Message) ([]float32, error) {
	if t == nil {
		return nil, api.NewProtocolError("tensor not available")
	}
	dtype := tfproto.DtypeOf(t)
	raw := tfproto.Get(t, "tensor_content").Bytes()
	switch dtype {
	case tfproto.DataTypeFloat:
		if len(raw) > 0 {
			b, err := content(raw, 4, dtype)
			if err != nil {
				return nil, err
			}
			out := make([]float32, len(b)/4)
			for i := range out {
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
			}
			return out, nil
		}
		list := tfproto.Get(t, "float_val").List()
		out := make([]float32, list.Len())
		for i := range out {
			out[i] = float32(list.Get(i).Float())
		}
		return out, nil
	case tfproto.DataTypeDouble:
		if len(raw) > 0 {
			b, err := content(raw, 8, dtype)
			if err != nil {
				return nil, err
			}
			out := make([]float32, len(b)/8)
			for i := range out {
				out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
			}
			return out, nil
		}
		list := tfproto.Get(t, "double_val").List()
		out := make([]float32, list.Len())
		for i := range out {
			out[i] = float32(list.Get(i).Float())
		}
		return out, nil
	case tfproto.DataTypeHalf:
		if len(raw) > 0 {
			b, err := content(raw, 2, dtype)
			if err != nil {
				return nil, err
			}
			out := make([]float32, len(b)/2)
			for i := range out {
				out[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
			}
			return out, nil
		}
		list := tfproto.Get(t, "half_val").List()
		out := make([]float32, list.Len())
		for i := range out {
			out[i] = float16.Frombits(uint16(list.Get(i).Int())).Float32()
		}
		return out, nil
	case tfproto.DataTypeFloat8E5M2:
		b := tfproto.Get(t, "float8_val").Bytes()
		if len(raw) > 0 {
			b = raw
		}
		out := make([]float32, len(b))
		for i, v := range b {
			out[i] = float8.E5M2(v).Float32()
		}
		return out, nil
	default:
		return nil, api.NewProtocolError("tensor has unexpected data type, should be a floating point type, got %s", dtype)
	}
}

// Int64s reads the values of a DT_INT64 or DT_INT32 tensor.
func Int64s(t protoreflect.Message) ([]int64, error) {
	if t == nil {
		return nil, api.NewProtocolError("tensor not available")
	}
	dtype := tfproto.DtypeOf(t)
	raw := tfproto.Get(t, "tensor_content").Bytes()
	switch dtype {
	case tfproto.DataTypeInt64:
		if len(raw) > 0 {
			b, err := content(raw, 8, dtype)
			if err != nil {
				return nil, err
			}
			out := make([]int64, len(b)/8)
			for i := range out {
				out[i] = int64(binary.LittleEndian.Uint64(b[i*8:]))
			}
			return out, nil
		}
		list := tfproto.Get(t, "int64_val").List()
		out := make([]int64, list.Len())
		for i := range out {
			out[i] = list.Get(i).Int()
		}
		return out, nil
	case tfproto.DataTypeInt32:
		if len(raw) > 0 {
			b, err := content(raw, 4, dtype)
			if err != nil {
				return nil, err
			}
			out := make([]int64, len(b)/4)
			for i := range out {
				out[i] = int64(int32(binary.LittleEndian.Uint32(b[i*4:])))
			}
			return out, nil
		}
		list := tfproto.Get(t, "int_val").List()
		out := make([]int64, list.Len())
		for i := range out {
			out[i] = list.Get(i).Int()
		}
		return out, nil
	default:
		return nil, api.NewProtocolError("tensor has unexpected data type, should be DT_INT64 or DT_INT32, got %s", dtype)
	}
}

func content(raw []byte, width int, dtype tfproto.DataType) ([]byte, error) {
	if len(raw)%width != 0 {
		return nil, api.NewProtocolError("tensor_content of %d bytes is not a multiple of %d for %s", len(raw), width, dtype)
	}
	return raw, nil
}
