// Package tensor converts decoded images into tensorflow.TensorProto inputs and reads typed values
// back out of response tensors.
package tensor

import (
	"image"
	"image/color"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/datatypeconverter/float8"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"github.com/x448/float16"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Channels is the number of values emitted per pixel.
const Channels = 3

// Preprocess maps one 8-bit channel value, already converted to float32, to the model input value.
type Preprocess func(float32) float32

type options struct {
	half   bool
	float8 bool
}

type Option func(*options)

// WithHalfPrecision emits DT_HALF values in half_val instead of DT_FLOAT values in float_val.
func WithHalfPrecision() Option {
	return func(o *options) { o.half = true }
}

// WithFloat8E5M2 emits DT_FLOAT8_E5M2 values in float8_val. It wins over WithHalfPrecision.
func WithFloat8E5M2() Option {
	return func(o *options) { o.float8 = true }
}

// Build flattens img into a [1, W, H, 3] tensor. Rows are read top to bottom and pixels left to
// right, emitting R, G and B in that order; alpha is dropped. Colors are read un-premultiplied, so
// a translucent *image.RGBA pixel yields its straight color. A nil preprocess is Identity.
func Build(img image.Image, preprocess Preprocess, opts ...Option) *dynamicpb.Message {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if preprocess == nil {
		preprocess = Identity
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	values := make([]float32, 0, width*height*Channels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			values = append(values,
				preprocess(float32(c.R)),
				preprocess(float32(c.G)),
				preprocess(float32(c.B)),
			)
		}
	}

	t := tfproto.New(tfproto.TensorProto)
	tfproto.Set(t, "tensor_shape", protoreflect.ValueOfMessage(Shape(1, int64(width), int64(height), Channels)))
	switch {
	case o.float8:
		tfproto.Set(t, "dtype", tfproto.DataTypeFloat8E5M2.Value())
		packed := make([]byte, len(values))
		for i, v := range values {
			packed[i] = float8.FromFloat32(v).Bits()
		}
		tfproto.Set(t, "float8_val", protoreflect.ValueOfBytes(packed))
	case o.half:
		tfproto.Set(t, "dtype", tfproto.DataTypeHalf.Value())
		list := tfproto.MutableList(t, "half_val")
		for _, v := range values {
			list.Append(protoreflect.ValueOfInt32(int32(float16.Fromfloat32(v).Bits())))
		}
	default:
		tfproto.Set(t, "dtype", tfproto.DataTypeFloat.Value())
		list := tfproto.MutableList(t, "float_val")
		for _, v := range values {
			list.Append(protoreflect.ValueOfFloat32(v))
		}
	}
	return t
}

// Shape builds a TensorShapeProto from dimension sizes.
func Shape(dims ...int64) *dynamicpb.Message {
	shape := tfproto.New(tfproto.TensorShapeProto)
	list := tfproto.MutableList(shape, "dim")
	for _, d := range dims {
		tfproto.Set(list.AppendMutable().Message(), "size", protoreflect.ValueOfInt64(d))
	}
	return shape
}

// Identity leaves channel values untouched.
func Identity(v float32) float32 { return v }

// Scale multiplies every channel value by factor, e.g. Scale(1.0/255) maps to [0, 1].
func Scale(factor float32) Preprocess {
	return func(v float32) float32 { return v * factor }
}

// Normalize maps v to (v/255 - mean) / std.
func Normalize(mean, std float32) Preprocess {
	return func(v float32) float32 { return (v/255 - mean) / std }
}
