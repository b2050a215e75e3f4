// Package payload holds the typed input values sent to a model server and their encoding into
// tensorflow.Features.
package payload

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Kind is the active variant of a Payload.
type Kind int

const (
	KindInvalid Kind = iota
	KindBytes
	KindInt64s
	KindFloat32s
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindInt64s:
		return "int64s"
	case KindFloat32s:
		return "float32s"
	default:
		return "invalid"
	}
}

// Payload is an immutable list of byte records, 64-bit integers or 32-bit floats. Exactly one
// variant is active; the zero value has KindInvalid.
type Payload struct {
	kind   Kind
	bytes  [][]byte
	ints   []int64
	floats []float32
}

// Bytes builds a byte-record payload. The records are copied.
func Bytes(v [][]byte) Payload {
	out := make([][]byte, len(v))
	for i, b := range v {
		out[i] = append([]byte{}, b...)
	}
	return Payload{kind: KindBytes, bytes: out}
}

// Strings builds a byte-record payload with one record per string.
func Strings(v []string) Payload {
	out := make([][]byte, len(v))
	for i, s := range v {
		out[i] = []byte(s)
	}
	return Payload{kind: KindBytes, bytes: out}
}

func Int64s(v []int64) Payload {
	return Payload{kind: KindInt64s, ints: append(make([]int64, 0, len(v)), v...)}
}

func Ints(v []int) Payload {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return Payload{kind: KindInt64s, ints: out}
}

func Int32s(v []int32) Payload {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(x)
	}
	return Payload{kind: KindInt64s, ints: out}
}

func Float32s(v []float32) Payload {
	return Payload{kind: KindFloat32s, floats: append(make([]float32, 0, len(v)), v...)}
}

// Float64s narrows each value to float32, the only float width the wire format carries.
func Float64s(v []float64) Payload {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return Payload{kind: KindFloat32s, floats: out}
}

func (p Payload) Kind() Kind { return p.kind }

func (p Payload) Len() int {
	switch p.kind {
	case KindBytes:
		return len(p.bytes)
	case KindInt64s:
		return len(p.ints)
	case KindFloat32s:
		return len(p.floats)
	default:
		return 0
	}
}

func (p Payload) String() string {
	return fmt.Sprintf("%s[%d]", p.kind, p.Len())
}

// Valid reports whether p was built by one of the constructors.
func (p Payload) Valid() bool {
	return p.kind != KindInvalid
}

// Feature encodes the payload into a freshly allocated tensorflow.Feature. The list matching the
// kind is always set, even when empty. An invalid payload yields a Feature with no list set.
func (p Payload) Feature() *dynamicpb.Message {
	feature := tfproto.New(tfproto.Feature)
	switch p.kind {
	case KindBytes:
		values := tfproto.MutableList(tfproto.Mutable(feature, "bytes_list"), "value")
		for _, b := range p.bytes {
			values.Append(protoreflect.ValueOfBytes(append([]byte{}, b...)))
		}
	case KindInt64s:
		values := tfproto.MutableList(tfproto.Mutable(feature, "int64_list"), "value")
		for _, v := range p.ints {
			values.Append(protoreflect.ValueOfInt64(v))
		}
	case KindFloat32s:
		values := tfproto.MutableList(tfproto.Mutable(feature, "float_list"), "value")
		for _, v := range p.floats {
			values.Append(protoreflect.ValueOfFloat32(v))
		}
	}
	return feature
}
