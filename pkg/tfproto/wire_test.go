package tfproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func marshal(t *testing.T, m proto.Message) []byte {
	t.Helper()
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(m)
	require.NoError(t, err)
	return b
}

func modelSpec(name string) *dynamicpb.Message {
	spec := New(ModelSpec)
	Set(spec, "name", protoreflect.ValueOfString(name))
	return spec
}

func TestModelSpec_Wire(t *testing.T) {
	withVersion := modelSpec("m")
	Set(Mutable(withVersion, "version"), "value", protoreflect.ValueOfInt64(3))
	Set(withVersion, "signature_name", protoreflect.ValueOfString("s"))

	withLabel := modelSpec("m")
	Set(withLabel, "version_label", protoreflect.ValueOfString("stable"))

	tests := []struct {
		name     string
		spec     *dynamicpb.Message
		expected []byte
	}{
		{name: "name only", spec: modelSpec("m"), expected: []byte{0x0a, 0x01, 'm'}},
		{name: "name version and signature", spec: withVersion, expected: []byte{0x0a, 0x01, 'm', 0x1a, 0x01, 's', 0x12, 0x02, 0x08, 0x03}},
		{name: "version label", spec: withLabel, expected: append([]byte{0x0a, 0x01, 'm', 0x22, 0x06}, "stable"...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, marshal(t, tt.spec))
		})
	}
}

func TestModelSpec_VersionIsInt64Value(t *testing.T) {
	spec := New(ModelSpec)
	Set(Mutable(spec, "version"), "value", protoreflect.ValueOfInt64(42))

	b := marshal(t, spec)
	num, typ, n := protowire.ConsumeTag(b)
	require.Greater(t, n, 0)
	assert.Equal(t, protowire.Number(2), num)
	assert.Equal(t, protowire.BytesType, typ)
	body, m := protowire.ConsumeBytes(b[n:])
	require.Greater(t, m, 0)
	assert.Equal(t, marshal(t, wrapperspb.Int64(42)), body)
}

func TestModelSpec_OneofKeepsLastChoice(t *testing.T) {
	spec := modelSpec("m")
	Set(spec, "version_label", protoreflect.ValueOfString("stable"))
	Set(Mutable(spec, "version"), "value", protoreflect.ValueOfInt64(1))

	assert.False(t, Has(spec, "version_label"))
	assert.Equal(t, []byte{0x0a, 0x01, 'm', 0x12, 0x02, 0x08, 0x01}, marshal(t, spec))
}

func TestFeature_Wire(t *testing.T) {
	floats := New(Feature)
	MutableList(Mutable(floats, "float_list"), "value").Append(protoreflect.ValueOfFloat32(0.5))

	ints := New(Feature)
	list := MutableList(Mutable(ints, "int64_list"), "value")
	list.Append(protoreflect.ValueOfInt64(1))
	list.Append(protoreflect.ValueOfInt64(300))

	records := New(Feature)
	MutableList(Mutable(records, "bytes_list"), "value").Append(protoreflect.ValueOfBytes([]byte("ab")))

	empty := New(Feature)
	Mutable(empty, "float_list")

	tests := []struct {
		name     string
		feature  *dynamicpb.Message
		expected []byte
	}{
		{name: "float list", feature: floats, expected: []byte{0x12, 0x06, 0x0a, 0x04, 0x00, 0x00, 0x00, 0x3f}},
		{name: "int64 list", feature: ints, expected: []byte{0x1a, 0x05, 0x0a, 0x03, 0x01, 0xac, 0x02}},
		{name: "bytes list", feature: records, expected: []byte{0x0a, 0x04, 0x0a, 0x02, 'a', 'b'}},
		{name: "empty list is still present", feature: empty, expected: []byte{0x12, 0x00}},
		{name: "no list", feature: New(Feature), expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, marshal(t, tt.feature))
		})
	}
}

func TestPredictRequest_Wire(t *testing.T) {
	tensor := New(TensorProto)
	Set(tensor, "dtype", DataTypeFloat.Value())
	MutableList(tensor, "float_val").Append(protoreflect.ValueOfFloat32(1))

	req := New(PredictRequest)
	Set(req, "model_spec", protoreflect.ValueOfMessage(modelSpec("m")))
	MutableMap(req, "inputs").Set(protoreflect.ValueOfString("x").MapKey(), protoreflect.ValueOfMessage(tensor))
	MutableList(req, "output_filter").Append(protoreflect.ValueOfString("y"))

	expected := []byte{
		0x0a, 0x03, 0x0a, 0x01, 'm',
		0x12, 0x0d, 0x0a, 0x01, 'x', 0x12, 0x08, 0x08, 0x01, 0x2a, 0x04, 0x00, 0x00, 0x80, 0x3f,
		0x1a, 0x01, 'y',
	}
	assert.Equal(t, expected, marshal(t, req))
}

func TestReloadConfigRequest_Wire(t *testing.T) {
	req := New(ReloadConfigRequest)
	configs := MutableList(Mutable(Mutable(req, "config"), "model_config_list"), "config")
	config := configs.AppendMutable().Message()
	Set(config, "name", protoreflect.ValueOfString("a"))
	Set(config, "base_path", protoreflect.ValueOfString("/m"))
	Set(config, "model_platform", protoreflect.ValueOfString("tensorflow"))

	expected := append([]byte{
		0x0a, 0x17, 0x0a, 0x15, 0x0a, 0x13,
		0x0a, 0x01, 'a', 0x12, 0x02, '/', 'm', 0x22, 0x0a,
	}, "tensorflow"...)
	assert.Equal(t, expected, marshal(t, req))
}

func TestClassificationResponse_Decode(t *testing.T) {
	b := []byte{
		0x0a, 0x0e, 0x0a, 0x0c, 0x0a, 0x0a, 0x0a, 0x03, 'c', 'a', 't', 0x15, 0x00, 0x00, 0x40, 0x3f,
		0x12, 0x03, 0x0a, 0x01, 'm',
	}
	resp := New(ClassificationResponse)
	require.NoError(t, proto.Unmarshal(b, resp))

	assert.Equal(t, "m", String(Message(resp, "model_spec"), "name"))
	classifications := Messages(Message(resp, "result"), "classifications")
	require.Len(t, classifications, 1)
	classes := Messages(classifications[0], "classes")
	require.Len(t, classes, 1)
	assert.Equal(t, "cat", String(classes[0], "label"))
	assert.Equal(t, float32(0.75), float32(Get(classes[0], "score").Float()))
}

func TestRegressionResponse_Decode(t *testing.T) {
	resp := New(RegressionResponse)
	require.NoError(t, proto.Unmarshal([]byte{0x0a, 0x07, 0x0a, 0x05, 0x0d, 0x00, 0x00, 0x20, 0x40}, resp))

	regressions := Messages(Message(resp, "result"), "regressions")
	require.Len(t, regressions, 1)
	assert.Equal(t, 2.5, Get(regressions[0], "value").Float())
	assert.Nil(t, Message(resp, "model_spec"))
}

func TestGetModelStatusResponse_Decode(t *testing.T) {
	b := []byte{0x0a, 0x0e, 0x08, 0x03, 0x10, 0x1e, 0x1a, 0x08, 0x08, 0x05, 0x12, 0x04, 'g', 'o', 'n', 'e'}
	resp := NewReply(MethodGetModelStatus)
	require.NoError(t, proto.Unmarshal(b, resp))

	statuses := Messages(resp, "model_version_status")
	require.Len(t, statuses, 1)
	assert.Equal(t, int64(3), Int64(statuses[0], "version"))
	assert.Equal(t, ModelVersionStateAvailable, ModelVersionState(Get(statuses[0], "state").Enum()))
	status := Message(statuses[0], "status")
	require.NotNil(t, status)
	assert.Equal(t, "NOT_FOUND", ErrorCodeName(int32(Get(status, "error_code").Enum())))
	assert.Equal(t, "gone", String(status, "error_message"))
}
