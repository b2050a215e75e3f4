package tfproto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func TestCompile(t *testing.T) {
	files, err := Compile(context.Background())
	require.NoError(t, err)

	for _, p := range []string{
		"tensorflow/core/framework/tensor.proto",
		"tensorflow/core/example/example.proto",
		"tensorflow_serving/apis/prediction_service.proto",
		"tensorflow_serving/apis/model_service.proto",
		"tensorflow_serving/config/model_server_config.proto",
	} {
		assert.NotNil(t, files.FindFileByPath(p), p)
	}
}

func TestDescriptor_AllNamesResolve(t *testing.T) {
	names := []protoreflect.FullName{
		TensorProto, TensorShapeProto, Feature, Features, Example, SignatureDef,
		ModelSpec, Input, ClassificationRequest, ClassificationResponse, RegressionRequest,
		RegressionResponse, PredictRequest, PredictResponse, MultiInferenceRequest,
		MultiInferenceResponse, GetModelMetadataRequest, SignatureDefMap, GetModelStatusRequest,
		ReloadConfigRequest, ReloadConfigResponse,
	}
	for _, name := range names {
		assert.Equal(t, name, Descriptor(name).FullName())
	}

	assert.Panics(t, func() { Descriptor("tensorflow.serving.Nope") })
	assert.Panics(t, func() { Descriptor("tensorflow.DataType") })
}

func TestMethod(t *testing.T) {
	tests := []struct {
		method string
		input  protoreflect.FullName
		output protoreflect.FullName
	}{
		{method: MethodClassify, input: ClassificationRequest, output: ClassificationResponse},
		{method: MethodRegress, input: RegressionRequest, output: RegressionResponse},
		{method: MethodPredict, input: PredictRequest, output: PredictResponse},
		{method: MethodMultiInference, input: MultiInferenceRequest, output: MultiInferenceResponse},
		{method: MethodGetModelMetadata, input: GetModelMetadataRequest, output: "tensorflow.serving.GetModelMetadataResponse"},
		{method: MethodGetModelStatus, input: GetModelStatusRequest, output: "tensorflow.serving.GetModelStatusResponse"},
		{method: MethodReloadConfig, input: ReloadConfigRequest, output: ReloadConfigResponse},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			md := Method(tt.method)
			require.NotNil(t, md)
			assert.Equal(t, tt.input, md.Input().FullName())
			assert.Equal(t, tt.output, md.Output().FullName())
			assert.Equal(t, tt.output, NewReply(tt.method).Descriptor().FullName())
		})
	}

	assert.Nil(t, Method("/tensorflow.serving.PredictionService/Nope"))
	assert.Nil(t, Method("/tensorflow.serving.ModelSpec"))
	assert.Panics(t, func() { NewReply("/x.Y/Z") })
}

func TestDataType_String(t *testing.T) {
	assert.Equal(t, "DT_FLOAT", DataTypeFloat.String())
	assert.Equal(t, "DT_INT64", DataTypeInt64.String())
	assert.Equal(t, "DT_HALF", DataTypeHalf.String())
	assert.Equal(t, "DT_FLOAT8_E5M2", DataTypeFloat8E5M2.String())
	assert.Equal(t, "DT_STRING", DataTypeString.String())
	assert.Equal(t, "DataType(99)", DataType(99).String())
}

func TestModelVersionState_String(t *testing.T) {
	assert.Equal(t, "AVAILABLE", ModelVersionStateAvailable.String())
	assert.Equal(t, "LOADING", ModelVersionStateLoading.String())
	assert.Equal(t, "UNKNOWN", ModelVersionState(7).String())
}

func TestErrorCodeName(t *testing.T) {
	assert.Equal(t, "OK", ErrorCodeName(0))
	assert.Equal(t, "NOT_FOUND", ErrorCodeName(5))
	assert.Equal(t, "Code(42)", ErrorCodeName(42))
}

func TestField_Unknown(t *testing.T) {
	spec := New(ModelSpec)
	assert.Panics(t, func() { Field(spec, "nope") })
	assert.Nil(t, Message(spec, "version"))
	assert.Nil(t, MapEntry(New(PredictResponse), "outputs", "missing"))
}
