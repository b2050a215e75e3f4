package tfserving

import (
	"encoding/binary"
	"testing"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/payload"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// message parses text as a message of type name.
func message(t *testing.T, name protoreflect.FullName, text string) *dynamicpb.Message {
	t.Helper()
	m := tfproto.New(name)
	require.NoError(t, fill(m, text))
	return m
}

func TestAdapter_MapModelSpec(t *testing.T) {
	adapter := Adapter{}

	tests := []struct {
		name     string
		model    ModelDescriptor
		expected string
	}{
		{
			name:     "latest version",
			model:    Model("resnet"),
			expected: `name: "resnet" signature_name: "serving_default"`,
		},
		{
			name:     "pinned version",
			model:    ModelVersion("resnet", 3),
			expected: `name: "resnet" version { value: 3 } signature_name: "serving_default"`,
		},
		{
			name:     "version label",
			model:    ModelLabel("resnet", "stable"),
			expected: `name: "resnet" version_label: "stable" signature_name: "serving_default"`,
		},
		{
			name:     "version wins over label",
			model:    ModelDescriptor{Name: "resnet", Version: int64Ptr(0), VersionLabel: "stable"},
			expected: `name: "resnet" version {} signature_name: "serving_default"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertProto(t, tt.expected, adapter.MapModelSpec(tt.model, DefaultSignatureName))
		})
	}
}

func TestAdapter_MapModelDescriptor(t *testing.T) {
	adapter := Adapter{}
	assert.Equal(t, ModelDescriptor{}, adapter.MapModelDescriptor(nil))
	assert.Equal(t, ModelVersion("a", 0), adapter.MapModelDescriptor(message(t, tfproto.ModelSpec, `name: "a" version {}`)))
	assert.Equal(t, ModelLabel("a", "canary"), adapter.MapModelDescriptor(message(t, tfproto.ModelSpec, `name: "a" version_label: "canary"`)))
}

func TestModel(t *testing.T) {
	assert.Nil(t, Model("resnet").Version)
	assert.Equal(t, int64(3), *ModelVersion("resnet", 3).Version)
	assert.Equal(t, "resnet", Model("resnet").Name)
}

func TestAdapter_MapInput(t *testing.T) {
	input := Adapter{}.MapInput(payload.FeatureMap{"age": payload.Ints([]int{31})})
	assertProto(t, `example_list { examples { features {
		feature { key: "age" value { int64_list { value: 31 } } }
	} } }`, input)
}

func TestAdapter_MapPredictResponse(t *testing.T) {
	const probabilities = `outputs { key: "probabilities" value { dtype: DT_FLOAT float_val: [0.1, 0.7, 0.2] } } `
	const classes = `outputs { key: "classes" value { dtype: DT_INT64 tensor_shape { dim { size: 1 } } int64_val: 1 } } `

	tests := []struct {
		name     string
		outputs  string
		expected *PredictionResult
		errMsg   string
	}{
		{
			name:     "valid",
			outputs:  probabilities + classes,
			expected: &PredictionResult{Probabilities: []float32{0.1, 0.7, 0.2}, MaxIndex: 1},
		},
		{
			name:    "missing probabilities",
			outputs: classes,
			errMsg:  "probabilities not available from the server response",
		},
		{
			name:    "missing classes",
			outputs: probabilities,
			errMsg:  "classes not available from the server response",
		},
		{
			name:    "classes wrong dtype",
			outputs: probabilities + `outputs { key: "classes" value { dtype: DT_FLOAT tensor_shape { dim { size: 1 } } float_val: 1 } }`,
			errMsg:  "classes has unexpected data type, should be DT_INT64, got DT_FLOAT",
		},
		{
			name:    "classes shape [2]",
			outputs: probabilities + `outputs { key: "classes" value { dtype: DT_INT64 tensor_shape { dim { size: 2 } } int64_val: [1, 2] } }`,
			errMsg:  "number of classes unexpected",
		},
		{
			name:    "classes shape [1,1]",
			outputs: probabilities + `outputs { key: "classes" value { dtype: DT_INT64 tensor_shape { dim { size: 1 } dim { size: 1 } } int64_val: 1 } }`,
			errMsg:  "number of classes unexpected",
		},
		{
			name:    "classes without values",
			outputs: probabilities + `outputs { key: "classes" value { dtype: DT_INT64 tensor_shape { dim { size: 1 } } } }`,
			errMsg:  "number of classes unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Adapter{}.MapPredictResponse(message(t, tfproto.PredictResponse, tt.outputs))
			if tt.errMsg != "" {
				assert.Nil(t, result)
				require.Error(t, err)
				assert.True(t, api.IsKind(err, api.ProtocolError))
				assert.Equal(t, "protocol error: "+tt.errMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAdapter_MapPredictResponse_TensorContent(t *testing.T) {
	content := make([]byte, 8)
	binary.LittleEndian.PutUint64(content, 4)
	resp := message(t, tfproto.PredictResponse, `outputs { key: "probabilities" value { dtype: DT_FLOAT float_val: 1 } }`)
	classes := message(t, tfproto.TensorProto, `dtype: DT_INT64 tensor_shape { dim { size: 1 } }`)
	tfproto.Set(classes, "tensor_content", protoreflect.ValueOfBytes(content))
	tfproto.MutableMap(resp, "outputs").Set(protoreflect.ValueOfString("classes").MapKey(), protoreflect.ValueOfMessage(classes))

	result, err := Adapter{}.MapPredictResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.MaxIndex)
}

func TestAdapter_MapClassificationResponse(t *testing.T) {
	_, err := Adapter{}.MapClassificationResponse(tfproto.New(tfproto.ClassificationResponse))
	assert.EqualError(t, err, "protocol error: classification result not available from the server response")

	result, err := Adapter{}.MapClassificationResponse(message(t, tfproto.ClassificationResponse,
		`result { classifications { classes { label: "cat" score: 0.9 } classes { label: "dog" score: 0.1 } } }`))
	require.NoError(t, err)
	assert.Equal(t, &ClassificationResult{Classifications: []Classifications{{Classes: []Class{{"cat", 0.9}, {"dog", 0.1}}}}}, result)
}

func TestAdapter_MapRegressionResponse(t *testing.T) {
	_, err := Adapter{}.MapRegressionResponse(nil)
	assert.True(t, api.IsKind(err, api.ProtocolError))

	result, err := Adapter{}.MapRegressionResponse(message(t, tfproto.RegressionResponse,
		`result { regressions { value: 1.5 } regressions { value: -2 } }`))
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, result.Values)
}

func TestAdapter_MapMultiInferenceRequest(t *testing.T) {
	req := Adapter{}.MapMultiInferenceRequest([]InferenceTask{
		{Model: ModelVersion("a", 1), Method: MethodClassify},
	}, "sig", payload.FeatureMap{"name": payload.Strings([]string{"x"})})
	assertProto(t, `
		tasks { model_spec { name: "a" version { value: 1 } signature_name: "sig" } method_name: "tensorflow/serving/classify" }
		input { example_list { examples { features {
			feature { key: "name" value { bytes_list { value: "x" } } }
		} } } }`, req)
}

func TestAdapter_MapMultiInferenceResponse(t *testing.T) {
	resp := message(t, tfproto.MultiInferenceResponse, `
		results { model_spec { name: "a" version { value: 2 } } classification_result {} }
		results { model_spec { name: "b" } regression_result { regressions { value: 3 } } }`)
	results, err := Adapter{}.MapMultiInferenceResponse(resp, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ModelVersion("a", 2), results[0].Model)
	assert.NotNil(t, results[0].Classification)
	assert.Nil(t, results[0].Regression)
	assert.Equal(t, []float32{3}, results[1].Regression.Values)

	_, err = Adapter{}.MapMultiInferenceResponse(resp, 3)
	assert.True(t, api.IsKind(err, api.ProtocolError))

	_, err = Adapter{}.MapMultiInferenceResponse(message(t, tfproto.MultiInferenceResponse, `results {}`), 1)
	assert.True(t, api.IsKind(err, api.ProtocolError))
}

func TestAdapter_MapModelMetadataResponse_WithoutSignatures(t *testing.T) {
	reply := tfproto.NewReply(tfproto.MethodGetModelMetadata)
	entry := tfproto.MutableMap(reply, "metadata").Mutable(protoreflect.ValueOfString("other").MapKey()).Message()
	tfproto.Set(entry, "type_url", protoreflect.ValueOfString("type.googleapis.com/x.Y"))

	md, err := Adapter{}.MapModelMetadataResponse(reply, Model("resnet"))
	require.NoError(t, err)
	assert.Equal(t, Model("resnet"), md.Model)
	assert.Equal(t, "type.googleapis.com/x.Y", md.Metadata["other"].TypeUrl)
	assert.Nil(t, md.Signatures)
}

func TestAdapter_MapModelStatusResponse(t *testing.T) {
	reply := tfproto.NewReply(tfproto.MethodGetModelStatus)
	require.NoError(t, fill(reply, `
		model_version_status { version: 1 state: AVAILABLE status {} }
		model_version_status { version: 2 state: LOADING status { error_code: NOT_FOUND error_message: "not found" } }`))

	status := Adapter{}.MapModelStatusResponse(reply)
	assert.Equal(t, &ModelStatus{Versions: []ModelVersionStatus{
		{Version: 1, State: tfproto.ModelVersionStateAvailable},
		{Version: 2, State: tfproto.ModelVersionStateLoading, ErrorCode: 5, ErrorMessage: "not found"},
	}}, status)
}

func TestAdapter_MapReloadConfigRequest(t *testing.T) {
	req := Adapter{}.MapReloadConfigRequest([]ModelConfig{{Name: "resnet", BasePath: "/models/resnet", Platform: "tensorflow"}})
	assertProto(t, `config { model_config_list { config {
		name: "resnet" base_path: "/models/resnet" model_platform: "tensorflow"
	} } }`, req)
}

func TestAdapter_MapReloadConfigResponse(t *testing.T) {
	assert.NoError(t, Adapter{}.MapReloadConfigResponse(message(t, tfproto.ReloadConfigResponse, ``)))
	assert.NoError(t, Adapter{}.MapReloadConfigResponse(message(t, tfproto.ReloadConfigResponse, `status {}`)))

	err := Adapter{}.MapReloadConfigResponse(message(t, tfproto.ReloadConfigResponse,
		`status { error_code: FAILED_PRECONDITION error_message: "busy" }`))
	assert.EqualError(t, err, "protocol error: reload config failed with FAILED_PRECONDITION: busy")
}
