package tfserving

import (
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/payload"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tensor"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/anypb"
)

const (
	predictInputKey      = "input"
	outputProbabilities  = "probabilities"
	outputClasses        = "classes"
	metadataSignatureDef = "signature_def"
)

// Adapter maps between client types and TensorFlow Serving messages.
type Adapter struct{}

func (a Adapter) MapModelSpec(model ModelDescriptor, signatureName string) *dynamicpb.Message {
	spec := tfproto.New(tfproto.ModelSpec)
	tfproto.Set(spec, "name", protoreflect.ValueOfString(model.Name))
	tfproto.Set(spec, "signature_name", protoreflect.ValueOfString(signatureName))
	switch {
	case model.Version != nil:
		tfproto.Set(tfproto.Mutable(spec, "version"), "value", protoreflect.ValueOfInt64(*model.Version))
	case model.VersionLabel != "":
		tfproto.Set(spec, "version_label", protoreflect.ValueOfString(model.VersionLabel))
	}
	return spec
}

func (a Adapter) MapModelDescriptor(spec protoreflect.Message) ModelDescriptor {
	if spec == nil {
		return ModelDescriptor{}
	}
	model := ModelDescriptor{
		Name:         tfproto.String(spec, "name"),
		VersionLabel: tfproto.String(spec, "version_label"),
	}
	if version := tfproto.Message(spec, "version"); version != nil {
		v := tfproto.Int64(version, "value")
		model.Version = &v
	}
	return model
}

// MapInput wraps features in an ExampleList holding a single Example.
func (a Adapter) MapInput(features payload.FeatureMap) *dynamicpb.Message {
	input := tfproto.New(tfproto.Input)
	examples := tfproto.MutableList(tfproto.Mutable(input, "example_list"), "examples")
	examples.Append(protoreflect.ValueOfMessage(payload.EncodeExample(features)))
	return input
}

func (a Adapter) MapClassificationResult(result protoreflect.Message) *ClassificationResult {
	classifications := tfproto.Messages(result, "classifications")
	out := &ClassificationResult{Classifications: make([]Classifications, len(classifications))}
	for i, c := range classifications {
		classes := tfproto.Messages(c, "classes")
		out.Classifications[i].Classes = make([]Class, len(classes))
		for j, class := range classes {
			out.Classifications[i].Classes[j] = Class{
				Label: tfproto.String(class, "label"),
				Score: float32(tfproto.Get(class, "score").Float()),
			}
		}
	}
	return out
}

func (a Adapter) MapClassificationResponse(resp protoreflect.Message) (*ClassificationResult, error) {
	result := resultOf(resp)
	if result == nil {
		return nil, api.NewProtocolError("classification result not available from the server response")
	}
	return a.MapClassificationResult(result), nil
}

func (a Adapter) MapRegressionResult(result protoreflect.Message) *RegressionResult {
	regressions := tfproto.Messages(result, "regressions")
	out := &RegressionResult{Values: make([]float32, len(regressions))}
	for i, r := range regressions {
		out.Values[i] = float32(tfproto.Get(r, "value").Float())
	}
	return out
}

func (a Adapter) MapRegressionResponse(resp protoreflect.Message) (*RegressionResult, error) {
	result := resultOf(resp)
	if result == nil {
		return nil, api.NewProtocolError("regression result not available from the server response")
	}
	return a.MapRegressionResult(result), nil
}

// MapPredictResponse reads the "probabilities" and "classes" outputs of an image classifier.
// classes must be a DT_INT64 tensor of shape [1].
func (a Adapter) MapPredictResponse(resp protoreflect.Message) (*PredictionResult, error) {
	if resp == nil {
		return nil, api.NewProtocolError("probabilities not available from the server response")
	}
	probabilities := tfproto.MapEntry(resp, "outputs", outputProbabilities)
	if probabilities == nil {
		return nil, api.NewProtocolError("probabilities not available from the server response")
	}
	classes := tfproto.MapEntry(resp, "outputs", outputClasses)
	if classes == nil {
		return nil, api.NewProtocolError("classes not available from the server response")
	}
	if dtype := tfproto.DtypeOf(classes); dtype != tfproto.DataTypeInt64 {
		return nil, api.NewProtocolError("classes has unexpected data type, should be DT_INT64, got %s", dtype)
	}
	dims := tensor.Dims(classes)
	if len(dims) != 1 || dims[0] != 1 {
		return nil, api.NewProtocolError("number of classes unexpected")
	}
	classValues, err := tensor.Int64s(classes)
	if err != nil {
		return nil, err
	}
	if len(classValues) != 1 {
		return nil, api.NewProtocolError("number of classes unexpected")
	}
	probabilityValues, err := tensor.Float32s(probabilities)
	if err != nil {
		return nil, err
	}
	return &PredictionResult{Probabilities: probabilityValues, MaxIndex: classValues[0]}, nil
}

// MapPredictRequest builds a PredictRequest around inputs, which must be TensorProto messages.
func (a Adapter) MapPredictRequest(model ModelDescriptor, signatureName string, inputs map[string]*dynamicpb.Message, outputFilter []string) *dynamicpb.Message {
	req := tfproto.New(tfproto.PredictRequest)
	tfproto.Set(req, "model_spec", protoreflect.ValueOfMessage(a.MapModelSpec(model, signatureName)))
	entries := tfproto.MutableMap(req, "inputs")
	for name, t := range inputs {
		entries.Set(protoreflect.ValueOfString(name).MapKey(), protoreflect.ValueOfMessage(t))
	}
	filter := tfproto.MutableList(req, "output_filter")
	for _, name := range outputFilter {
		filter.Append(protoreflect.ValueOfString(name))
	}
	return req
}

func (a Adapter) MapMultiInferenceRequest(tasks []InferenceTask, signatureName string, features payload.FeatureMap) *dynamicpb.Message {
	req := tfproto.New(tfproto.MultiInferenceRequest)
	list := tfproto.MutableList(req, "tasks")
	for _, task := range tasks {
		t := list.AppendMutable().Message()
		tfproto.Set(t, "model_spec", protoreflect.ValueOfMessage(a.MapModelSpec(task.Model, signatureName)))
		tfproto.Set(t, "method_name", protoreflect.ValueOfString(string(task.Method)))
	}
	tfproto.Set(req, "input", protoreflect.ValueOfMessage(a.MapInput(features)))
	return req
}

func (a Adapter) MapMultiInferenceResponse(resp protoreflect.Message, taskCount int) ([]InferenceResult, error) {
	var results []protoreflect.Message
	if resp != nil {
		results = tfproto.Messages(resp, "results")
	}
	if len(results) != taskCount {
		return nil, api.NewProtocolError("expected %d inference results from the server response, got %d", taskCount, len(results))
	}
	out := make([]InferenceResult, len(results))
	for i, r := range results {
		out[i].Model = a.MapModelDescriptor(tfproto.Message(r, "model_spec"))
		if c := tfproto.Message(r, "classification_result"); c != nil {
			out[i].Classification = a.MapClassificationResult(c)
		} else if reg := tfproto.Message(r, "regression_result"); reg != nil {
			out[i].Regression = a.MapRegressionResult(reg)
		} else {
			return nil, api.NewProtocolError("inference result %d carries neither a classification nor a regression result", i)
		}
	}
	return out, nil
}

func (a Adapter) MapModelMetadataRequest(model ModelDescriptor, signatureName string) *dynamicpb.Message {
	req := tfproto.New(tfproto.GetModelMetadataRequest)
	tfproto.Set(req, "model_spec", protoreflect.ValueOfMessage(a.MapModelSpec(model, signatureName)))
	tfproto.MutableList(req, "metadata_field").Append(protoreflect.ValueOfString(metadataSignatureDef))
	return req
}

// MapModelMetadataResponse copies the packed metadata entries and decodes the "signature_def"
// entry when it holds a SignatureDefMap.
func (a Adapter) MapModelMetadataResponse(resp protoreflect.Message, requested ModelDescriptor) (*ModelMetadata, error) {
	out := &ModelMetadata{Model: requested, Metadata: map[string]*anypb.Any{}}
	if resp == nil {
		return out, nil
	}
	if spec := tfproto.Message(resp, "model_spec"); spec != nil {
		out.Model = a.MapModelDescriptor(spec)
	}
	var err error
	tfproto.Get(resp, "metadata").Map().Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		packed := &anypb.Any{
			TypeUrl: tfproto.String(v.Message(), "type_url"),
			Value:   tfproto.Get(v.Message(), "value").Bytes(),
		}
		out.Metadata[k.String()] = packed
		if k.String() == metadataSignatureDef && packed.TypeUrl == tfproto.SignatureDefMapTypeURL {
			out.Signatures, err = a.mapSignatureDefMap(packed.Value)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a Adapter) mapSignatureDefMap(b []byte) (map[string]Signature, error) {
	m := tfproto.New(tfproto.SignatureDefMap)
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, api.NewProtocolError("signature_def metadata cannot be decoded: %v", err)
	}
	out := map[string]Signature{}
	tfproto.Get(m, "signature_def").Map().Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		def := v.Message()
		out[k.String()] = Signature{
			MethodName: tfproto.String(def, "method_name"),
			Inputs:     mapTensorInfos(tfproto.Get(def, "inputs").Map()),
			Outputs:    mapTensorInfos(tfproto.Get(def, "outputs").Map()),
		}
		return true
	})
	return out, nil
}

func mapTensorInfos(infos protoreflect.Map) map[string]TensorInfo {
	out := make(map[string]TensorInfo, infos.Len())
	infos.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		info := v.Message()
		out[k.String()] = TensorInfo{
			Name:  tfproto.String(info, "name"),
			Dtype: tfproto.DtypeOf(info),
			Shape: tensor.Dims(info),
		}
		return true
	})
	return out
}

func (a Adapter) MapModelStatusRequest(model ModelDescriptor, signatureName string) *dynamicpb.Message {
	req := tfproto.New(tfproto.GetModelStatusRequest)
	tfproto.Set(req, "model_spec", protoreflect.ValueOfMessage(a.MapModelSpec(model, signatureName)))
	return req
}

func (a Adapter) MapModelStatusResponse(resp protoreflect.Message) *ModelStatus {
	out := &ModelStatus{}
	if resp == nil {
		return out
	}
	statuses := tfproto.Messages(resp, "model_version_status")
	out.Versions = make([]ModelVersionStatus, len(statuses))
	for i, s := range statuses {
		out.Versions[i] = ModelVersionStatus{
			Version: tfproto.Int64(s, "version"),
			State:   tfproto.ModelVersionState(tfproto.Get(s, "state").Enum()),
		}
		if status := tfproto.Message(s, "status"); status != nil {
			out.Versions[i].ErrorCode = int32(tfproto.Get(status, "error_code").Enum())
			out.Versions[i].ErrorMessage = tfproto.String(status, "error_message")
		}
	}
	return out
}

func (a Adapter) MapReloadConfigRequest(models []ModelConfig) *dynamicpb.Message {
	req := tfproto.New(tfproto.ReloadConfigRequest)
	configs := tfproto.MutableList(tfproto.Mutable(tfproto.Mutable(req, "config"), "model_config_list"), "config")
	for _, m := range models {
		c := configs.AppendMutable().Message()
		tfproto.Set(c, "name", protoreflect.ValueOfString(m.Name))
		tfproto.Set(c, "base_path", protoreflect.ValueOfString(m.BasePath))
		tfproto.Set(c, "model_platform", protoreflect.ValueOfString(m.Platform))
		labels := tfproto.MutableMap(c, "version_labels")
		for label, version := range m.VersionLabels {
			labels.Set(protoreflect.ValueOfString(label).MapKey(), protoreflect.ValueOfInt64(version))
		}
	}
	return req
}

// MapReloadConfigResponse turns a non-OK status into a ProtocolError carrying the server's message.
func (a Adapter) MapReloadConfigResponse(resp protoreflect.Message) error {
	if resp == nil {
		return nil
	}
	status := tfproto.Message(resp, "status")
	if status == nil {
		return nil
	}
	code := int32(tfproto.Get(status, "error_code").Enum())
	if code == 0 {
		return nil
	}
	return api.NewProtocolError("reload config failed with %s: %s", tfproto.ErrorCodeName(code), tfproto.String(status, "error_message"))
}

func resultOf(resp protoreflect.Message) protoreflect.Message {
	if resp == nil {
		return nil
	}
	return tfproto.Message(resp, "result")
}
