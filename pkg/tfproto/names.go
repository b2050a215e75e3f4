package tfproto

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

const (
	PredictionServiceName = "tensorflow.serving.PredictionService"
	ModelServiceName      = "tensorflow.serving.ModelService"

	MethodClassify         = "/" + PredictionServiceName + "/Classify"
	MethodRegress          = "/" + PredictionServiceName + "/Regress"
	MethodPredict          = "/" + PredictionServiceName + "/Predict"
	MethodMultiInference   = "/" + PredictionServiceName + "/MultiInference"
	MethodGetModelMetadata = "/" + PredictionServiceName + "/GetModelMetadata"
	MethodGetModelStatus   = "/" + ModelServiceName + "/GetModelStatus"
	MethodReloadConfig     = "/" + ModelServiceName + "/HandleReloadConfigRequest"
)

// Message names of the embedded schema.
const (
	TensorProto      protoreflect.FullName = "tensorflow.TensorProto"
	TensorShapeProto protoreflect.FullName = "tensorflow.TensorShapeProto"
	Feature          protoreflect.FullName = "tensorflow.Feature"
	Features         protoreflect.FullName = "tensorflow.Features"
	Example          protoreflect.FullName = "tensorflow.Example"
	SignatureDef     protoreflect.FullName = "tensorflow.SignatureDef"

	ModelSpec               protoreflect.FullName = "tensorflow.serving.ModelSpec"
	Input                   protoreflect.FullName = "tensorflow.serving.Input"
	ClassificationRequest   protoreflect.FullName = "tensorflow.serving.ClassificationRequest"
	ClassificationResponse  protoreflect.FullName = "tensorflow.serving.ClassificationResponse"
	RegressionRequest       protoreflect.FullName = "tensorflow.serving.RegressionRequest"
	RegressionResponse      protoreflect.FullName = "tensorflow.serving.RegressionResponse"
	PredictRequest          protoreflect.FullName = "tensorflow.serving.PredictRequest"
	PredictResponse         protoreflect.FullName = "tensorflow.serving.PredictResponse"
	MultiInferenceRequest   protoreflect.FullName = "tensorflow.serving.MultiInferenceRequest"
	MultiInferenceResponse  protoreflect.FullName = "tensorflow.serving.MultiInferenceResponse"
	GetModelMetadataRequest protoreflect.FullName = "tensorflow.serving.GetModelMetadataRequest"
	SignatureDefMap         protoreflect.FullName = "tensorflow.serving.SignatureDefMap"
	GetModelStatusRequest   protoreflect.FullName = "tensorflow.serving.GetModelStatusRequest"
	ReloadConfigRequest     protoreflect.FullName = "tensorflow.serving.ReloadConfigRequest"
	ReloadConfigResponse    protoreflect.FullName = "tensorflow.serving.ReloadConfigResponse"
)

// SignatureDefMapTypeURL is the Any type URL of the "signature_def" metadata entry.
const SignatureDefMapTypeURL = "type.googleapis.com/" + string(SignatureDefMap)
