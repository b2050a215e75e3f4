package tfserving

import (
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"google.golang.org/protobuf/types/known/anypb"
)

// ModelDescriptor names a served model and optionally pins a version or a version label.
// Version takes precedence when both are set.
type ModelDescriptor struct {
	Name         string
	Version      *int64
	VersionLabel string
}

// Model describes the latest version of the named model.
func Model(name string) ModelDescriptor {
	return ModelDescriptor{Name: name}
}

func ModelVersion(name string, version int64) ModelDescriptor {
	return ModelDescriptor{Name: name, Version: &version}
}

func ModelLabel(name, label string) ModelDescriptor {
	return ModelDescriptor{Name: name, VersionLabel: label}
}

// PredictionResult is the decoded answer of an image prediction.
type PredictionResult struct {
	// Probabilities holds one score per class.
	Probabilities []float32
	// MaxIndex is the index of the most likely class as reported by the server.
	MaxIndex int64
}

type Class struct {
	Label string
	Score float32
}

// Classifications holds the classes scored for one input example.
type Classifications struct {
	Classes []Class
}

type ClassificationResult struct {
	Classifications []Classifications
}

// RegressionResult holds one value per input example.
type RegressionResult struct {
	Values []float32
}

type ModelVersionStatus struct {
	Version      int64
	State        tfproto.ModelVersionState
	ErrorCode    int32
	ErrorMessage string
}

type ModelStatus struct {
	Versions []ModelVersionStatus
}

// ModelMetadata maps a metadata field, such as "signature_def", to its packed value. Signatures
// holds the decoded "signature_def" entry, keyed by signature name.
type ModelMetadata struct {
	Model      ModelDescriptor
	Metadata   map[string]*anypb.Any
	Signatures map[string]Signature
}

type Signature struct {
	MethodName string
	Inputs     map[string]TensorInfo
	Outputs    map[string]TensorInfo
}

// TensorInfo describes one signature tensor. A size of -1 in Shape is unknown.
type TensorInfo struct {
	Name  string
	Dtype tfproto.DataType
	Shape []int64
}

// Method is the inference method of a MultiInference task.
type Method string

const (
	MethodClassify Method = "tensorflow/serving/classify"
	MethodRegress  Method = "tensorflow/serving/regress"
)

type InferenceTask struct {
	Model  ModelDescriptor
	Method Method
}

// InferenceResult is the answer to one InferenceTask. Exactly one of Classification and
// Regression is set.
type InferenceResult struct {
	Model          ModelDescriptor
	Classification *ClassificationResult
	Regression     *RegressionResult
}

// ModelConfig describes one model for ReloadConfig. VersionLabels pins labels such as "stable"
// to versions.
type ModelConfig struct {
	Name          string
	BasePath      string
	Platform      string
	VersionLabels map[string]int64
}
