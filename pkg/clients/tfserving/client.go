package tfserving

import (
	"context"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/imagesource"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/payload"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tensor"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Client talks to one TensorFlow Serving endpoint. Implementations are safe for concurrent use.
type Client interface {
	Classify(ctx context.Context, model ModelDescriptor, features payload.FeatureMap) (*ClassificationResult, error)
	Regress(ctx context.Context, model ModelDescriptor, features payload.FeatureMap) (*RegressionResult, error)
	Predict(ctx context.Context, img imagesource.Source, model ModelDescriptor) (*PredictionResult, error)
	PredictWithPreprocessing(ctx context.Context, img imagesource.Source, model ModelDescriptor, preprocess tensor.Preprocess) (*PredictionResult, error)
	PredictTensors(ctx context.Context, model ModelDescriptor, inputs map[string]*dynamicpb.Message, outputFilter ...string) (*dynamicpb.Message, error)
	MultiInference(ctx context.Context, tasks []InferenceTask, features payload.FeatureMap) ([]InferenceResult, error)
	GetModelMetadata(ctx context.Context, model ModelDescriptor) (*ModelMetadata, error)
	GetModelStatus(ctx context.Context, model ModelDescriptor) (*ModelStatus, error)
	ReloadConfig(ctx context.Context, models []ModelConfig) error
	SignatureName() string
	Endpoint() string
	Close() error
}
