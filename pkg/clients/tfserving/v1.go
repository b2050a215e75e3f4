package tfserving

import (
	"context"
	"time"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/circuitbreaker"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/imagesource"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/metric"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/payload"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tensor"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	V1Prefix         = "TFSERVING_CLIENT_V1_"
	CallerIDMetadata = "tfserving-caller-id"
)

type clientOptions struct {
	signatureName  string
	endpoint       string
	deadline       time.Duration
	callerId       string
	circuitBreaker circuitbreaker.CircuitBreaker
}

// ClientV1 is a connected Client. It is immutable and safe for concurrent use.
type ClientV1 struct {
	adapter        Adapter
	conn           Conn
	signatureName  string
	endpoint       string
	deadline       time.Duration
	callerId       string
	circuitBreaker circuitbreaker.CircuitBreaker
}

var _ Client = (*ClientV1)(nil)

func newClientV1(conn Conn, opts clientOptions) *ClientV1 {
	return &ClientV1{
		adapter:        Adapter{},
		conn:           conn,
		signatureName:  opts.signatureName,
		endpoint:       opts.endpoint,
		deadline:       opts.deadline,
		callerId:       opts.callerId,
		circuitBreaker: opts.circuitBreaker,
	}
}

func (c *ClientV1) SignatureName() string {
	return c.signatureName
}

// Endpoint returns the server address as "http://host:port".
func (c *ClientV1) Endpoint() string {
	return c.endpoint
}

// Close releases the connection. Calls made afterwards fail.
func (c *ClientV1) Close() error {
	return c.conn.Close()
}

func (c *ClientV1) Classify(ctx context.Context, model ModelDescriptor, features payload.FeatureMap) (*ClassificationResult, error) {
	if err := validateModel(model); err != nil {
		return nil, err
	}
	if err := features.Validate(); err != nil {
		return nil, err
	}
	req := tfproto.New(tfproto.ClassificationRequest)
	tfproto.Set(req, "model_spec", protoreflect.ValueOfMessage(c.adapter.MapModelSpec(model, c.signatureName)))
	tfproto.Set(req, "input", protoreflect.ValueOfMessage(c.adapter.MapInput(features)))
	resp, err := c.invoke(ctx, tfproto.MethodClassify, model.Name, req)
	if err != nil {
		return nil, err
	}
	result, err := c.adapter.MapClassificationResponse(resp)
	if err != nil {
		c.recordError(tfproto.MethodClassify, model.Name, err)
		return nil, err
	}
	return result, nil
}

func (c *ClientV1) Regress(ctx context.Context, model ModelDescriptor, features payload.FeatureMap) (*RegressionResult, error) {
	if err := validateModel(model); err != nil {
		return nil, err
	}
	if err := features.Validate(); err != nil {
		return nil, err
	}
	req := tfproto.New(tfproto.RegressionRequest)
	tfproto.Set(req, "model_spec", protoreflect.ValueOfMessage(c.adapter.MapModelSpec(model, c.signatureName)))
	tfproto.Set(req, "input", protoreflect.ValueOfMessage(c.adapter.MapInput(features)))
	resp, err := c.invoke(ctx, tfproto.MethodRegress, model.Name, req)
	if err != nil {
		return nil, err
	}
	result, err := c.adapter.MapRegressionResponse(resp)
	if err != nil {
		c.recordError(tfproto.MethodRegress, model.Name, err)
		return nil, err
	}
	return result, nil
}

// Predict sends the image unmodified. See PredictWithPreprocessing.
func (c *ClientV1) Predict(ctx context.Context, img imagesource.Source, model ModelDescriptor) (*PredictionResult, error) {
	return c.PredictWithPreprocessing(ctx, img, model, tensor.Identity)
}

// PredictWithPreprocessing resolves img, converts it into a [1, W, H, 3] float tensor with
// preprocess applied to every channel value and sends it as input "input". The response must carry
// "probabilities" and "classes" outputs. Nothing is sent when the image cannot be decoded.
func (c *ClientV1) PredictWithPreprocessing(ctx context.Context, img imagesource.Source, model ModelDescriptor, preprocess tensor.Preprocess) (*PredictionResult, error) {
	if err := validateModel(model); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, api.NewDecodeError("image source is nil", nil)
	}
	decoded, err := img.Image()
	if err != nil {
		log.Warn().Err(err).Str("origin", img.Origin()).Str("model_name", model.Name).Msg("failed to resolve image for prediction")
		return nil, err
	}
	resp, err := c.PredictTensors(ctx, model, map[string]*dynamicpb.Message{
		predictInputKey: tensor.Build(decoded, preprocess),
	})
	if err != nil {
		return nil, err
	}
	result, err := c.adapter.MapPredictResponse(resp)
	if err != nil {
		c.recordError(tfproto.MethodPredict, model.Name, err)
		return nil, err
	}
	return result, nil
}

// PredictTensors sends inputs, TensorProto messages such as tensor.Build returns, as they are and
// returns the raw PredictResponse. outputFilter restricts the outputs the server computes.
func (c *ClientV1) PredictTensors(ctx context.Context, model ModelDescriptor, inputs map[string]*dynamicpb.Message, outputFilter ...string) (*dynamicpb.Message, error) {
	if err := validateModel(model); err != nil {
		return nil, err
	}
	for name, t := range inputs {
		if t == nil || t.Descriptor().FullName() != tfproto.TensorProto {
			return nil, api.NewConfigError("input "+name+" is not a "+string(tfproto.TensorProto), nil)
		}
	}
	req := c.adapter.MapPredictRequest(model, c.signatureName, inputs, outputFilter)
	return c.invoke(ctx, tfproto.MethodPredict, model.Name, req)
}

// MultiInference runs every task against the same single-example input. Results are returned in
// task order.
func (c *ClientV1) MultiInference(ctx context.Context, tasks []InferenceTask, features payload.FeatureMap) ([]InferenceResult, error) {
	if len(tasks) == 0 {
		return nil, api.NewConfigError("no inference tasks provided", nil)
	}
	for _, task := range tasks {
		if err := validateModel(task.Model); err != nil {
			return nil, err
		}
		if task.Method != MethodClassify && task.Method != MethodRegress {
			return nil, api.NewConfigError("unsupported inference method "+string(task.Method), nil)
		}
	}
	if err := features.Validate(); err != nil {
		return nil, err
	}
	req := c.adapter.MapMultiInferenceRequest(tasks, c.signatureName, features)
	resp, err := c.invoke(ctx, tfproto.MethodMultiInference, tasks[0].Model.Name, req)
	if err != nil {
		return nil, err
	}
	results, err := c.adapter.MapMultiInferenceResponse(resp, len(tasks))
	if err != nil {
		c.recordError(tfproto.MethodMultiInference, tasks[0].Model.Name, err)
		return nil, err
	}
	return results, nil
}

// GetModelMetadata fetches the signature definitions of model.
func (c *ClientV1) GetModelMetadata(ctx context.Context, model ModelDescriptor) (*ModelMetadata, error) {
	if err := validateModel(model); err != nil {
		return nil, err
	}
	req := c.adapter.MapModelMetadataRequest(model, c.signatureName)
	resp, err := c.invoke(ctx, tfproto.MethodGetModelMetadata, model.Name, req)
	if err != nil {
		return nil, err
	}
	metadata, err := c.adapter.MapModelMetadataResponse(resp, model)
	if err != nil {
		c.recordError(tfproto.MethodGetModelMetadata, model.Name, err)
		return nil, err
	}
	return metadata, nil
}

func (c *ClientV1) GetModelStatus(ctx context.Context, model ModelDescriptor) (*ModelStatus, error) {
	if err := validateModel(model); err != nil {
		return nil, err
	}
	req := c.adapter.MapModelStatusRequest(model, c.signatureName)
	resp, err := c.invoke(ctx, tfproto.MethodGetModelStatus, model.Name, req)
	if err != nil {
		return nil, err
	}
	return c.adapter.MapModelStatusResponse(resp), nil
}

// ReloadConfig replaces the set of models the server loads. A non-OK status in the response is
// returned as a ProtocolError carrying the server's message.
func (c *ClientV1) ReloadConfig(ctx context.Context, models []ModelConfig) error {
	for _, m := range models {
		if m.Name == "" {
			return api.NewConfigError("model name not provided", nil)
		}
	}
	req := c.adapter.MapReloadConfigRequest(models)
	resp, err := c.invoke(ctx, tfproto.MethodReloadConfig, "", req)
	if err != nil {
		return err
	}
	if err := c.adapter.MapReloadConfigResponse(resp); err != nil {
		c.recordError(tfproto.MethodReloadConfig, "", err)
		return err
	}
	return nil
}

// invoke sends req over the connection and returns the decoded reply of method.
func (c *ClientV1) invoke(ctx context.Context, method, modelName string, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	resp := tfproto.NewReply(method)
	err := c.call(ctx, method, modelName, func(ctx context.Context) error {
		return c.conn.Invoke(ctx, method, req, resp)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// call runs one round trip under the client deadline, caller metadata and circuit breaker, and
// maps a failure to an *api.Error.
func (c *ClientV1) call(ctx context.Context, method, modelName string, invoke func(context.Context) error) error {
	if c.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.deadline)
		defer cancel()
	}
	if c.callerId != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, CallerIDMetadata, c.callerId)
	}
	err := c.circuitBreaker.Execute(ctx, invoke)
	if err == nil {
		return nil
	}
	err = api.ConvertGrpcError(method, err)
	c.recordError(method, modelName, err)
	return err
}

func (c *ClientV1) recordError(method, modelName string, err error) {
	log.Warn().Err(err).
		Str("endpoint", c.endpoint).
		Str("method", method).
		Str("model_name", modelName).
		Str("signature_name", c.signatureName).
		Msg("TensorFlow Serving request failed")
	tags := metric.BuildTag(
		metric.NewTag(metric.TagExternalService, metric.TagValueExternalServiceTfServing),
		metric.NewTag(metric.TagMethod, method),
		metric.NewTag(metric.TagModelName, modelName),
		metric.NewTag(metric.TagSignatureName, c.signatureName),
	)
	metric.UpdateTags(&tags, metric.NewTag(metric.TagErrorKind, api.KindOf(err).String()))
	metric.Incr(metric.ExternalApiRequestError, tags)
}

func validateModel(model ModelDescriptor) error {
	if model.Name == "" {
		return api.NewConfigError("model name not provided", nil)
	}
	return nil
}
