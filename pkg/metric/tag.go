package metric

import "strings"

// Tag constants
const (
	TagEnv            = "env"
	TagService        = "service"
	TagMethod         = "method"
	TagModelName      = "model_name"
	TagSignatureName  = "signature_name"
	TagGrpcStatusCode = "grpc_status_code"
	TagErrorKind      = "error_kind"
	TagImageOrigin    = "image_origin"
	TagImageFormat    = "image_format"
	TagCBName         = "cb_name"
	TagCBFromState    = "from"
	TagCBToState      = "to"

	TagExternalService                = "external_service"
	TagCommunicationProtocol          = "communication_protocol"
	TagValueCommunicationProtocolGrpc = "grpc"
	TagValueExternalServiceTfServing  = "tensorflow_serving"
)

type Tag struct {
	Name  string
	Value string
}

func NewTag(name, value string) Tag {
	return Tag{
		Name:  name,
		Value: value,
	}
}

// BuildTag builds a tag from the given name and value
func BuildTag(tags ...Tag) []string {
	allTags := make([]string, 0, len(tags))
	for _, tag := range tags {
		allTags = append(allTags, TagAsString(tag.Name, tag.Value))
	}
	return allTags
}

// normalizeTagValue sanitizes tag values to prevent parsing issues
func normalizeTagValue(value string) string {
	// "/" is kept as-is to preserve method paths such as /tensorflow.serving.PredictionService/Predict
	return tagValueReplacer.Replace(value)
}

var tagValueReplacer = strings.NewReplacer(":", "_", " ", "_", "\\", "_", ",", "_", "|", "_", "@", "_", "#", "_")

func TagAsString(name string, value string) string {
	return name + ":" + normalizeTagValue(value)
}

func UpdateTags(tags *[]string, newTags ...Tag) {
	for _, tag := range newTags {
		*tags = append(*tags, TagAsString(tag.Name, tag.Value))
	}
}
