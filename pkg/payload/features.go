package payload

import (
	"sort"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/tfproto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// FeatureMap maps an input field name to its payload.
type FeatureMap map[string]Payload

// Validate rejects a map holding a zero-value Payload. The first offending name in sorted order
// is reported as a ConfigError.
func (m FeatureMap) Validate() error {
	names := make([]string, 0, len(m))
	for name, p := range m {
		if !p.Valid() {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return api.NewConfigError("feature "+names[0]+" has no value", nil)
}

// EncodeFeatures converts m into tensorflow.Features. The result shares no memory with m.
func EncodeFeatures(m FeatureMap) *dynamicpb.Message {
	features := tfproto.New(tfproto.Features)
	entries := tfproto.MutableMap(features, "feature")
	for name, p := range m {
		entries.Set(protoreflect.ValueOfString(name).MapKey(), protoreflect.ValueOfMessage(p.Feature()))
	}
	return features
}

// EncodeExample wraps the encoded features of m in a single tensorflow.Example.
func EncodeExample(m FeatureMap) *dynamicpb.Message {
	example := tfproto.New(tfproto.Example)
	tfproto.Set(example, "features", protoreflect.ValueOfMessage(EncodeFeatures(m)))
	return example
}
