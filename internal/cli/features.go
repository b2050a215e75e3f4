package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/payload"
)

// parseFeatures turns "name=type:v1,v2" flags into a FeatureMap. type is one of bytes, int or
// float. An empty value list yields an empty feature of that type.
func parseFeatures(specs []string) (payload.FeatureMap, error) {
	features := make(payload.FeatureMap, len(specs))
	for _, spec := range specs {
		name, typed, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("feature %q must look like name=type:values", spec)
		}
		kind, raw, ok := strings.Cut(typed, ":")
		if !ok {
			return nil, fmt.Errorf("feature %q has no type, use bytes:, int: or float:", spec)
		}
		var values []string
		if raw != "" {
			values = strings.Split(raw, ",")
		}
		p, err := parsePayload(kind, values)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", name, err)
		}
		features[name] = p
	}
	return features, nil
}

func parsePayload(kind string, values []string) (payload.Payload, error) {
	switch kind {
	case "bytes":
		return payload.Strings(values), nil
	case "int":
		ints := make([]int64, len(values))
		for i, v := range values {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return payload.Payload{}, err
			}
			ints[i] = n
		}
		return payload.Int64s(ints), nil
	case "float":
		floats := make([]float32, len(values))
		for i, v := range values {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
			if err != nil {
				return payload.Payload{}, err
			}
			floats[i] = float32(f)
		}
		return payload.Float32s(floats), nil
	default:
		return payload.Payload{}, fmt.Errorf("unknown feature type %q", kind)
	}
}
