package manifest

import (
	"encoding/json"
	"fmt"
)

// normalizeManifest rewrites schemas and params into the value shapes the
// JSON Schema validator expects: string-keyed maps and float64 numbers, as
// if the document had been decoded from JSON.
func normalizeManifest(m *Manifest) error {
	for i := range m.Tools {
		input, err := normalizeObject(m.Tools[i].InputSchema)
		if err != nil {
			return fmt.Errorf("tools[%d].input_schema: %w", i, err)
		}
		m.Tools[i].InputSchema = input

		output, err := normalizeObject(m.Tools[i].OutputSchema)
		if err != nil {
			return fmt.Errorf("tools[%d].output_schema: %w", i, err)
		}
		m.Tools[i].OutputSchema = output

		params, err := normalizeObject(m.Tools[i].Params)
		if err != nil {
			return fmt.Errorf("tools[%d].params: %w", i, err)
		}
		m.Tools[i].Params = params
	}
	return nil
}

func normalizeObject(obj map[string]any) (map[string]any, error) {
	if obj == nil {
		return nil, nil
	}
	normalized, err := normalizeValue(obj)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so YAML integers become float64 and the
	// result is marshal-stable.
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

func normalizeValue(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			normalized, err := normalizeValue(val)
			if err != nil {
				return nil, err
			}
			out[key] = normalized
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			keyStr, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("object key must be string, got %T", key)
			}
			normalized, err := normalizeValue(val)
			if err != nil {
				return nil, err
			}
			out[keyStr] = normalized
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			normalized, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = normalized
		}
		return out, nil
	default:
		return value, nil
	}
}
