package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tagged wire forms for values JSON cannot carry natively.
const (
	wireTimeKey            = "$time"
	wireServerTimestampKey = "$serverTimestamp"
)

// EncodeFields converts fields to JSON-compatible values.
// Times and the ServerTimestamp sentinel become single-key tagged objects.
func EncodeFields(fields Fields) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil, bool, string, float64:
			out[k] = val
		case int:
			out[k] = float64(val)
		case int64:
			out[k] = float64(val)
		case time.Time:
			out[k] = map[string]any{wireTimeKey: val.UTC().Format(time.RFC3339Nano)}
		case ServerTimestampValue:
			out[k] = map[string]any{wireServerTimestampKey: true}
		default:
			return nil, fmt.Errorf("field %q: unsupported value type %T", k, v)
		}
	}
	return out, nil
}

// DecodeFields reverses EncodeFields
func DecodeFields(wire map[string]any) (Fields, error) {
	out := make(Fields, len(wire))
	for k, v := range wire {
		switch val := v.(type) {
		case map[string]any:
			decoded, err := decodeTagged(val)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = decoded
		case json.Number:
			f, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = f
		default:
			out[k] = val
		}
	}
	return out, nil
}

func decodeTagged(m map[string]any) (any, error) {
	if raw, ok := m[wireTimeKey]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("time tag must hold a string")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	if _, ok := m[wireServerTimestampKey]; ok {
		return ServerTimestamp, nil
	}
	return nil, fmt.Errorf("unsupported nested object")
}

// MarshalFieldsJSON encodes fields for storage in a JSON column or key
func MarshalFieldsJSON(fields Fields) ([]byte, error) {
	wire, err := EncodeFields(fields)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

// UnmarshalFieldsJSON decodes fields written by MarshalFieldsJSON
func UnmarshalFieldsJSON(data []byte) (Fields, error) {
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	return DecodeFields(wire)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
