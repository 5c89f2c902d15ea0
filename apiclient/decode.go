package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// decodeList accepts either a bare JSON array or an object holding one.
// Named keys are tried first, then the first array-valued field in
// document order. An empty body or null is an empty list.
func decodeList[T any](data []byte, keys ...string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return items, nil
	case '{':
	default:
		return nil, fmt.Errorf("%w: expected a list", ErrDecode)
	}

	fields, err := orderedFields(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	pick := func(raw json.RawMessage) ([]T, error) {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return items, nil
	}

	for _, key := range keys {
		for _, f := range fields {
			if f.key == key && isArray(f.value) {
				return pick(f.value)
			}
		}
	}
	for _, f := range fields {
		if isArray(f.value) {
			return pick(f.value)
		}
	}
	return []T{}, nil
}

type field struct {
	key   string
	value json.RawMessage
}

// orderedFields returns the top-level fields of a JSON object in order.
func orderedFields(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return fields, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// decodeObject decodes data into T, unwrapping {"<key>": {...}} when the
// wrapper key is present.
func decodeObject[T any](data []byte, wrapper string) (T, error) {
	var zero T
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return zero, fmt.Errorf("%w: empty body", ErrDecode)
	}

	if wrapper != "" && data[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err == nil {
			if inner, ok := wrapped[wrapper]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
				data = inner
			}
		}
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return out, nil
}
