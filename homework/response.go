package homework

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

const (
	keyHomeworks    = "homeworks"
	keyCurrentDate  = "current_date"
	keyHomeworkName = "homework_name"
	keyStatus       = "status"
)

// DecodePayload parses a response body into a generic JSON value.
// Numbers are kept as json.Number so timestamps survive intact.
func DecodePayload(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &Error{Kind: KindParse, Detail: "response is not valid JSON", Err: err}
	}
	if dec.More() {
		return nil, &Error{Kind: KindParse, Detail: "trailing data after JSON value"}
	}
	return payload, nil
}

// CheckResponse validates the shape of a decoded payload and returns the
// value of its "homeworks" key. The returned slice may be empty.
//
// Fails with [ErrTypeMismatch] if the payload is not an object or
// "homeworks" is not an array, and with [ErrMissingKey] if the key is absent.
func CheckResponse(payload any) ([]any, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, &Error{
			Kind:   KindTypeMismatch,
			Detail: fmt.Sprintf("response must be an object, got %s", jsonType(payload)),
		}
	}

	raw, ok := obj[keyHomeworks]
	if !ok {
		return nil, &Error{Kind: KindMissingKey, Key: keyHomeworks, Detail: "key is absent from the response"}
	}

	works, ok := raw.([]any)
	if !ok {
		return nil, &Error{
			Kind:   KindTypeMismatch,
			Key:    keyHomeworks,
			Detail: fmt.Sprintf("value must be an array, got %s", jsonType(raw)),
		}
	}
	return works, nil
}

// CurrentDate returns the server-side "current_date" timestamp of a payload.
// The second result is false when the key is absent or not an integer.
func CurrentDate(payload any) (int64, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}

	switch v := obj[keyCurrentDate].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

// jsonType names the JSON type of a decoded value for error messages.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
