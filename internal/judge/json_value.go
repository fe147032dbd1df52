package judge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JSONKind identifies the concrete type stored in a JSONValue.
type JSONKind int

const (
	JSONNull JSONKind = iota
	JSONString
	JSONNumber
	JSONBool
	JSONObject
	JSONArray
)

// JSONValue represents a judge reply value without using empty interfaces.
type JSONValue struct {
	Kind   JSONKind
	String string
	Number float64
	Bool   bool
	Object map[string]JSONValue
	Array  []JSONValue
}

// UnmarshalJSON decodes a JSON value into the typed JSONValue representation.
func (v *JSONValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty json value")
	}
	switch trimmed[0] {
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		v.Kind = JSONObject
		v.Object = make(map[string]JSONValue, len(raw))
		for key, value := range raw {
			var child JSONValue
			if err := json.Unmarshal(value, &child); err != nil {
				return err
			}
			v.Object[key] = child
		}
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		v.Kind = JSONArray
		v.Array = make([]JSONValue, 0, len(raw))
		for _, value := range raw {
			var child JSONValue
			if err := json.Unmarshal(value, &child); err != nil {
				return err
			}
			v.Array = append(v.Array, child)
		}
		return nil
	case '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		v.Kind = JSONString
		v.String = value
		return nil
	case 't', 'f':
		var value bool
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		v.Kind = JSONBool
		v.Bool = value
		return nil
	case 'n':
		if string(trimmed) != "null" {
			return fmt.Errorf("invalid json literal")
		}
		v.Kind = JSONNull
		return nil
	default:
		var value float64
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		v.Kind = JSONNumber
		v.Number = value
		return nil
	}
}

// MarshalJSON encodes the value back into plain JSON.
func (v JSONValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToInterface())
}

// Field returns the member of an object value.
func (v JSONValue) Field(name string) (JSONValue, bool) {
	if v.Kind != JSONObject {
		return JSONValue{}, false
	}
	child, ok := v.Object[name]
	return child, ok
}

// AsFloat reads numbers and numeric strings. NaN and infinities are rejected.
func (v JSONValue) AsFloat() (float64, bool) {
	var number float64
	switch v.Kind {
	case JSONNumber:
		number = v.Number
	case JSONString:
		text := strings.TrimSuffix(strings.TrimSpace(v.String), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, false
		}
		number = parsed
	default:
		return 0, false
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	return number, true
}

// AsBool reads booleans and the strings true/false/yes/no/pass/fail.
func (v JSONValue) AsBool() (bool, bool) {
	switch v.Kind {
	case JSONBool:
		return v.Bool, true
	case JSONString:
		switch strings.ToLower(strings.TrimSpace(v.String)) {
		case "true", "yes", "pass", "passed":
			return true, true
		case "false", "no", "fail", "failed":
			return false, true
		}
	}
	return false, false
}

// AsText returns strings as-is and renders other scalars as JSON text.
func (v JSONValue) AsText() (string, bool) {
	switch v.Kind {
	case JSONString:
		return v.String, true
	case JSONNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64), true
	case JSONBool:
		return strconv.FormatBool(v.Bool), true
	default:
		return "", false
	}
}

// AsStrings reads an array of scalars, or a single string as a one-element list.
func (v JSONValue) AsStrings() ([]string, bool) {
	switch v.Kind {
	case JSONArray:
		out := make([]string, 0, len(v.Array))
		for _, item := range v.Array {
			if text, ok := item.AsText(); ok && strings.TrimSpace(text) != "" {
				out = append(out, text)
			}
		}
		return out, true
	case JSONString:
		if strings.TrimSpace(v.String) == "" {
			return []string{}, true
		}
		return []string{v.String}, true
	default:
		return nil, false
	}
}

// ToInterface converts the JSONValue into standard Go JSON types.
func (v JSONValue) ToInterface() interface{} {
	switch v.Kind {
	case JSONObject:
		out := make(map[string]interface{}, len(v.Object))
		for key, value := range v.Object {
			out[key] = value.ToInterface()
		}
		return out
	case JSONArray:
		out := make([]interface{}, 0, len(v.Array))
		for _, value := range v.Array {
			out = append(out, value.ToInterface())
		}
		return out
	case JSONString:
		return v.String
	case JSONNumber:
		return v.Number
	case JSONBool:
		return v.Bool
	default:
		return nil
	}
}
