// Package variable defines the typed value union returned by variable evaluation.
package variable

import "fmt"

// Type identifies which branch of Value is populated.
type Type string

// The variable types a VariableSchema may declare, per the datafile wire contract.
const (
	Boolean     Type = "boolean"
	String      Type = "string"
	Integer     Type = "integer"
	Double      Type = "double"
	StringArray Type = "array"
	Object      Type = "object"
	JSON        Type = "json"
)

// Value is a tagged union over the variable value types. Typed accessors pattern-match
// on Type rather than asserting a Go interface{} type, so a caller can never observe a
// value of the wrong shape for its declared type.
type Value struct {
	typ   Type
	b     bool
	s     string
	i     int64
	d     float64
	arr   []string
	obj   map[string]interface{}
	jsonS string
}

// NewBoolean constructs a boolean Value.
func NewBoolean(b bool) Value { return Value{typ: Boolean, b: b} }

// NewString constructs a string Value.
func NewString(s string) Value { return Value{typ: String, s: s} }

// NewInteger constructs an integer Value.
func NewInteger(i int64) Value { return Value{typ: Integer, i: i} }

// NewDouble constructs a double Value.
func NewDouble(d float64) Value { return Value{typ: Double, d: d} }

// NewStringArray constructs an array-of-string Value.
func NewStringArray(arr []string) Value {
	cp := make([]string, len(arr))
	copy(cp, arr)
	return Value{typ: StringArray, arr: cp}
}

// NewObject constructs an object Value.
func NewObject(obj map[string]interface{}) Value { return Value{typ: Object, obj: obj} }

// NewJSON constructs a json Value from a raw JSON-encoded string.
func NewJSON(raw string) Value { return Value{typ: JSON, jsonS: raw} }

// Type returns which branch of the union is populated.
func (v Value) Type() Type { return v.typ }

// IsZero reports whether this Value was never assigned (the zero Value, distinct from
// any typed value including NewBoolean(false)).
func (v Value) IsZero() bool { return v.typ == "" }

// AsBoolean returns the boolean value and true if Type() == Boolean.
func (v Value) AsBoolean() (bool, bool) {
	if v.typ != Boolean {
		return false, false
	}
	return v.b, true
}

// AsString returns the string value and true if Type() == String.
func (v Value) AsString() (string, bool) {
	if v.typ != String {
		return "", false
	}
	return v.s, true
}

// AsInteger returns the integer value and true if Type() == Integer.
func (v Value) AsInteger() (int64, bool) {
	if v.typ != Integer {
		return 0, false
	}
	return v.i, true
}

// AsDouble returns the double value and true if Type() == Double.
func (v Value) AsDouble() (float64, bool) {
	if v.typ != Double {
		return 0, false
	}
	return v.d, true
}

// AsStringArray returns the array value and true if Type() == StringArray.
func (v Value) AsStringArray() ([]string, bool) {
	if v.typ != StringArray {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns the object value and true if Type() == Object.
func (v Value) AsObject() (map[string]interface{}, bool) {
	if v.typ != Object {
		return nil, false
	}
	return v.obj, true
}

// AsJSON returns the raw JSON string and true if Type() == JSON.
func (v Value) AsJSON() (string, bool) {
	if v.typ != JSON {
		return "", false
	}
	return v.jsonS, true
}

// String renders the value for logging; it is not a parseable encoding.
func (v Value) String() string {
	switch v.typ {
	case Boolean:
		return fmt.Sprintf("%t", v.b)
	case String:
		return v.s
	case Integer:
		return fmt.Sprintf("%d", v.i)
	case Double:
		return fmt.Sprintf("%g", v.d)
	case StringArray:
		return fmt.Sprintf("%v", v.arr)
	case Object:
		return fmt.Sprintf("%v", v.obj)
	case JSON:
		return v.jsonS
	default:
		return "<unset>"
	}
}

// FromInterface builds a Value from a loosely-typed datafile JSON value plus its declared
// schema type. It is the boundary where the untyped wire representation becomes the typed
// union; it never coerces across types silently, matching the "typed accessors return none
// on mismatch" rule in error handling design.
func FromInterface(declared Type, raw interface{}) (Value, bool) {
	switch declared {
	case Boolean:
		if b, ok := raw.(bool); ok {
			return NewBoolean(b), true
		}
	case String:
		if s, ok := raw.(string); ok {
			return NewString(s), true
		}
	case Integer:
		switch n := raw.(type) {
		case int64:
			return NewInteger(n), true
		case int:
			return NewInteger(int64(n)), true
		case float64:
			return NewInteger(int64(n)), true
		}
	case Double:
		switch n := raw.(type) {
		case float64:
			return NewDouble(n), true
		case int64:
			return NewDouble(float64(n)), true
		case int:
			return NewDouble(float64(n)), true
		}
	case StringArray:
		if arr, ok := raw.([]interface{}); ok {
			out := make([]string, 0, len(arr))
			for _, el := range arr {
				s, ok := el.(string)
				if !ok {
					return Value{}, false
				}
				out = append(out, s)
			}
			return NewStringArray(out), true
		}
		if arr, ok := raw.([]string); ok {
			return NewStringArray(arr), true
		}
	case Object:
		if obj, ok := raw.(map[string]interface{}); ok {
			return NewObject(obj), true
		}
	case JSON:
		if s, ok := raw.(string); ok {
			return NewJSON(s), true
		}
	}
	return Value{}, false
}
