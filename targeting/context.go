// Package targeting implements the condition/segment matcher (C3): evaluating leaf
// conditions, boolean combinators, and named segments against a caller-supplied context.
// This package is pure — no mutation, no I/O.
package targeting

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AttrKind discriminates the branches of AttrValue.
type AttrKind string

// The attribute value kinds a Context may carry, per spec §3.
const (
	AttrString  AttrKind = "string"
	AttrInteger AttrKind = "integer"
	AttrDouble  AttrKind = "double"
	AttrBoolean AttrKind = "boolean"
	AttrDate    AttrKind = "date"
)

// AttrValue is a tagged union over the context attribute value types.
type AttrValue struct {
	Kind   AttrKind
	Str    string
	Int    int64
	Double float64
	Bool   bool
	Date   time.Time
}

// StringAttr builds a string-valued attribute.
func StringAttr(s string) AttrValue { return AttrValue{Kind: AttrString, Str: s} }

// IntegerAttr builds an integer-valued attribute.
func IntegerAttr(i int64) AttrValue { return AttrValue{Kind: AttrInteger, Int: i} }

// DoubleAttr builds a double-valued attribute.
func DoubleAttr(d float64) AttrValue { return AttrValue{Kind: AttrDouble, Double: d} }

// BooleanAttr builds a boolean-valued attribute.
func BooleanAttr(b bool) AttrValue { return AttrValue{Kind: AttrBoolean, Bool: b} }

// DateAttr builds a date-valued attribute.
func DateAttr(t time.Time) AttrValue { return AttrValue{Kind: AttrDate, Date: t} }

// CanonicalString renders an attribute value to its canonical string form for bucket-key
// assembly (C2): booleans as true/false, integers without a decimal point, doubles using
// shortest round-trip decimal, dates as ISO-8601, strings as-is.
func (v AttrValue) CanonicalString() string {
	switch v.Kind {
	case AttrString:
		return v.Str
	case AttrInteger:
		return strconv.FormatInt(v.Int, 10)
	case AttrDouble:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case AttrBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case AttrDate:
		return v.Date.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Context is a caller-owned, immutable mapping from attribute key to a tagged value. It is
// not retained by the engine beyond a single evaluation.
type Context map[string]AttrValue

// Get returns the value at key and whether it was present.
func (c Context) Get(key string) (AttrValue, bool) {
	v, ok := c[key]
	return v, ok
}

// With returns a shallow copy of c with key set to value, used by interceptContext hooks
// that need to derive a modified context without mutating the caller's original.
func (c Context) With(key string, value AttrValue) Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}

// Clone returns a shallow copy of c.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// NewAnonymousContext builds a Context for a caller that has no stable identity of its own,
// stamping idAttribute with a freshly generated random key so bucketing still produces a
// consistent-for-this-session assignment. Useful as a default when no InterceptContext hook
// is configured and the caller has nothing to key bucketing on.
func NewAnonymousContext(idAttribute string) Context {
	return Context{idAttribute: StringAttr(uuid.NewString())}
}
