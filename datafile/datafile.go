// Package datafile holds the declarative data model the evaluation engine reads:
// features, segments, attributes, traffic allocations, variations, and typed variables.
// Nothing in this package mutates or performs I/O; a Datafile is an immutable snapshot
// that is swapped atomically by the owning Instance on refresh.
package datafile

// AttributeType enumerates the wire types a context attribute may declare.
type AttributeType string

// The attribute value types supported by the targeting layer.
const (
	AttributeString  AttributeType = "string"
	AttributeInteger AttributeType = "integer"
	AttributeDouble  AttributeType = "double"
	AttributeBoolean AttributeType = "boolean"
	AttributeDate    AttributeType = "date"
)

// Attribute describes one key a Context may carry.
type Attribute struct {
	Key     string
	Type    AttributeType
	Capture bool // whether this attribute is included in activation events
}

// Segment is a named, reusable condition tree.
type Segment struct {
	Key       string
	Condition Condition
}

// BucketByKind selects how the bucket-key builder assembles attribute values (C2).
type BucketByKind string

const (
	// BucketBySingle uses a single attribute key.
	BucketBySingle BucketByKind = "single"
	// BucketByAnd appends every present key's value, in order.
	BucketByAnd BucketByKind = "and"
	// BucketByOr appends only the first present key's value.
	BucketByOr BucketByKind = "or"
)

// BucketBy is the feature's bucket-key policy.
type BucketBy struct {
	Kind BucketByKind
	Keys []string // single key (len 1) for BucketBySingle, or the ordered key list otherwise
}

// RequiredFeature names a prerequisite feature, optionally pinned to a specific variation.
type RequiredFeature struct {
	Key       string
	Variation string // empty means "just must be enabled"
}

// Range is a half-open interval [Start, End) over [0, 100000).
type Range struct {
	Start int
	End   int
}

// Contains reports whether bucket falls within [Start, End).
func (r Range) Contains(bucket int) bool { return bucket >= r.Start && bucket < r.End }

// VariableOverride is a conditional replacement for a variation's variable value.
type VariableOverride struct {
	Value     interface{}
	Predicate Predicate
}

// VariableValue is one entry in a Variation's per-variable value map: the variation's
// default value for that variable, plus an ordered list of conditional overrides.
type VariableValue struct {
	Value     interface{}
	Overrides []VariableOverride
}

// Variation is one arm a feature can resolve to.
type Variation struct {
	Value     string
	Variables map[string]VariableValue // keyed by variable key
}

// VariableSchema declares a typed variable a feature exposes, with its default value.
type VariableSchema struct {
	Key          string
	Type         VariableType
	DefaultValue interface{}
}

// VariableType is re-exported here to keep the datafile package self-contained; it mirrors
// variable.Type's string values so datafile has no import on the variable package.
type VariableType string

// The declared variable types, matching variable.Type's wire spellings.
const (
	VariableBoolean     VariableType = "boolean"
	VariableString      VariableType = "string"
	VariableInteger     VariableType = "integer"
	VariableDouble      VariableType = "double"
	VariableStringArray VariableType = "array"
	VariableObject      VariableType = "object"
	VariableJSON        VariableType = "json"
)

// Allocation maps a bucket range to a variation.
type Allocation struct {
	Variation string
	Range     Range
}

// Traffic is a targeted cohort: a predicate, an optional flow override, a percentage cap,
// and an allocation table.
type Traffic struct {
	Key         string
	Predicate   Predicate
	Enabled     *bool
	Variation   string // overrides variation flow when non-empty
	Variables   map[string]interface{}
	Percentage  int
	Allocations []Allocation
}

// Force is a per-feature override table entry that fires above traffic/allocation in
// precedence when its predicate matches.
type Force struct {
	Predicate Predicate
	Enabled   *bool
	Variation string
	Variables map[string]interface{}
}

// Feature is the central targeting unit: its key, bucketing policy, traffic rules, forces,
// variations, and variable schema.
type Feature struct {
	Key             string
	Deprecated      bool
	BucketBy        BucketBy
	Ranges          []Range
	Required        []RequiredFeature
	Variations      []Variation
	VariablesSchema []VariableSchema
	Traffic         []Traffic
	Force           []Force
}

// VariationByValue looks up a variation by its value.
func (f *Feature) VariationByValue(value string) (*Variation, bool) {
	for i := range f.Variations {
		if f.Variations[i].Value == value {
			return &f.Variations[i], true
		}
	}
	return nil, false
}

// VariableSchemaByKey looks up a declared variable by key.
func (f *Feature) VariableSchemaByKey(key string) (*VariableSchema, bool) {
	for i := range f.VariablesSchema {
		if f.VariablesSchema[i].Key == key {
			return &f.VariablesSchema[i], true
		}
	}
	return nil, false
}

// Datafile is the immutable, atomically-swappable snapshot the evaluator reads from.
type Datafile struct {
	SchemaVersion int
	Revision      string
	Attributes    []Attribute
	Segments      map[string]Segment
	Features      map[string]Feature
}

// Empty returns a zero-value datafile with initialized maps, used before the first
// successful fetch so lookups never panic on a nil map.
func Empty() *Datafile {
	return &Datafile{Segments: map[string]Segment{}, Features: map[string]Feature{}}
}

// SegmentByKey looks up a segment by key.
func (d *Datafile) SegmentByKey(key string) (Segment, bool) {
	s, ok := d.Segments[key]
	return s, ok
}

// FeatureByKey looks up a feature by key.
func (d *Datafile) FeatureByKey(key string) (Feature, bool) {
	f, ok := d.Features[key]
	return f, ok
}
