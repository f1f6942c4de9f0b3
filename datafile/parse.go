package datafile

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseJSON decodes a wire datafile per spec §6: a top-level object of
// {schemaVersion, revision, attributes[], segments[], features[]}. Every operator,
// variable type tag, and condition shape accepted here must keep the exact identifier
// spellings declared in condition.go and datafile.go, since the wire format is part of the
// contract, not an implementation detail.
func ParseJSON(raw []byte) (*Datafile, error) {
	var w wireDatafile
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("datafile: %w", err)
	}

	d := &Datafile{
		SchemaVersion: w.SchemaVersion,
		Revision:      w.Revision,
		Segments:      make(map[string]Segment, len(w.Segments)),
		Features:      make(map[string]Feature, len(w.Features)),
	}
	for _, a := range w.Attributes {
		d.Attributes = append(d.Attributes, Attribute{Key: a.Key, Type: AttributeType(a.Type), Capture: a.Capture})
	}
	for _, s := range w.Segments {
		cond, err := s.Conditions.toCondition()
		if err != nil {
			return nil, fmt.Errorf("datafile: segment %q: %w", s.Key, err)
		}
		d.Segments[s.Key] = Segment{Key: s.Key, Condition: cond}
	}
	for _, f := range w.Features {
		feature, err := f.toFeature()
		if err != nil {
			return nil, fmt.Errorf("datafile: feature %q: %w", f.Key, err)
		}
		d.Features[f.Key] = feature
	}
	return d, nil
}

type wireDatafile struct {
	SchemaVersion int             `json:"schemaVersion"`
	Revision      string          `json:"revision"`
	Attributes    []wireAttribute `json:"attributes"`
	Segments      []wireSegment   `json:"segments"`
	Features      []wireFeature   `json:"features"`
}

type wireAttribute struct {
	Key     string `json:"key"`
	Type    string `json:"type"`
	Capture bool   `json:"capture"`
}

type wireSegment struct {
	Key        string        `json:"key"`
	Conditions wireCondition `json:"conditions"`
}

// wirePredicate is the selection-predicate shape shared by traffic rules, force entries,
// and variable overrides: either a condition tree or a segment selector (itself either a
// bare list of segment keys or an and/or/not combination of them, per spec §4.3).
type wirePredicate struct {
	Conditions *wireCondition   `json:"conditions,omitempty"`
	Segments   *wireSegmentNode `json:"segments,omitempty"`
}

func (p wirePredicate) toPredicate() (Predicate, error) {
	if p.Conditions != nil {
		cond, err := p.Conditions.toCondition()
		if err != nil {
			return Predicate{}, err
		}
		return Predicate{Condition: &cond}, nil
	}
	if p.Segments != nil {
		cond := p.Segments.toCondition()
		return Predicate{Condition: &cond}, nil
	}
	return Predicate{}, nil
}

// wireSegmentNode is the recursive wire shape of a "segments" selector: a bare segment key
// (string), a flat list of segment keys (implicit And, the common case), or an explicit
// and/or/not combination whose leaves are themselves segment keys or nested combinations.
type wireSegmentNode struct {
	Key string
	And []wireSegmentNode
	Or  []wireSegmentNode
	Not []wireSegmentNode
}

func (n *wireSegmentNode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '"':
		var key string
		if err := json.Unmarshal(data, &key); err != nil {
			return err
		}
		n.Key = key
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var items []wireSegmentNode
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		n.And = items
		return nil
	default:
		var obj struct {
			And []wireSegmentNode `json:"and,omitempty"`
			Or  []wireSegmentNode `json:"or,omitempty"`
			Not []wireSegmentNode `json:"not,omitempty"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		n.And, n.Or, n.Not = obj.And, obj.Or, obj.Not
		return nil
	}
}

func (n wireSegmentNode) toCondition() Condition {
	switch {
	case n.Key != "":
		return SegmentRef(n.Key)
	case n.And != nil:
		return And(segmentNodeSlice(n.And)...)
	case n.Or != nil:
		return Or(segmentNodeSlice(n.Or)...)
	case n.Not != nil:
		return Not(segmentNodeSlice(n.Not)...)
	default:
		return And()
	}
}

func segmentNodeSlice(in []wireSegmentNode) []Condition {
	out := make([]Condition, 0, len(in))
	for _, n := range in {
		out = append(out, n.toCondition())
	}
	return out
}

// wireCondition is the recursive JSON shape for Condition: exactly one of its branches is
// populated, selected by which field is present, rather than an explicit "kind" tag, to
// keep the wire format as close to hand-authored datafile JSON as possible.
type wireCondition struct {
	Attribute string          `json:"attribute,omitempty"`
	Operator  string          `json:"operator,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	And       []wireCondition `json:"and,omitempty"`
	Or        []wireCondition `json:"or,omitempty"`
	Not       []wireCondition `json:"not,omitempty"`
	Segment   string          `json:"segment,omitempty"`
}

// toCondition converts a wireCondition into the recursive Condition tagged union. A
// zero-value wireCondition (no field set) converts to the empty And, i.e. always-true.
func (w wireCondition) toCondition() (Condition, error) {
	switch {
	case w.Attribute != "":
		var v interface{}
		if len(w.Value) > 0 {
			if err := json.Unmarshal(w.Value, &v); err != nil {
				return Condition{}, fmt.Errorf("condition value: %w", err)
			}
		}
		return Leaf(w.Attribute, Operator(w.Operator), v), nil
	case w.And != nil:
		children, err := toConditionSlice(w.And)
		if err != nil {
			return Condition{}, err
		}
		return And(children...), nil
	case w.Or != nil:
		children, err := toConditionSlice(w.Or)
		if err != nil {
			return Condition{}, err
		}
		return Or(children...), nil
	case w.Not != nil:
		children, err := toConditionSlice(w.Not)
		if err != nil {
			return Condition{}, err
		}
		return Not(children...), nil
	case w.Segment != "":
		return SegmentRef(w.Segment), nil
	default:
		return And(), nil
	}
}

func toConditionSlice(in []wireCondition) ([]Condition, error) {
	out := make([]Condition, 0, len(in))
	for _, w := range in {
		c, err := w.toCondition()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type wireRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r wireRange) toRange() Range { return Range{Start: r.Start, End: r.End} }

type wireBucketBy struct {
	Type string   `json:"type"`
	Key  string   `json:"key,omitempty"`
	Keys []string `json:"keys,omitempty"`
}

func (b wireBucketBy) toBucketBy() BucketBy {
	keys := b.Keys
	if b.Key != "" {
		keys = []string{b.Key}
	}
	switch b.Type {
	case "and":
		return BucketBy{Kind: BucketByAnd, Keys: keys}
	case "or":
		return BucketBy{Kind: BucketByOr, Keys: keys}
	default:
		return BucketBy{Kind: BucketBySingle, Keys: keys}
	}
}

// wireRequiredFeature accepts either a bare feature key (the common case) or the full
// {key, variation} object form, per spec §3.
type wireRequiredFeature struct {
	Key       string `json:"key"`
	Variation string `json:"variation,omitempty"`
}

func (r *wireRequiredFeature) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var key string
		if err := json.Unmarshal(data, &key); err != nil {
			return err
		}
		r.Key = key
		return nil
	}
	type wireRequiredFeatureObject wireRequiredFeature
	var obj wireRequiredFeatureObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = wireRequiredFeature(obj)
	return nil
}

type wireVariableOverride struct {
	Value      json.RawMessage  `json:"value"`
	Conditions *wireCondition   `json:"conditions,omitempty"`
	Segments   *wireSegmentNode `json:"segments,omitempty"`
}

func (o wireVariableOverride) toVariableOverride() (VariableOverride, error) {
	var v interface{}
	if err := json.Unmarshal(o.Value, &v); err != nil {
		return VariableOverride{}, fmt.Errorf("override value: %w", err)
	}
	pred, err := wirePredicate{Conditions: o.Conditions, Segments: o.Segments}.toPredicate()
	if err != nil {
		return VariableOverride{}, err
	}
	return VariableOverride{Value: v, Predicate: pred}, nil
}

type wireVariableValue struct {
	Value     json.RawMessage        `json:"value"`
	Overrides []wireVariableOverride `json:"overrides,omitempty"`
}

func (v wireVariableValue) toVariableValue() (VariableValue, error) {
	var val interface{}
	if len(v.Value) > 0 {
		if err := json.Unmarshal(v.Value, &val); err != nil {
			return VariableValue{}, fmt.Errorf("variable value: %w", err)
		}
	}
	overrides := make([]VariableOverride, 0, len(v.Overrides))
	for _, o := range v.Overrides {
		vo, err := o.toVariableOverride()
		if err != nil {
			return VariableValue{}, err
		}
		overrides = append(overrides, vo)
	}
	return VariableValue{Value: val, Overrides: overrides}, nil
}

type wireVariation struct {
	Value     string                       `json:"value"`
	Variables map[string]wireVariableValue `json:"variables,omitempty"`
}

func (v wireVariation) toVariation() (Variation, error) {
	vars := make(map[string]VariableValue, len(v.Variables))
	for key, wv := range v.Variables {
		cv, err := wv.toVariableValue()
		if err != nil {
			return Variation{}, fmt.Errorf("variable %q: %w", key, err)
		}
		vars[key] = cv
	}
	return Variation{Value: v.Value, Variables: vars}, nil
}

type wireVariableSchema struct {
	Key          string          `json:"key"`
	Type         string          `json:"type"`
	DefaultValue json.RawMessage `json:"defaultValue"`
}

func (s wireVariableSchema) toVariableSchema() (VariableSchema, error) {
	var def interface{}
	if len(s.DefaultValue) > 0 {
		if err := json.Unmarshal(s.DefaultValue, &def); err != nil {
			return VariableSchema{}, fmt.Errorf("defaultValue: %w", err)
		}
	}
	return VariableSchema{Key: s.Key, Type: VariableType(s.Type), DefaultValue: def}, nil
}

type wireAllocation struct {
	Variation string    `json:"variation"`
	Range     wireRange `json:"range"`
}

type wireTraffic struct {
	Key         string                 `json:"key,omitempty"`
	Conditions  *wireCondition         `json:"conditions,omitempty"`
	Segments    *wireSegmentNode       `json:"segments,omitempty"`
	Enabled     *bool                  `json:"enabled,omitempty"`
	Variation   string                 `json:"variation,omitempty"`
	Variables   map[string]interface{} `json:"variables,omitempty"`
	Percentage  int                    `json:"percentage"`
	Allocations []wireAllocation       `json:"allocations,omitempty"`
}

func (t wireTraffic) toTraffic() (Traffic, error) {
	pred, err := wirePredicate{Conditions: t.Conditions, Segments: t.Segments}.toPredicate()
	if err != nil {
		return Traffic{}, err
	}
	allocations := make([]Allocation, 0, len(t.Allocations))
	for _, a := range t.Allocations {
		allocations = append(allocations, Allocation{Variation: a.Variation, Range: a.Range.toRange()})
	}
	return Traffic{
		Key:         t.Key,
		Predicate:   pred,
		Enabled:     t.Enabled,
		Variation:   t.Variation,
		Variables:   t.Variables,
		Percentage:  t.Percentage,
		Allocations: allocations,
	}, nil
}

type wireForce struct {
	Conditions *wireCondition         `json:"conditions,omitempty"`
	Segments   *wireSegmentNode       `json:"segments,omitempty"`
	Enabled    *bool                  `json:"enabled,omitempty"`
	Variation  string                 `json:"variation,omitempty"`
	Variables  map[string]interface{} `json:"variables,omitempty"`
}

func (f wireForce) toForce() (Force, error) {
	pred, err := wirePredicate{Conditions: f.Conditions, Segments: f.Segments}.toPredicate()
	if err != nil {
		return Force{}, err
	}
	return Force{Predicate: pred, Enabled: f.Enabled, Variation: f.Variation, Variables: f.Variables}, nil
}

type wireFeature struct {
	Key             string                `json:"key"`
	Deprecated      bool                  `json:"deprecated,omitempty"`
	BucketBy        wireBucketBy          `json:"bucketBy"`
	Ranges          []wireRange           `json:"ranges,omitempty"`
	Required        []wireRequiredFeature `json:"required,omitempty"`
	Variations      []wireVariation       `json:"variations,omitempty"`
	VariablesSchema []wireVariableSchema  `json:"variablesSchema,omitempty"`
	Traffic         []wireTraffic         `json:"traffic,omitempty"`
	Force           []wireForce           `json:"force,omitempty"`
}

func (f wireFeature) toFeature() (Feature, error) {
	feature := Feature{
		Key:        f.Key,
		Deprecated: f.Deprecated,
		BucketBy:   f.BucketBy.toBucketBy(),
	}
	for _, r := range f.Ranges {
		feature.Ranges = append(feature.Ranges, r.toRange())
	}
	for _, r := range f.Required {
		feature.Required = append(feature.Required, RequiredFeature{Key: r.Key, Variation: r.Variation})
	}
	for _, v := range f.Variations {
		variation, err := v.toVariation()
		if err != nil {
			return Feature{}, fmt.Errorf("variation %q: %w", v.Value, err)
		}
		feature.Variations = append(feature.Variations, variation)
	}
	for _, s := range f.VariablesSchema {
		schema, err := s.toVariableSchema()
		if err != nil {
			return Feature{}, fmt.Errorf("variable schema %q: %w", s.Key, err)
		}
		feature.VariablesSchema = append(feature.VariablesSchema, schema)
	}
	for _, t := range f.Traffic {
		traffic, err := t.toTraffic()
		if err != nil {
			return Feature{}, fmt.Errorf("traffic rule %q: %w", t.Key, err)
		}
		feature.Traffic = append(feature.Traffic, traffic)
	}
	for _, fc := range f.Force {
		force, err := fc.toForce()
		if err != nil {
			return Feature{}, fmt.Errorf("force entry: %w", err)
		}
		feature.Force = append(feature.Force, force)
	}
	return feature, nil
}
