package datafile

// ConditionKind discriminates the branches of Condition, which is modeled as a proper
// recursive tagged union rather than a polymorphic open type: Leaf | And | Or | Not | Segment.
type ConditionKind string

const (
	// KindLeaf tests a single attribute against an operator and value.
	KindLeaf ConditionKind = "leaf"
	// KindAnd is conjunction of Children; an empty And is true.
	KindAnd ConditionKind = "and"
	// KindOr is disjunction of Children; an empty Or is false.
	KindOr ConditionKind = "or"
	// KindNot negates the conjunction of Children.
	KindNot ConditionKind = "not"
	// KindSegment references a named segment by key. A bare list of segment references in
	// the wire format is normalized into Segment nodes wrapped in an implicit And, which is
	// why group-segment lists can themselves contain And/Or/Not over segment keys: they are
	// just Condition trees over KindSegment leaves.
	KindSegment ConditionKind = "segment"
)

// Operator identifies a leaf comparison. The operator set is fixed and must match across
// implementations, per spec, since it is part of the wire contract.
type Operator string

// The fixed operator set evaluated by the targeting package.
const (
	OperatorEquals             Operator = "equals"
	OperatorNotEquals          Operator = "notEquals"
	OperatorIn                 Operator = "in"
	OperatorNotIn              Operator = "notIn"
	OperatorContains           Operator = "contains"
	OperatorNotContains        Operator = "notContains"
	OperatorStartsWith         Operator = "startsWith"
	OperatorEndsWith           Operator = "endsWith"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorBefore             Operator = "before"
	OperatorAfter              Operator = "after"
	OperatorSemverEquals       Operator = "semverEquals"
	OperatorSemverNotEquals    Operator = "semverNotEquals"
	OperatorSemverGreaterThan  Operator = "semverGreaterThan"
	OperatorSemverGreaterOrEq  Operator = "semverGreaterThanOrEqual"
	OperatorSemverLessThan     Operator = "semverLessThan"
	OperatorSemverLessOrEq     Operator = "semverLessThanOrEqual"
	OperatorMatches            Operator = "matches"
	OperatorExists             Operator = "exists"
	OperatorNotExists          Operator = "notExists"
)

// Condition is the recursive condition tree node described in spec §3.
type Condition struct {
	Kind ConditionKind

	// Populated when Kind == KindLeaf.
	Attribute string
	Operator  Operator
	Value     interface{}

	// Populated when Kind == KindAnd | KindOr | KindNot.
	Children []Condition

	// Populated when Kind == KindSegment.
	SegmentKey string
}

// Leaf constructs a leaf condition.
func Leaf(attribute string, op Operator, value interface{}) Condition {
	return Condition{Kind: KindLeaf, Attribute: attribute, Operator: op, Value: value}
}

// And constructs a conjunction node.
func And(children ...Condition) Condition { return Condition{Kind: KindAnd, Children: children} }

// Or constructs a disjunction node.
func Or(children ...Condition) Condition { return Condition{Kind: KindOr, Children: children} }

// Not constructs a negation node. Per spec, Not negates the conjunction of its children.
func Not(children ...Condition) Condition { return Condition{Kind: KindNot, Children: children} }

// SegmentRef constructs a reference to a named segment.
func SegmentRef(key string) Condition { return Condition{Kind: KindSegment, SegmentKey: key} }

// SegmentList builds the implicit-And normalization of a bare "list of segment references"
// selection predicate, per spec §3/§4.3.
func SegmentList(keys ...string) Condition {
	children := make([]Condition, 0, len(keys))
	for _, k := range keys {
		children = append(children, SegmentRef(k))
	}
	return And(children...)
}

// Predicate is the selection predicate shape shared by Traffic rules, Force entries, and
// Variable Overrides: "either a condition tree or a list of segment references". Both forms
// collapse to the same Condition tree, so Predicate is simply an optional Condition.
type Predicate struct {
	Condition *Condition
}

// IsEmpty reports whether the predicate has no condition at all, in which case it is
// considered always-true (an empty selection predicate matches everything).
func (p Predicate) IsEmpty() bool { return p.Condition == nil }
