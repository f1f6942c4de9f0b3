package targeting

import "github.com/flagforge/go-flagforge/datafile"

// SegmentLookup resolves a named segment, mirroring the DataProvider abstraction in the
// vendored LaunchDarkly evaluation engine: the matcher never owns segment storage, it is
// handed a lookup function by the caller (the evaluation pipeline, which has the current
// Datafile snapshot).
type SegmentLookup func(key string) (datafile.Segment, bool)

// Matches recursively evaluates a condition tree against a context. This function is pure:
// no mutation, no I/O.
func Matches(cond datafile.Condition, ctx Context, segments SegmentLookup) bool {
	switch cond.Kind {
	case datafile.KindLeaf:
		return matchLeaf(cond, ctx)
	case datafile.KindAnd:
		for _, child := range cond.Children {
			if !Matches(child, ctx, segments) {
				return false
			}
		}
		return true
	case datafile.KindOr:
		for _, child := range cond.Children {
			if Matches(child, ctx, segments) {
				return true
			}
		}
		return false
	case datafile.KindNot:
		// Not negates the conjunction of its children.
		for _, child := range cond.Children {
			if !Matches(child, ctx, segments) {
				return true
			}
		}
		return false
	case datafile.KindSegment:
		segment, ok := segments(cond.SegmentKey)
		if !ok {
			return false
		}
		return Matches(segment.Condition, ctx, segments)
	default:
		return false
	}
}

// MatchesPredicate evaluates a selection predicate; an empty predicate always matches.
func MatchesPredicate(p datafile.Predicate, ctx Context, segments SegmentLookup) bool {
	if p.IsEmpty() {
		return true
	}
	return Matches(*p.Condition, ctx, segments)
}

func matchLeaf(cond datafile.Condition, ctx Context) bool {
	v, present := ctx.Get(cond.Attribute)
	fn := operatorFn(cond.Operator)
	return fn(v, present, cond.Value)
}
