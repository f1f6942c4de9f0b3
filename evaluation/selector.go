package evaluation

import (
	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/targeting"
)

// MatchTraffic is the traffic/allocation selector (C4). It iterates rules in declared
// order and returns the first whose predicate matches; tie-breaking is purely by
// declaration order. A rule with Percentage == 0 can still be "matched" here — downstream
// logic in the pipeline interprets the percentage.
func MatchTraffic(traffic []datafile.Traffic, ctx targeting.Context, segments targeting.SegmentLookup) (datafile.Traffic, bool) {
	for _, rule := range traffic {
		if targeting.MatchesPredicate(rule.Predicate, ctx, segments) {
			return rule, true
		}
	}
	return datafile.Traffic{}, false
}

// MatchAllocation iterates the matched traffic's allocations in declared order and returns
// the first one whose half-open range contains bucket.
func MatchAllocation(rule datafile.Traffic, bucket int) (datafile.Allocation, bool) {
	for _, a := range rule.Allocations {
		if a.Range.Contains(bucket) {
			return a, true
		}
	}
	return datafile.Allocation{}, false
}

// MatchRange reports whether bucket falls in any of the feature's ranges (used by
// evaluateFlag step 9 when the feature declares Ranges).
func MatchRange(ranges []datafile.Range, bucket int) bool {
	for _, r := range ranges {
		if r.Contains(bucket) {
			return true
		}
	}
	return false
}
