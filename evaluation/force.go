package evaluation

import (
	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/targeting"
)

// MatchForce is the force/override resolver (C5): it returns the first entry in the
// feature's force list whose predicate matches via the targeting matcher, evaluated
// against the original (non-intercepted) context per spec §4.6 step 6.
func MatchForce(forces []datafile.Force, ctx targeting.Context, segments targeting.SegmentLookup) (datafile.Force, bool) {
	for _, f := range forces {
		if targeting.MatchesPredicate(f.Predicate, ctx, segments) {
			return f, true
		}
	}
	return datafile.Force{}, false
}
