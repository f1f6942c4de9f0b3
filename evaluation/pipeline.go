package evaluation

import (
	"github.com/flagforge/go-flagforge/bucketing"
	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/targeting"
	"github.com/flagforge/go-flagforge/variable"
)

// Override is one caller-supplied sticky or initial table entry; both tables share this
// shape, per spec §3 ("same shape for both, different meaning").
type Override struct {
	Enabled   *bool
	Variation *string
	Variables map[string]variable.Value
}

// Overrides is a per-feature-key override table (sticky or initial).
type Overrides map[string]Override

// InterceptContextFunc lets the embedder derive a context used for bucketing/traffic
// matching, distinct from the original context used for forced-rule matching. It is
// called once per evaluation and must be pure.
type InterceptContextFunc func(featureKey string, ctx targeting.Context) targeting.Context

// DeprecationLogger receives a notice when a deprecated feature is evaluated. It is the
// pipeline's only side effect, matching spec §4.6 step 4 ("log at warn level; continue").
type DeprecationLogger func(featureKey string)

// Hooks bundles the embedder-supplied extension points threaded through every evaluation.
type Hooks struct {
	BucketKeySeparator   string
	ConfigureBucketKey   bucketing.KeyHook
	ConfigureBucketValue bucketing.ValueHook
	InterceptContext     InterceptContextFunc
	OnDeprecated         DeprecationLogger
}

// Evaluator is the stateless evaluation pipeline (C6). It holds no mutable state of its
// own; Datafile, Sticky, Initial, and Ready are supplied by the caller (the Instance) for
// each call, so the pipeline can be constructed fresh per evaluation without cost beyond
// a struct literal.
type Evaluator struct {
	Datafile *datafile.Datafile
	Sticky   Overrides
	Initial  Overrides
	Ready    bool
	Hooks    Hooks
}

func (e *Evaluator) segmentLookup() targeting.SegmentLookup {
	return func(key string) (datafile.Segment, bool) { return e.Datafile.SegmentByKey(key) }
}

func (e *Evaluator) intercept(featureKey string, ctx targeting.Context) targeting.Context {
	if e.Hooks.InterceptContext == nil {
		return ctx
	}
	return e.Hooks.InterceptContext(featureKey, ctx)
}

func (e *Evaluator) bucket(feature datafile.Feature, ctx targeting.Context) int {
	return bucketing.Bucket(feature, ctx, e.Hooks.BucketKeySeparator, e.Hooks.ConfigureBucketKey, e.Hooks.ConfigureBucketValue)
}

// EvaluateFlag implements the precedence ladder in spec §4.6.
func (e *Evaluator) EvaluateFlag(featureKey string, ctx targeting.Context) FlagResult {
	return e.evaluateFlag(featureKey, ctx, map[string]bool{})
}

func (e *Evaluator) evaluateFlag(featureKey string, ctx targeting.Context, visiting map[string]bool) FlagResult {
	// 1. Sticky.
	if o, ok := e.Sticky[featureKey]; ok && o.Enabled != nil {
		return FlagResult{FeatureKey: featureKey, Reason: ReasonSticky, Enabled: *o.Enabled}
	}

	// 2. Initial fires only while ready, for flag evaluation specifically — this asymmetry
	// with evaluateVariation/evaluateVariable (which check initial only when NOT ready) is
	// preserved verbatim from the source; see the Open Question in spec §9.
	if e.Ready {
		if o, ok := e.Initial[featureKey]; ok && o.Enabled != nil {
			return FlagResult{FeatureKey: featureKey, Reason: ReasonInitial, Enabled: *o.Enabled}
		}
	}

	// 3. Not found.
	feature, found := e.Datafile.FeatureByKey(featureKey)
	if !found {
		return FlagResult{FeatureKey: featureKey, Reason: ReasonNotFound, Enabled: false}
	}

	// 4. Deprecation warning.
	if feature.Deprecated && e.Hooks.OnDeprecated != nil {
		e.Hooks.OnDeprecated(featureKey)
	}

	// 5. interceptContext.
	finalContext := e.intercept(featureKey, ctx)

	// 6. Forced, evaluated on the ORIGINAL context.
	segments := e.segmentLookup()
	if forced, ok := MatchForce(feature.Force, ctx, segments); ok && forced.Enabled != nil {
		return FlagResult{FeatureKey: featureKey, Reason: ReasonForced, Enabled: *forced.Enabled}
	}

	// 7. Required.
	if !visiting[featureKey] {
		visiting[featureKey] = true
		defer delete(visiting, featureKey)
		for _, req := range feature.Required {
			if !e.requiredSatisfied(req, ctx, visiting) {
				return FlagResult{FeatureKey: featureKey, Reason: ReasonRequired, Enabled: false}
			}
		}
	}

	// 8. Bucket value on finalContext.
	bucketValue := e.bucket(feature, finalContext)

	// 9. Traffic match on finalContext.
	matchedTraffic, trafficOK := MatchTraffic(feature.Traffic, finalContext, segments)

	if len(feature.Ranges) > 0 {
		if MatchRange(feature.Ranges, bucketValue) {
			enabled := true
			if trafficOK && matchedTraffic.Enabled != nil {
				enabled = *matchedTraffic.Enabled
			}
			return FlagResult{FeatureKey: featureKey, Reason: ReasonAllocated, Enabled: enabled}
		}
		return FlagResult{FeatureKey: featureKey, Reason: ReasonOutOfRange, Enabled: false}
	}

	if !trafficOK {
		return FlagResult{FeatureKey: featureKey, Reason: ReasonError, Enabled: false}
	}

	// 10. Explicit enabled override on the matched traffic rule.
	if matchedTraffic.Enabled != nil {
		return FlagResult{FeatureKey: featureKey, Reason: ReasonOverride, Enabled: *matchedTraffic.Enabled}
	}

	// 11. Percentage check (exclusive upper bound, distinct from the half-open allocation
	// ranges above — see the range-semantics Open Question in spec §9).
	if bucketValue < matchedTraffic.Percentage {
		return FlagResult{FeatureKey: featureKey, Reason: ReasonRule, Enabled: true}
	}

	// 12. No-match terminal sentinel, preserved as "error" for wire compatibility.
	return FlagResult{FeatureKey: featureKey, Reason: ReasonError, Enabled: false}
}

func (e *Evaluator) requiredSatisfied(req datafile.RequiredFeature, ctx targeting.Context, visiting map[string]bool) bool {
	if visiting[req.Key] {
		// A cycle in the required graph can never be satisfied; treat as unmet rather
		// than recursing forever.
		return false
	}
	flagResult := e.evaluateFlag(req.Key, ctx, visiting)
	if !flagResult.Enabled {
		return false
	}
	if req.Variation == "" {
		return true
	}
	variationResult := e.evaluateVariation(req.Key, ctx, visiting)
	return variationResult.Variation == req.Variation
}

// EvaluateVariation implements spec §4.6's evaluateVariation.
func (e *Evaluator) EvaluateVariation(featureKey string, ctx targeting.Context) VariationResult {
	return e.evaluateVariation(featureKey, ctx, map[string]bool{})
}

func (e *Evaluator) evaluateVariation(featureKey string, ctx targeting.Context, visiting map[string]bool) VariationResult {
	flagResult := e.evaluateFlag(featureKey, ctx, visiting)
	if !flagResult.Enabled {
		return VariationResult{FeatureKey: featureKey, Reason: ReasonDisabled, Enabled: false}
	}

	if o, ok := e.Sticky[featureKey]; ok && o.Variation != nil {
		return VariationResult{FeatureKey: featureKey, Reason: ReasonSticky, Enabled: true, Variation: *o.Variation}
	}

	// Variation/variable initial paths fire only when NOT ready — the opposite of the flag
	// path above. This is the exact asymmetry flagged as an Open Question in spec §9.
	if !e.Ready {
		if o, ok := e.Initial[featureKey]; ok && o.Variation != nil {
			return VariationResult{FeatureKey: featureKey, Reason: ReasonInitial, Enabled: true, Variation: *o.Variation}
		}
	}

	feature, found := e.Datafile.FeatureByKey(featureKey)
	if !found {
		return VariationResult{FeatureKey: featureKey, Reason: ReasonNotFound, Enabled: false}
	}
	if len(feature.Variations) == 0 {
		return VariationResult{FeatureKey: featureKey, Reason: ReasonNoVariations, Enabled: false}
	}

	segments := e.segmentLookup()
	if forced, ok := MatchForce(feature.Force, ctx, segments); ok && forced.Variation != "" {
		if _, exists := feature.VariationByValue(forced.Variation); exists {
			return VariationResult{FeatureKey: featureKey, Reason: ReasonForced, Enabled: true, Variation: forced.Variation}
		}
	}

	finalContext := e.intercept(featureKey, ctx)
	bucketValue := e.bucket(feature, finalContext)
	matchedTraffic, trafficOK := MatchTraffic(feature.Traffic, finalContext, segments)
	if !trafficOK {
		return VariationResult{FeatureKey: featureKey, Reason: ReasonError, Enabled: true}
	}

	if matchedTraffic.Variation != "" {
		if _, exists := feature.VariationByValue(matchedTraffic.Variation); exists {
			return VariationResult{FeatureKey: featureKey, Reason: ReasonRule, Enabled: true, Variation: matchedTraffic.Variation}
		}
	}

	if allocation, ok := MatchAllocation(matchedTraffic, bucketValue); ok {
		if _, exists := feature.VariationByValue(allocation.Variation); exists {
			return VariationResult{FeatureKey: featureKey, Reason: ReasonAllocated, Enabled: true, Variation: allocation.Variation}
		}
	}

	return VariationResult{FeatureKey: featureKey, Reason: ReasonError, Enabled: true}
}

// EvaluateVariable implements spec §4.6's evaluateVariable.
func (e *Evaluator) EvaluateVariable(featureKey, variableKey string, ctx targeting.Context) VariableResult {
	visiting := map[string]bool{}
	flagResult := e.evaluateFlag(featureKey, ctx, visiting)
	if !flagResult.Enabled {
		return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonDisabled}
	}

	if o, ok := e.Sticky[featureKey]; ok {
		if v, ok := o.Variables[variableKey]; ok {
			return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonSticky, Enabled: true, Value: v}
		}
	}
	if !e.Ready {
		if o, ok := e.Initial[featureKey]; ok {
			if v, ok := o.Variables[variableKey]; ok {
				return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonInitial, Enabled: true, Value: v}
			}
		}
	}

	feature, found := e.Datafile.FeatureByKey(featureKey)
	if !found {
		return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonNotFound}
	}
	schema, found := feature.VariableSchemaByKey(variableKey)
	if !found {
		return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonNotFound}
	}

	segments := e.segmentLookup()
	if forced, ok := MatchForce(feature.Force, ctx, segments); ok {
		if raw, ok := forced.Variables[variableKey]; ok {
			if v, ok := variable.FromInterface(variable.Type(schema.Type), raw); ok {
				return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonForced, Enabled: true, Value: v}
			}
		}
	}

	finalContext := e.intercept(featureKey, ctx)
	bucketValue := e.bucket(feature, finalContext)
	matchedTraffic, trafficOK := MatchTraffic(feature.Traffic, finalContext, segments)
	if trafficOK {
		if raw, ok := matchedTraffic.Variables[variableKey]; ok {
			if v, ok := variable.FromInterface(variable.Type(schema.Type), raw); ok {
				return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonRule, Enabled: true, Value: v}
			}
		}

		if allocation, ok := MatchAllocation(matchedTraffic, bucketValue); ok {
			if variation, exists := feature.VariationByValue(allocation.Variation); exists {
				if varValue, ok := variation.Variables[variableKey]; ok {
					if override, ok := matchVariableOverride(varValue, finalContext, segments); ok {
						if v, ok := variable.FromInterface(variable.Type(schema.Type), override); ok {
							return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonOverride, Enabled: true, Value: v}
						}
					}
					if v, ok := variable.FromInterface(variable.Type(schema.Type), varValue.Value); ok {
						return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonAllocated, Enabled: true, Value: v}
					}
				}
			}
		}
	}

	if v, ok := variable.FromInterface(variable.Type(schema.Type), schema.DefaultValue); ok {
		return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonDefaulted, Enabled: true, Value: v}
	}
	return VariableResult{FeatureKey: featureKey, VariableKey: variableKey, Reason: ReasonDefaulted, Enabled: true}
}

// matchVariableOverride checks a variation's variable overrides list in order, matching
// either its conditions tree or its segments list (both normalized to a Predicate); the
// first match wins.
func matchVariableOverride(v datafile.VariableValue, ctx targeting.Context, segments targeting.SegmentLookup) (interface{}, bool) {
	for _, override := range v.Overrides {
		if targeting.MatchesPredicate(override.Predicate, ctx, segments) {
			return override.Value, true
		}
	}
	return nil, false
}
