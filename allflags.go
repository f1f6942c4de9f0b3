package flagforge

import "github.com/flagforge/go-flagforge/targeting"

// FeatureState is one feature's evaluated state as recorded by AllFeatures, modeled on the
// teacher's flagstate.FlagState.
type FeatureState struct {
	Enabled   bool   `json:"enabled"`
	Variation string `json:"variation,omitempty"`
	Reason    string `json:"reason"`
}

// AllFeatures is a snapshot of every known feature's evaluated state for a given context, for
// bootstrapping a downstream cache, modeled on the teacher's flagstate.AllFlags.
type AllFeatures struct {
	features map[string]FeatureState
}

// GetFeature looks up one feature's recorded state.
func (a AllFeatures) GetFeature(featureKey string) (FeatureState, bool) {
	f, ok := a.features[featureKey]
	return f, ok
}

// ToMap returns a plain map copy of every recorded feature state.
func (a AllFeatures) ToMap() map[string]FeatureState {
	out := make(map[string]FeatureState, len(a.features))
	for k, v := range a.features {
		out[k] = v
	}
	return out
}

// AllFeatures evaluates every feature in the current datafile for ctx and returns a snapshot
// of their state, for bootstrapping a downstream cache without one round-trip per feature.
func (inst *Instance) AllFeatures(ctx targeting.Context) AllFeatures {
	ev := inst.evaluator()
	snapshot := ev.Datafile

	states := make(map[string]FeatureState, len(snapshot.Features))
	for key := range snapshot.Features {
		flagResult := ev.EvaluateFlag(key, ctx)
		state := FeatureState{Enabled: flagResult.Enabled, Reason: string(flagResult.Reason)}
		if flagResult.Enabled {
			variationResult := ev.EvaluateVariation(key, ctx)
			state.Variation = variationResult.Variation
			state.Reason = string(variationResult.Reason)
		}
		states[key] = state
	}
	return AllFeatures{features: states}
}
