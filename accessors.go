package flagforge

import (
	"github.com/flagforge/go-flagforge/emitter"
	"github.com/flagforge/go-flagforge/evaluation"
	"github.com/flagforge/go-flagforge/targeting"
	"github.com/flagforge/go-flagforge/variable"
)

// IsReady reports whether the instance has installed a datafile at least once, either
// inline at construction or via a successful fetch/SetDatafile call.
func (inst *Instance) IsReady() bool {
	inst.statusMu.Lock()
	defer inst.statusMu.Unlock()
	return inst.ready
}

// GetRevision returns the current datafile's opaque revision string.
func (inst *Instance) GetRevision() string {
	return inst.datafileSnapshot().Revision
}

// IsEnabled evaluates featureKey and returns whether it is enabled for ctx.
func (inst *Instance) IsEnabled(featureKey string, ctx targeting.Context) bool {
	return inst.IsEnabledDetail(featureKey, ctx).Enabled
}

// IsEnabledDetail is IsEnabled's *Detail variant, returning the full FlagResult.
func (inst *Instance) IsEnabledDetail(featureKey string, ctx targeting.Context) evaluation.FlagResult {
	return inst.evaluator().EvaluateFlag(featureKey, ctx)
}

// GetVariation evaluates featureKey's variation for ctx, returning ("", false) if none
// resolved.
func (inst *Instance) GetVariation(featureKey string, ctx targeting.Context) (string, bool) {
	result := inst.GetVariationDetail(featureKey, ctx)
	return result.Variation, result.Variation != ""
}

// GetVariationDetail is GetVariation's *Detail variant, returning the full VariationResult.
func (inst *Instance) GetVariationDetail(featureKey string, ctx targeting.Context) evaluation.VariationResult {
	return inst.evaluator().EvaluateVariation(featureKey, ctx)
}

// GetVariable evaluates a typed variable, returning its untyped Value union.
func (inst *Instance) GetVariable(featureKey, variableKey string, ctx targeting.Context) (variable.Value, bool) {
	result := inst.GetVariableDetail(featureKey, variableKey, ctx)
	return result.Value, !result.Value.IsZero()
}

// GetVariableDetail is GetVariable's *Detail variant, returning the full VariableResult.
func (inst *Instance) GetVariableDetail(featureKey, variableKey string, ctx targeting.Context) evaluation.VariableResult {
	return inst.evaluator().EvaluateVariable(featureKey, variableKey, ctx)
}

// GetVariableBoolean is GetVariable coerced to Boolean; ok is false on any type mismatch or
// miss, per spec §7's "typed accessors return none on mismatch" rule.
func (inst *Instance) GetVariableBoolean(featureKey, variableKey string, ctx targeting.Context) (bool, bool) {
	v, ok := inst.GetVariable(featureKey, variableKey, ctx)
	if !ok {
		return false, false
	}
	return v.AsBoolean()
}

// GetVariableString is GetVariable coerced to String.
func (inst *Instance) GetVariableString(featureKey, variableKey string, ctx targeting.Context) (string, bool) {
	v, ok := inst.GetVariable(featureKey, variableKey, ctx)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetVariableInteger is GetVariable coerced to Integer.
func (inst *Instance) GetVariableInteger(featureKey, variableKey string, ctx targeting.Context) (int64, bool) {
	v, ok := inst.GetVariable(featureKey, variableKey, ctx)
	if !ok {
		return 0, false
	}
	return v.AsInteger()
}

// GetVariableDouble is GetVariable coerced to Double.
func (inst *Instance) GetVariableDouble(featureKey, variableKey string, ctx targeting.Context) (float64, bool) {
	v, ok := inst.GetVariable(featureKey, variableKey, ctx)
	if !ok {
		return 0, false
	}
	return v.AsDouble()
}

// GetVariableArray is GetVariable coerced to StringArray.
func (inst *Instance) GetVariableArray(featureKey, variableKey string, ctx targeting.Context) ([]string, bool) {
	v, ok := inst.GetVariable(featureKey, variableKey, ctx)
	if !ok {
		return nil, false
	}
	return v.AsStringArray()
}

// GetVariableObject is GetVariable coerced to Object.
func (inst *Instance) GetVariableObject(featureKey, variableKey string, ctx targeting.Context) (map[string]interface{}, bool) {
	v, ok := inst.GetVariable(featureKey, variableKey, ctx)
	if !ok {
		return nil, false
	}
	return v.AsObject()
}

// GetVariableJSON is GetVariable coerced to JSON, returning the raw JSON-encoded string.
func (inst *Instance) GetVariableJSON(featureKey, variableKey string, ctx targeting.Context) (string, bool) {
	v, ok := inst.GetVariable(featureKey, variableKey, ctx)
	if !ok {
		return "", false
	}
	return v.AsJSON()
}

// Activate performs a variation evaluation and, if a variation value resolves, emits
// `activation` with the feature key, the value, the intercepted context, a captured context
// containing only capture-flagged attributes, and the full VariationResult. It returns the
// variation value, or ("", false) if none resolved.
func (inst *Instance) Activate(featureKey string, ctx targeting.Context) (string, bool) {
	result := inst.evaluator().EvaluateVariation(featureKey, ctx)
	if result.Variation == "" {
		return "", false
	}

	finalCtx := ctx
	if inst.interceptContext != nil {
		finalCtx = inst.interceptContext(featureKey, ctx)
	}
	captured := inst.capturedContext(finalCtx)

	inst.emitter.Emit(emitter.EventActivation, featureKey, result.Variation, finalCtx, captured, result)
	return result.Variation, true
}

func (inst *Instance) capturedContext(ctx targeting.Context) targeting.Context {
	captured := targeting.Context{}
	for _, attr := range inst.datafileSnapshot().Attributes {
		if !attr.Capture {
			continue
		}
		if v, ok := ctx.Get(attr.Key); ok {
			captured[attr.Key] = v
		}
	}
	return captured
}

// On subscribes fn to event, returning a handle RemoveListener accepts. Equivalent to
// AddListener; both names are exposed to match the abstract API surface in spec §6.
func (inst *Instance) On(event string, fn emitter.Listener) uint64 { return inst.emitter.On(event, fn) }

// AddListener is an alias for On.
func (inst *Instance) AddListener(event string, fn emitter.Listener) uint64 { return inst.On(event, fn) }

// RemoveListener unsubscribes the listener previously returned by On/AddListener.
func (inst *Instance) RemoveListener(event string, id uint64) { inst.emitter.RemoveListener(event, id) }

// Off is an alias for RemoveListener.
func (inst *Instance) Off(event string, id uint64) { inst.RemoveListener(event, id) }

// RemoveAllListeners removes every listener for event, or every event's listeners when event
// is empty.
func (inst *Instance) RemoveAllListeners(event string) { inst.emitter.RemoveAllListeners(event) }

// GetSessionConfiguration returns the opaque metadata passed via Options.SessionConfiguration.
func (inst *Instance) GetSessionConfiguration() map[string]interface{} {
	return inst.sessionConfiguration
}
