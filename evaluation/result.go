// Package evaluation implements the evaluation pipeline (C6), orchestrating the force
// resolver (C5) and traffic/allocation selector (C4) through the fixed precedence ladder
// described in spec §4.6. The pipeline never throws; every failure mode is encoded in a
// Reason.
package evaluation

import "github.com/flagforge/go-flagforge/variable"

// Reason discriminates why an evaluation produced the value it did. Reason is the
// discriminant of a tagged variant: FlagResult, VariationResult, and VariableResult each
// carry only the fields that are valid for the reason they hold, rather than one flat
// record with many optional fields (see spec §9, Design Notes).
type Reason string

// The fixed set of evaluation reasons, part of the wire contract.
const (
	ReasonNotFound     Reason = "notFound"
	ReasonNoVariations Reason = "noVariations"
	ReasonDisabled     Reason = "disabled"
	ReasonRequired     Reason = "required"
	ReasonOutOfRange   Reason = "outOfRange"
	ReasonForced       Reason = "forced"
	ReasonInitial      Reason = "initial"
	ReasonSticky       Reason = "sticky"
	ReasonRule         Reason = "rule"
	ReasonAllocated    Reason = "allocated"
	ReasonDefaulted    Reason = "defaulted"
	ReasonOverride     Reason = "override"
	// ReasonError is the source's "no-match" terminal sentinel, preserved for wire
	// compatibility even though a name like ReasonNoMatch would be clearer; see the Open
	// Question in spec §9.
	ReasonError Reason = "error"
)

// FlagResult is the outcome of evaluateFlag.
type FlagResult struct {
	FeatureKey string
	Reason     Reason
	Enabled    bool
}

// VariationResult is the outcome of evaluateVariation.
type VariationResult struct {
	FeatureKey string
	Reason     Reason
	Enabled    bool
	Variation  string // valid only when Reason implies a variation was resolved
}

// VariableResult is the outcome of evaluateVariable.
type VariableResult struct {
	FeatureKey  string
	VariableKey string
	Reason      Reason
	Enabled     bool
	Value       variable.Value // valid only when Reason implies a value was resolved
}
