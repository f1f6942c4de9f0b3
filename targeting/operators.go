package targeting

import (
	"regexp"
	"strings"
	"time"

	"github.com/blang/semver"

	"github.com/flagforge/go-flagforge/datafile"
)

// opFn is the shape of a leaf comparison, modeled on the vendored LaunchDarkly evaluation
// engine's opFn: a pure function of (contextValue, conditionValue) -> bool.
type opFn func(ctxValue AttrValue, present bool, conditionValue interface{}) bool

var versionNumericComponentsRegex = regexp.MustCompile(`^\d+(\.\d+)?(\.\d+)?`)

var allOps = map[datafile.Operator]opFn{
	datafile.OperatorEquals:             operatorEqualsFn,
	datafile.OperatorNotEquals:          operatorNotEqualsFn,
	datafile.OperatorIn:                 operatorInFn,
	datafile.OperatorNotIn:              operatorNotInFn,
	datafile.OperatorContains:           operatorContainsFn,
	datafile.OperatorNotContains:        operatorNotContainsFn,
	datafile.OperatorStartsWith:         operatorStartsWithFn,
	datafile.OperatorEndsWith:           operatorEndsWithFn,
	datafile.OperatorGreaterThan:        numeric(func(a, b float64) bool { return a > b }),
	datafile.OperatorGreaterThanOrEqual: numeric(func(a, b float64) bool { return a >= b }),
	datafile.OperatorLessThan:           numeric(func(a, b float64) bool { return a < b }),
	datafile.OperatorLessThanOrEqual:    numeric(func(a, b float64) bool { return a <= b }),
	datafile.OperatorBefore:             date(func(a, b time.Time) bool { return a.Before(b) }),
	datafile.OperatorAfter:              date(func(a, b time.Time) bool { return a.After(b) }),
	datafile.OperatorSemverEquals:       semverOp(func(a, b semver.Version) bool { return a.EQ(b) }),
	datafile.OperatorSemverNotEquals:    semverOp(func(a, b semver.Version) bool { return !a.EQ(b) }),
	datafile.OperatorSemverGreaterThan:  semverOp(func(a, b semver.Version) bool { return a.GT(b) }),
	datafile.OperatorSemverGreaterOrEq:  semverOp(func(a, b semver.Version) bool { return a.GTE(b) }),
	datafile.OperatorSemverLessThan:     semverOp(func(a, b semver.Version) bool { return a.LT(b) }),
	datafile.OperatorSemverLessOrEq:     semverOp(func(a, b semver.Version) bool { return a.LTE(b) }),
	datafile.OperatorMatches:            operatorMatchesFn,
	datafile.OperatorExists:             operatorExistsFn,
	datafile.OperatorNotExists:          operatorNotExistsFn,
}

func operatorFn(op datafile.Operator) opFn {
	if fn, ok := allOps[op]; ok {
		return fn
	}
	return operatorNoneFn
}

func operatorNoneFn(AttrValue, bool, interface{}) bool { return false }

func operatorExistsFn(_ AttrValue, present bool, _ interface{}) bool { return present }

func operatorNotExistsFn(_ AttrValue, present bool, _ interface{}) bool { return !present }

func operatorEqualsFn(v AttrValue, present bool, cond interface{}) bool {
	if !present {
		return false
	}
	return valueEqual(v, cond)
}

func operatorNotEqualsFn(v AttrValue, present bool, cond interface{}) bool {
	if !present {
		return false
	}
	return !valueEqual(v, cond)
}

// operatorInFn treats cond as a membership list: true if v equals any element.
func operatorInFn(v AttrValue, present bool, cond interface{}) bool {
	if !present {
		return false
	}
	list, ok := cond.([]interface{})
	if !ok {
		return valueEqual(v, cond)
	}
	for _, c := range list {
		if valueEqual(v, c) {
			return true
		}
	}
	return false
}

func operatorNotInFn(v AttrValue, present bool, cond interface{}) bool {
	if !present {
		return false
	}
	return !operatorInFn(v, present, cond)
}

func stringOp(fn func(ctx, cond string) bool) opFn {
	return func(v AttrValue, present bool, cond interface{}) bool {
		if !present || v.Kind != AttrString {
			return false
		}
		cs, ok := cond.(string)
		if !ok {
			return false
		}
		return fn(v.Str, cs)
	}
}

var operatorStartsWithFn = stringOp(strings.HasPrefix)
var operatorEndsWithFn = stringOp(strings.HasSuffix)
var operatorContainsFn = stringOp(strings.Contains)

func operatorNotContainsFn(v AttrValue, present bool, cond interface{}) bool {
	if !present || v.Kind != AttrString {
		return false
	}
	return !operatorContainsFn(v, present, cond)
}

func operatorMatchesFn(v AttrValue, present bool, cond interface{}) bool {
	if !present || v.Kind != AttrString {
		return false
	}
	pattern, ok := cond.(string)
	if !ok {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(v.Str)
}

func numeric(fn func(a, b float64) bool) opFn {
	return func(v AttrValue, present bool, cond interface{}) bool {
		if !present {
			return false
		}
		a, ok := numericValue(v)
		if !ok {
			return false
		}
		b, ok := numericLiteral(cond)
		if !ok {
			return false
		}
		return fn(a, b)
	}
}

func numericValue(v AttrValue) (float64, bool) {
	switch v.Kind {
	case AttrInteger:
		return float64(v.Int), true
	case AttrDouble:
		return v.Double, true
	default:
		return 0, false
	}
}

func numericLiteral(raw interface{}) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func date(fn func(a, b time.Time) bool) opFn {
	return func(v AttrValue, present bool, cond interface{}) bool {
		if !present {
			return false
		}
		a, ok := dateValue(v)
		if !ok {
			return false
		}
		b, ok := dateLiteral(cond)
		if !ok {
			return false
		}
		return fn(a, b)
	}
}

func dateValue(v AttrValue) (time.Time, bool) {
	if v.Kind == AttrDate {
		return v.Date, true
	}
	if v.Kind == AttrString {
		if t, err := time.Parse(time.RFC3339Nano, v.Str); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func dateLiteral(raw interface{}) (time.Time, bool) {
	if s, ok := raw.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func semverOp(fn func(a, b semver.Version) bool) opFn {
	return func(v AttrValue, present bool, cond interface{}) bool {
		if !present || v.Kind != AttrString {
			return false
		}
		cs, ok := cond.(string)
		if !ok {
			return false
		}
		a, ok := parseSemver(v.Str)
		if !ok {
			return false
		}
		b, ok := parseSemver(cs)
		if !ok {
			return false
		}
		return fn(a, b)
	}
}

// parseSemver parses a semver string, tolerating short forms like "1.2" or "1" by padding
// with zero components before giving up, matching common client-SDK semver leniency.
func parseSemver(s string) (semver.Version, bool) {
	if v, err := semver.Parse(s); err == nil {
		return v, true
	}
	match := versionNumericComponentsRegex.FindStringSubmatch(s)
	if match == nil {
		return semver.Version{}, false
	}
	padded := match[0]
	for i := 1; i < len(match); i++ {
		if match[i] == "" {
			padded += ".0"
		}
	}
	padded += s[len(match[0]):]
	if v, err := semver.Parse(padded); err == nil {
		return v, true
	}
	return semver.Version{}, false
}

func valueEqual(v AttrValue, cond interface{}) bool {
	switch v.Kind {
	case AttrString:
		s, ok := cond.(string)
		return ok && s == v.Str
	case AttrInteger:
		f, ok := numericLiteral(cond)
		return ok && f == float64(v.Int)
	case AttrDouble:
		f, ok := numericLiteral(cond)
		return ok && f == v.Double
	case AttrBoolean:
		b, ok := cond.(bool)
		return ok && b == v.Bool
	case AttrDate:
		t, ok := dateLiteral(cond)
		return ok && t.Equal(v.Date)
	default:
		return false
	}
}
