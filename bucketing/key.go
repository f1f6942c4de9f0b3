package bucketing

import (
	"strings"

	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/targeting"
)

// DefaultSeparator is used to join bucket-key parts when the embedder does not configure
// a different one, per spec §4.2.
const DefaultSeparator = "."

// KeyHook lets the embedder rewrite the assembled bucket-key string before it is hashed.
type KeyHook func(feature datafile.Feature, ctx targeting.Context, raw string) string

// ValueHook lets the embedder post-adjust the integer bucket value returned by Hash, e.g.
// for testing.
type ValueHook func(feature datafile.Feature, ctx targeting.Context, value int) int

// BuildKey assembles the bucket-key string for feature+context per the feature's BucketBy
// policy (C2): single(k) uses the value at k if present; and(keys) appends every present
// key's value in order; or(keys) appends only the first present key's value, ignoring the
// rest even if present. The feature key is always appended as the final element.
func BuildKey(feature datafile.Feature, ctx targeting.Context, separator string, hook KeyHook) string {
	if separator == "" {
		separator = DefaultSeparator
	}

	var parts []string
	switch feature.BucketBy.Kind {
	case datafile.BucketBySingle:
		if len(feature.BucketBy.Keys) > 0 {
			if v, ok := ctx.Get(feature.BucketBy.Keys[0]); ok {
				parts = append(parts, v.CanonicalString())
			}
		}
	case datafile.BucketByAnd:
		for _, k := range feature.BucketBy.Keys {
			if v, ok := ctx.Get(k); ok {
				parts = append(parts, v.CanonicalString())
			}
		}
	case datafile.BucketByOr:
		for _, k := range feature.BucketBy.Keys {
			if v, ok := ctx.Get(k); ok {
				parts = append(parts, v.CanonicalString())
				break
			}
		}
	}
	parts = append(parts, feature.Key)

	raw := strings.Join(parts, separator)
	if hook != nil {
		raw = hook(feature, ctx, raw)
	}
	return raw
}

// Bucket computes the final bucket value for feature+context: build the key, hash it, and
// apply the optional value hook.
func Bucket(feature datafile.Feature, ctx targeting.Context, separator string, keyHook KeyHook, valueHook ValueHook) int {
	key := BuildKey(feature, ctx, separator, keyHook)
	value := Hash(key)
	if valueHook != nil {
		value = valueHook(feature, ctx, value)
	}
	return value
}
