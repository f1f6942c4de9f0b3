package datafile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDatafile = `{
	"schemaVersion": 1,
	"revision": "rev-42",
	"attributes": [
		{"key": "userId", "type": "string", "capture": true},
		{"key": "plan", "type": "string", "capture": false}
	],
	"segments": [
		{
			"key": "beta-users",
			"conditions": {"attribute": "beta", "operator": "equals", "value": true}
		}
	],
	"features": [
		{
			"key": "checkout-redesign",
			"bucketBy": {"type": "single", "key": "userId"},
			"required": [{"key": "base-flag", "variation": "on"}],
			"force": [
				{
					"conditions": {"attribute": "plan", "operator": "equals", "value": "pro"},
					"enabled": true,
					"variation": "on"
				}
			],
			"traffic": [
				{
					"conditions": {
						"or": [
							{"segment": "beta-users"},
							{"attribute": "plan", "operator": "equals", "value": "pro"}
						]
					},
					"percentage": 100000,
					"allocations": [
						{"variation": "on", "range": {"start": 0, "end": 50000}},
						{"variation": "off", "range": {"start": 50000, "end": 100000}}
					]
				}
			],
			"variations": [
				{
					"value": "on",
					"variables": {
						"color": {
							"value": "blue",
							"overrides": [
								{
									"value": "red",
									"conditions": {"attribute": "plan", "operator": "equals", "value": "pro"}
								}
							]
						}
					}
				},
				{"value": "off"}
			],
			"variablesSchema": [
				{"key": "color", "type": "string", "defaultValue": "gray"}
			]
		}
	]
}`

func TestParseJSONTopLevel(t *testing.T) {
	d, err := ParseJSON([]byte(sampleDatafile))
	require.NoError(t, err)
	assert.Equal(t, 1, d.SchemaVersion)
	assert.Equal(t, "rev-42", d.Revision)
	require.Len(t, d.Attributes, 2)
	assert.Equal(t, Attribute{Key: "userId", Type: AttributeString, Capture: true}, d.Attributes[0])
}

func TestParseJSONSegment(t *testing.T) {
	d, err := ParseJSON([]byte(sampleDatafile))
	require.NoError(t, err)

	seg, ok := d.SegmentByKey("beta-users")
	require.True(t, ok)
	require.NotNil(t, seg.Condition)
	assert.Equal(t, KindLeaf, seg.Condition.Kind)
	assert.Equal(t, "beta", seg.Condition.Attribute)
}

func TestParseJSONFeatureShape(t *testing.T) {
	d, err := ParseJSON([]byte(sampleDatafile))
	require.NoError(t, err)

	f, ok := d.FeatureByKey("checkout-redesign")
	require.True(t, ok)
	assert.Equal(t, BucketBySingle, f.BucketBy.Kind)
	assert.Equal(t, []string{"userId"}, f.BucketBy.Keys)

	require.Len(t, f.Required, 1)
	assert.Equal(t, "base-flag", f.Required[0].Key)
	assert.Equal(t, "on", f.Required[0].Variation)

	require.Len(t, f.Force, 1)
	require.NotNil(t, f.Force[0].Enabled)
	assert.True(t, *f.Force[0].Enabled)
	assert.Equal(t, "on", f.Force[0].Variation)

	require.Len(t, f.Traffic, 1)
	traffic := f.Traffic[0]
	assert.Equal(t, 100000, traffic.Percentage)
	require.Len(t, traffic.Allocations, 2)
	assert.Equal(t, "on", traffic.Allocations[0].Variation)
	assert.Equal(t, Range{Start: 0, End: 50000}, traffic.Allocations[0].Range)

	require.NotNil(t, traffic.Predicate.Condition)
	assert.Equal(t, KindOr, traffic.Predicate.Condition.Kind)
	require.Len(t, traffic.Predicate.Condition.Children, 2)
	assert.Equal(t, KindSegment, traffic.Predicate.Condition.Children[0].Kind)
	assert.Equal(t, "beta-users", traffic.Predicate.Condition.Children[0].SegmentKey)

	require.Len(t, f.Variations, 2)
	onVariation, ok := f.VariationByValue("on")
	require.True(t, ok)
	colorVar, ok := onVariation.Variables["color"]
	require.True(t, ok)
	assert.Equal(t, "blue", colorVar.Value)
	require.Len(t, colorVar.Overrides, 1)
	assert.Equal(t, "red", colorVar.Overrides[0].Value)

	require.Len(t, f.VariablesSchema, 1)
	assert.Equal(t, VariableString, f.VariablesSchema[0].Type)
	assert.Equal(t, "gray", f.VariablesSchema[0].DefaultValue)
}

func TestParseJSONRejectsMalformedInput(t *testing.T) {
	_, err := ParseJSON([]byte("not json"))
	assert.Error(t, err)
}

func TestParseJSONRequiredAcceptsBareStringShorthand(t *testing.T) {
	raw := `{
		"schemaVersion": 1,
		"revision": "rev-1",
		"features": [
			{
				"key": "dependent-flag",
				"bucketBy": {"type": "single", "key": "userId"},
				"required": ["base-flag", {"key": "other-flag", "variation": "B"}],
				"traffic": [{"percentage": 100000, "enabled": true}]
			}
		]
	}`
	d, err := ParseJSON([]byte(raw))
	require.NoError(t, err)

	f, ok := d.FeatureByKey("dependent-flag")
	require.True(t, ok)
	require.Len(t, f.Required, 2)
	assert.Equal(t, "base-flag", f.Required[0].Key)
	assert.Equal(t, "", f.Required[0].Variation)
	assert.Equal(t, "other-flag", f.Required[1].Key)
	assert.Equal(t, "B", f.Required[1].Variation)
}

func TestParseJSONSegmentsAcceptsOrCombination(t *testing.T) {
	raw := `{
		"schemaVersion": 1,
		"revision": "rev-1",
		"segments": [
			{"key": "seg-a", "conditions": {"attribute": "a", "operator": "equals", "value": true}},
			{"key": "seg-b", "conditions": {"attribute": "b", "operator": "equals", "value": true}}
		],
		"features": [
			{
				"key": "flag-with-segment-or",
				"bucketBy": {"type": "single", "key": "userId"},
				"traffic": [
					{"segments": {"or": ["seg-a", "seg-b"]}, "percentage": 100000, "enabled": true}
				]
			}
		]
	}`
	d, err := ParseJSON([]byte(raw))
	require.NoError(t, err)

	f, ok := d.FeatureByKey("flag-with-segment-or")
	require.True(t, ok)
	require.Len(t, f.Traffic, 1)

	cond := f.Traffic[0].Predicate.Condition
	require.NotNil(t, cond)
	assert.Equal(t, KindOr, cond.Kind)
	require.Len(t, cond.Children, 2)
	assert.Equal(t, KindSegment, cond.Children[0].Kind)
	assert.Equal(t, "seg-a", cond.Children[0].SegmentKey)
	assert.Equal(t, "seg-b", cond.Children[1].SegmentKey)
}

func TestParseJSONSegmentsAcceptsFlatArrayAsImplicitAnd(t *testing.T) {
	raw := `{
		"schemaVersion": 1,
		"revision": "rev-1",
		"segments": [
			{"key": "seg-a", "conditions": {"attribute": "a", "operator": "equals", "value": true}},
			{"key": "seg-b", "conditions": {"attribute": "b", "operator": "equals", "value": true}}
		],
		"features": [
			{
				"key": "flag-with-segment-and",
				"bucketBy": {"type": "single", "key": "userId"},
				"traffic": [
					{"segments": ["seg-a", "seg-b"], "percentage": 100000, "enabled": true}
				]
			}
		]
	}`
	d, err := ParseJSON([]byte(raw))
	require.NoError(t, err)

	f, ok := d.FeatureByKey("flag-with-segment-and")
	require.True(t, ok)
	cond := f.Traffic[0].Predicate.Condition
	require.NotNil(t, cond)
	assert.Equal(t, KindAnd, cond.Kind)
	require.Len(t, cond.Children, 2)
	assert.Equal(t, "seg-a", cond.Children[0].SegmentKey)
	assert.Equal(t, "seg-b", cond.Children[1].SegmentKey)
}

func TestParseJSONEmptyConditionIsAlwaysTrue(t *testing.T) {
	raw := `{
		"schemaVersion": 1,
		"revision": "rev-1",
		"features": [
			{
				"key": "always-on",
				"bucketBy": {"type": "single", "key": "userId"},
				"traffic": [{"percentage": 100000}]
			}
		]
	}`
	d, err := ParseJSON([]byte(raw))
	require.NoError(t, err)

	f, ok := d.FeatureByKey("always-on")
	require.True(t, ok)
	require.Len(t, f.Traffic, 1)
	assert.Nil(t, f.Traffic[0].Predicate.Condition)
}
