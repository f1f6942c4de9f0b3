package flagforge

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/evaluation"
	"github.com/flagforge/go-flagforge/targeting"
)

func enabled(b bool) *bool { return &b }

func singleBy(key string) datafile.BucketBy {
	return datafile.BucketBy{Kind: datafile.BucketBySingle, Keys: []string{key}}
}

func newInstanceWithFeatures(t *testing.T, features ...datafile.Feature) *Instance {
	t.Helper()
	df := datafile.Empty()
	df.Revision = "rev-1"
	for _, f := range features {
		df.Features[f.Key] = f
	}
	inst, err := NewInstance(Options{Datafile: df})
	require.NoError(t, err)
	return inst
}

func TestNewInstanceRequiresDatafileOrURL(t *testing.T) {
	_, err := NewInstance(Options{})
	assert.ErrorIs(t, err, ErrMissingDatafileOptions)
}

func TestNewInstanceWithInlineDatafileIsImmediatelyReady(t *testing.T) {
	inst := newInstanceWithFeatures(t)
	assert.True(t, inst.IsReady())
	assert.Equal(t, "rev-1", inst.GetRevision())
}

func TestStableBucketingIsDeterministic(t *testing.T) {
	feature := datafile.Feature{
		Key:      "stable-flag",
		BucketBy: singleBy("userId"),
		Traffic: []datafile.Traffic{
			{Percentage: 100000, Enabled: enabled(true)},
		},
	}
	inst := newInstanceWithFeatures(t, feature)
	ctx := targeting.Context{"userId": targeting.StringAttr("user-123")}

	first := inst.IsEnabled("stable-flag", ctx)
	second := inst.IsEnabled("stable-flag", ctx)
	assert.Equal(t, first, second)
	assert.True(t, first)
}

func TestRangeAllocationAcrossInstance(t *testing.T) {
	feature := datafile.Feature{
		Key:      "checkout-variant",
		BucketBy: singleBy("userId"),
		Traffic: []datafile.Traffic{
			{
				Percentage: 100000,
				Allocations: []datafile.Allocation{
					{Variation: "control", Range: datafile.Range{Start: 0, End: 50000}},
					{Variation: "treatment", Range: datafile.Range{Start: 50000, End: 100000}},
				},
			},
		},
		Variations: []datafile.Variation{{Value: "control"}, {Value: "treatment"}},
	}
	inst := newInstanceWithFeatures(t, feature)

	variation, ok := inst.GetVariation("checkout-variant", targeting.Context{"userId": targeting.StringAttr("user-123")})
	require.True(t, ok)
	assert.Contains(t, []string{"control", "treatment"}, variation)
}

func TestForcedOverrideViaAccessors(t *testing.T) {
	feature := datafile.Feature{
		Key:      "admin-flag",
		BucketBy: singleBy("userId"),
		Force: []datafile.Force{
			{
				Predicate: datafile.Predicate{Condition: condPtr(datafile.Leaf("userId", datafile.OperatorEquals, "admin"))},
				Enabled:   enabled(true),
				Variation: "on",
			},
		},
		Variations: []datafile.Variation{{Value: "on"}, {Value: "off"}},
	}
	inst := newInstanceWithFeatures(t, feature)
	ctx := targeting.Context{"userId": targeting.StringAttr("admin")}

	detail := inst.IsEnabledDetail("admin-flag", ctx)
	assert.Equal(t, evaluation.ReasonForced, detail.Reason)
	assert.True(t, detail.Enabled)

	variation, ok := inst.GetVariation("admin-flag", ctx)
	require.True(t, ok)
	assert.Equal(t, "on", variation)
}

func condPtr(c datafile.Condition) *datafile.Condition { return &c }

func TestRequiredDependencyDisablesDependent(t *testing.T) {
	base := datafile.Feature{
		Key:      "base-flag",
		BucketBy: singleBy("userId"),
		Traffic: []datafile.Traffic{
			{Percentage: 100000, Enabled: enabled(false)},
		},
	}
	dependent := datafile.Feature{
		Key:      "dependent-flag",
		BucketBy: singleBy("userId"),
		Required: []datafile.RequiredFeature{{Key: "base-flag"}},
		Traffic: []datafile.Traffic{
			{Percentage: 100000, Enabled: enabled(true)},
		},
	}
	inst := newInstanceWithFeatures(t, base, dependent)
	ctx := targeting.Context{"userId": targeting.StringAttr("user-1")}

	assert.False(t, inst.IsEnabled("dependent-flag", ctx))
	detail := inst.IsEnabledDetail("dependent-flag", ctx)
	assert.Equal(t, evaluation.ReasonRequired, detail.Reason)
}

func TestStickyFeaturesWinOverDatafile(t *testing.T) {
	feature := datafile.Feature{
		Key:      "sticky-flag",
		BucketBy: singleBy("userId"),
		Traffic: []datafile.Traffic{
			{Percentage: 100000, Enabled: enabled(false)},
		},
	}
	variation := "forced-variation"
	inst, err := NewInstance(Options{
		Datafile: func() *datafile.Datafile {
			df := datafile.Empty()
			df.Features[feature.Key] = feature
			return df
		}(),
		StickyFeatures: evaluation.Overrides{
			"sticky-flag": {Enabled: enabled(true), Variation: &variation},
		},
	})
	require.NoError(t, err)

	ctx := targeting.Context{"userId": targeting.StringAttr("user-1")}
	assert.True(t, inst.IsEnabled("sticky-flag", ctx))

	got, ok := inst.GetVariation("sticky-flag", ctx)
	require.True(t, ok)
	assert.Equal(t, variation, got)
}

func TestSetDatafileStructUpdatesRevisionAndEmitsUpdate(t *testing.T) {
	inst := newInstanceWithFeatures(t)
	updateFired := false
	inst.On("update", func(args ...interface{}) { updateFired = true })

	next := datafile.Empty()
	next.Revision = "rev-2"
	inst.SetDatafileStruct(next)

	assert.Equal(t, "rev-2", inst.GetRevision())
	assert.True(t, updateFired)
}

func TestSetDatafileStructSameRevisionDoesNotEmitUpdate(t *testing.T) {
	inst := newInstanceWithFeatures(t)
	updateFired := false
	inst.On("update", func(args ...interface{}) { updateFired = true })

	next := datafile.Empty()
	next.Revision = "rev-1"
	inst.SetDatafileStruct(next)

	assert.False(t, updateFired)
}

func TestActivateEmitsActivationWithCapturedContext(t *testing.T) {
	feature := datafile.Feature{
		Key:      "tracked-flag",
		BucketBy: singleBy("userId"),
		Traffic: []datafile.Traffic{
			{Percentage: 100000, Enabled: enabled(true)},
		},
		Variations: []datafile.Variation{{Value: "v1"}},
		Force: []datafile.Force{
			{Enabled: enabled(true), Variation: "v1"},
		},
	}
	df := datafile.Empty()
	df.Attributes = []datafile.Attribute{{Key: "plan", Type: datafile.AttributeString, Capture: true}}
	df.Features[feature.Key] = feature

	inst, err := NewInstance(Options{Datafile: df})
	require.NoError(t, err)

	var gotFeatureKey, gotValue string
	var gotCaptured targeting.Context
	inst.On("activation", func(args ...interface{}) {
		gotFeatureKey = args[0].(string)
		gotValue = args[1].(string)
		gotCaptured = args[3].(targeting.Context)
	})

	ctx := targeting.Context{"userId": targeting.StringAttr("user-1"), "plan": targeting.StringAttr("pro")}
	value, ok := inst.Activate("tracked-flag", ctx)
	require.True(t, ok)
	assert.Equal(t, "v1", value)
	assert.Equal(t, "tracked-flag", gotFeatureKey)
	assert.Equal(t, "v1", gotValue)

	capturedPlan, ok := gotCaptured.Get("plan")
	require.True(t, ok)
	assert.Equal(t, targeting.StringAttr("pro"), capturedPlan)
	_, hasUserID := gotCaptured.Get("userId")
	assert.False(t, hasUserID, "userId was not declared capture:true")
}

func TestAllFeaturesSnapshotsEveryFeature(t *testing.T) {
	f1 := datafile.Feature{
		Key:      "flag-a",
		BucketBy: singleBy("userId"),
		Traffic:  []datafile.Traffic{{Percentage: 100000, Enabled: enabled(true)}},
	}
	f2 := datafile.Feature{
		Key:      "flag-b",
		BucketBy: singleBy("userId"),
		Traffic:  []datafile.Traffic{{Percentage: 100000, Enabled: enabled(false)}},
	}
	inst := newInstanceWithFeatures(t, f1, f2)
	ctx := targeting.Context{"userId": targeting.StringAttr("user-1")}

	all := inst.AllFeatures(ctx)
	stateA, ok := all.GetFeature("flag-a")
	require.True(t, ok)
	assert.True(t, stateA.Enabled)

	stateB, ok := all.GetFeature("flag-b")
	require.True(t, ok)
	assert.False(t, stateB.Enabled)
}

const sampleFileDatafile = `{"schemaVersion":1,"revision":"file-rev-1","features":[]}`

func TestNewInstanceLoadsFromDatafilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datafile.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleFileDatafile), 0o644))

	inst, err := NewInstance(Options{DatafilePath: path})
	require.NoError(t, err)
	defer inst.Close()

	require.Eventually(t, inst.IsReady, time.Second, 5*time.Millisecond)
	assert.Equal(t, "file-rev-1", inst.GetRevision())
}

func TestRefreshOverDatafileURLEmitsReadyThenRefreshThenUpdate(t *testing.T) {
	var callCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&callCount, 1)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json")
		if n <= 2 {
			_, _ = w.Write([]byte(`{"schemaVersion":1,"revision":"r1","features":[]}`))
		} else {
			_, _ = w.Write([]byte(`{"schemaVersion":1,"revision":"r2","features":[]}`))
		}
	}))
	defer server.Close()

	var readyCount, refreshCount, updateCount int32
	inst, err := NewInstance(Options{
		DatafileURL: server.URL,
		OnReady:     func() { atomic.AddInt32(&readyCount, 1) },
		OnRefresh:   func() { atomic.AddInt32(&refreshCount, 1) },
		OnUpdate:    func() { atomic.AddInt32(&updateCount, 1) },
	})
	require.NoError(t, err)
	defer inst.Close()

	require.Eventually(t, inst.IsReady, time.Second, 5*time.Millisecond)
	assert.Equal(t, "r1", inst.GetRevision())
	assert.EqualValues(t, 1, atomic.LoadInt32(&readyCount))

	inst.Refresh()
	assert.Equal(t, "r1", inst.GetRevision())
	assert.EqualValues(t, 1, atomic.LoadInt32(&refreshCount))
	assert.EqualValues(t, 0, atomic.LoadInt32(&updateCount))

	inst.Refresh()
	assert.Equal(t, "r2", inst.GetRevision())
	assert.EqualValues(t, 2, atomic.LoadInt32(&refreshCount))
	assert.EqualValues(t, 1, atomic.LoadInt32(&updateCount))
	assert.EqualValues(t, 1, atomic.LoadInt32(&readyCount), "ready must not re-fire on refresh")
}

func TestNewInstanceWatchesDatafilePathForChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datafile.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleFileDatafile), 0o644))

	inst, err := NewInstance(Options{DatafilePath: path, WatchDatafileFile: true})
	require.NoError(t, err)
	defer inst.Close()

	require.Eventually(t, inst.IsReady, time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion":1,"revision":"file-rev-2","features":[]}`), 0o644))

	assert.Eventually(t, func() bool { return inst.GetRevision() == "file-rev-2" }, 2*time.Second, 10*time.Millisecond)
}
