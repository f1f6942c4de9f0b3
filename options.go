package flagforge

import (
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/flagforge/go-flagforge/bucketing"
	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/evaluation"
	"github.com/flagforge/go-flagforge/targeting"
)

// DatafileFetchFunc overrides the default HTTP fetch for DatafileURL, per spec §6's
// handleDatafileFetch. It receives the configured URL and returns the raw datafile bytes.
type DatafileFetchFunc func(datafileURL string) ([]byte, error)

// ActivationListener receives the arguments an `activation` emission carries: the feature
// key, the resolved variation value, the intercepted context, the captured (capture-only)
// context, and the full VariationResult that produced the value.
type ActivationListener func(featureKey string, variationValue string, finalContext, capturedContext targeting.Context, result evaluation.VariationResult)

// Options configures a new Instance. At least one of Datafile, DatafileURL or DatafilePath
// must be set; everything else is optional.
type Options struct {
	// Datafile installs an already-parsed or already-fetched datafile inline at
	// construction time. When it is set, DatafileURL and DatafilePath are not read at
	// construction.
	Datafile *datafile.Datafile

	// DatafileURL is fetched (via HandleDatafileFetch, or the built-in HTTP fetcher when
	// that is nil) on every refresh, and at construction when Datafile is not set.
	DatafileURL string

	// HandleDatafileFetch overrides the built-in HTTP fetch used for DatafileURL.
	HandleDatafileFetch DatafileFetchFunc

	// DatafilePath, when set instead of DatafileURL, loads the datafile from a local path at
	// construction. Mutually exclusive with DatafileURL in practice, though both may be set;
	// DatafileURL takes precedence since it is checked first.
	DatafilePath string

	// WatchDatafileFile enables hot-reload via a filesystem watch on DatafilePath. Ignored
	// unless DatafilePath is set.
	WatchDatafileFile bool

	// BucketKeySeparator joins bucket-key parts (C2); defaults to "." when empty.
	BucketKeySeparator string

	// ConfigureBucketKey and ConfigureBucketValue are the C1/C2 extension hooks.
	ConfigureBucketKey   bucketing.KeyHook
	ConfigureBucketValue bucketing.ValueHook

	// InterceptContext is applied once per evaluation to derive the context used for
	// bucketing and traffic matching; forced-rule matching always uses the original
	// context regardless of this hook (spec §9).
	InterceptContext evaluation.InterceptContextFunc

	// InitialFeatures and StickyFeatures are the override tables described in spec §3/§4.6.
	// Sticky always short-circuits. Initial short-circuits the enabled decision only once the
	// instance is ready, and the variation and variable decisions only before it is ready.
	InitialFeatures evaluation.Overrides
	StickyFeatures  evaluation.Overrides

	// RefreshInterval, when non-zero, starts the periodic refresher automatically after the
	// construction-time fetch of DatafileURL succeeds. It is not started when Datafile is
	// set or when that first fetch fails.
	RefreshInterval time.Duration

	// Logger receives lifecycle, warning, and error messages per spec §7's severity table.
	// The zero value uses ldlog's default loggers.
	Logger ldlog.Loggers

	// Lifecycle listener convenience fields, equivalent to calling On(emitter.EventX, ...)
	// immediately after construction.
	OnReady      func()
	OnRefresh    func()
	OnUpdate     func()
	OnActivation ActivationListener

	// SessionConfiguration is opaque caller metadata carried on the Instance and returned
	// verbatim by GetSessionConfiguration; the engine does not interpret it.
	SessionConfiguration map[string]interface{}
}
