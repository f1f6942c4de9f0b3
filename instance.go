package flagforge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"

	"github.com/flagforge/go-flagforge/bucketing"
	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/emitter"
	"github.com/flagforge/go-flagforge/evaluation"
	"github.com/flagforge/go-flagforge/internal/datasource"
	"github.com/flagforge/go-flagforge/targeting"
)

// Instance is the engine's lifecycle and public API surface (C7). Construct one with
// NewInstance; the zero value is not usable.
type Instance struct {
	df atomic.Value // holds *datafile.Datafile; read once per evaluation per spec §5

	statusMu          sync.Mutex
	ready             bool
	refreshInProgress bool

	stickyMu sync.RWMutex
	sticky   evaluation.Overrides

	initialMu sync.RWMutex
	initial   evaluation.Overrides

	datafileURL string
	handleFetch DatafileFetchFunc

	datafilePath      string
	watchDatafileFile bool
	fileWatcher       *datasource.FileWatcher

	separator            string
	configureBucketKey   bucketing.KeyHook
	configureBucketValue bucketing.ValueHook
	interceptContext     evaluation.InterceptContextFunc

	refreshInterval time.Duration
	pollerMu        sync.Mutex
	poller          *datasource.Poller

	logger  ldlog.Loggers
	emitter *emitter.Emitter

	sessionConfiguration map[string]interface{}
}

// NewInstance constructs and starts an Instance per spec §4.7. Construction fails only when
// none of Datafile, DatafileURL and DatafilePath is supplied.
func NewInstance(opts Options) (*Instance, error) {
	if opts.Datafile == nil && opts.DatafileURL == "" && opts.DatafilePath == "" {
		return nil, ErrMissingDatafileOptions
	}

	inst := &Instance{
		datafileURL:          opts.DatafileURL,
		handleFetch:          opts.HandleDatafileFetch,
		datafilePath:         opts.DatafilePath,
		watchDatafileFile:    opts.WatchDatafileFile,
		separator:            opts.BucketKeySeparator,
		configureBucketKey:   opts.ConfigureBucketKey,
		configureBucketValue: opts.ConfigureBucketValue,
		interceptContext:     opts.InterceptContext,
		sticky:               cloneOverrides(opts.StickyFeatures),
		initial:              cloneOverrides(opts.InitialFeatures),
		refreshInterval:      opts.RefreshInterval,
		logger:               opts.Logger,
		emitter:              emitter.New(),
		sessionConfiguration: opts.SessionConfiguration,
	}
	if inst.separator == "" {
		inst.separator = bucketing.DefaultSeparator
	}
	inst.df.Store(datafile.Empty())

	wireConvenienceListeners(inst, opts)

	if opts.Datafile != nil {
		inst.df.Store(opts.Datafile)
		inst.markReady()
		return inst, nil
	}

	if opts.DatafileURL != "" {
		go inst.initialFetch()
		return inst, nil
	}

	go inst.initialFileLoad()
	return inst, nil
}

func wireConvenienceListeners(inst *Instance, opts Options) {
	if opts.OnReady != nil {
		inst.emitter.On(emitter.EventReady, func(args ...interface{}) { opts.OnReady() })
	}
	if opts.OnRefresh != nil {
		inst.emitter.On(emitter.EventRefresh, func(args ...interface{}) { opts.OnRefresh() })
	}
	if opts.OnUpdate != nil {
		inst.emitter.On(emitter.EventUpdate, func(args ...interface{}) { opts.OnUpdate() })
	}
	if opts.OnActivation != nil {
		inst.emitter.On(emitter.EventActivation, func(args ...interface{}) {
			if len(args) != 5 {
				return
			}
			featureKey, _ := args[0].(string)
			value, _ := args[1].(string)
			finalCtx, _ := args[2].(targeting.Context)
			capturedCtx, _ := args[3].(targeting.Context)
			result, _ := args[4].(evaluation.VariationResult)
			opts.OnActivation(featureKey, value, finalCtx, capturedCtx, result)
		})
	}
}

func cloneOverrides(in evaluation.Overrides) evaluation.Overrides {
	out := make(evaluation.Overrides, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// datafileSnapshot returns the current atomically-published snapshot.
func (inst *Instance) datafileSnapshot() *datafile.Datafile {
	return inst.df.Load().(*datafile.Datafile)
}

func (inst *Instance) markReady() {
	inst.statusMu.Lock()
	alreadyReady := inst.ready
	inst.ready = true
	inst.statusMu.Unlock()
	if !alreadyReady {
		inst.emitter.Emit(emitter.EventReady)
	}
}

func (inst *Instance) initialFetch() {
	raw, err := inst.fetchRaw()
	if err != nil {
		inst.logger.Errorf("flagforge: initial datafile fetch failed: %s", err)
		return
	}
	parsed, err := datafile.ParseJSON(raw)
	if err != nil {
		inst.logger.Errorf("flagforge: initial datafile parse failed: %s", err)
		return
	}
	inst.df.Store(parsed)
	inst.markReady()
	if inst.refreshInterval > 0 {
		inst.StartRefreshing()
	}
}

func (inst *Instance) fetchRaw() ([]byte, error) {
	if inst.handleFetch != nil {
		return inst.handleFetch(inst.datafileURL)
	}
	body, _, err := datasource.NewFetcher(inst.datafileURL, nil).Fetch()
	return body, err
}

// initialFileLoad loads the configured DatafilePath once at construction and, if
// WatchDatafileFile was set, starts the filesystem watcher that reloads it on every write.
func (inst *Instance) initialFileLoad() {
	if err := inst.reloadFromFile(); err != nil {
		inst.logger.Errorf("flagforge: initial datafile load from %q failed: %s", inst.datafilePath, err)
		return
	}
	if inst.watchDatafileFile {
		watcher, err := datasource.NewFileWatcher(inst.datafilePath, func() {
			if err := inst.reloadFromFile(); err != nil {
				inst.logger.Errorf("flagforge: reload of %q failed, keeping previous datafile: %s", inst.datafilePath, err)
			}
		})
		if err != nil {
			inst.logger.Errorf("flagforge: watching %q failed: %s", inst.datafilePath, err)
			return
		}
		inst.fileWatcher = watcher
	}
}

// reloadFromFile reads and parses DatafilePath, installing it on success. It is the shared
// implementation behind both the initial load and every fsnotify-triggered reload.
func (inst *Instance) reloadFromFile() error {
	raw, err := datasource.ReadFile(inst.datafilePath)
	if err != nil {
		return err
	}
	parsed, err := datafile.ParseJSON(raw)
	if err != nil {
		return err
	}
	inst.SetDatafileStruct(parsed)
	return nil
}

// evaluator builds a fresh, stateless Evaluator snapshot for one evaluation call, per
// spec §5: "an evaluation reads the [datafile] reference once at entry."
func (inst *Instance) evaluator() *evaluation.Evaluator {
	inst.stickyMu.RLock()
	sticky := inst.sticky
	inst.stickyMu.RUnlock()

	inst.initialMu.RLock()
	initial := inst.initial
	inst.initialMu.RUnlock()

	inst.statusMu.Lock()
	ready := inst.ready
	inst.statusMu.Unlock()

	return &evaluation.Evaluator{
		Datafile: inst.datafileSnapshot(),
		Sticky:   sticky,
		Initial:  initial,
		Ready:    ready,
		Hooks: evaluation.Hooks{
			BucketKeySeparator:   inst.separator,
			ConfigureBucketKey:   inst.configureBucketKey,
			ConfigureBucketValue: inst.configureBucketValue,
			InterceptContext:     inst.interceptContext,
			OnDeprecated: func(featureKey string) {
				inst.logger.Warnf("flagforge: feature %q is deprecated", featureKey)
			},
		},
	}
}

// Close releases every background resource the Instance may be holding: the refresh
// poller, if started, and the file watcher, if WatchDatafileFile was set. Safe to call on
// an Instance that never started either.
func (inst *Instance) Close() error {
	inst.StopRefreshing()
	if inst.fileWatcher != nil {
		return inst.fileWatcher.Close()
	}
	return nil
}
