package flagforge

import (
	"github.com/flagforge/go-flagforge/datafile"
	"github.com/flagforge/go-flagforge/emitter"
	"github.com/flagforge/go-flagforge/evaluation"
	"github.com/flagforge/go-flagforge/internal/datasource"
)

// Refresh fetches the datafile once from DatafileURL and, on success, atomically replaces
// the current one. It is a no-op (warn-and-skip) if a refresh is already in progress, and a
// no-op (warn) if no DatafileURL was configured; both guard against the reentrancy hazard
// described in spec §5.
func (inst *Instance) Refresh() {
	inst.statusMu.Lock()
	if inst.refreshInProgress {
		inst.statusMu.Unlock()
		inst.logger.Warn("flagforge: refresh already in progress, skipping")
		return
	}
	if inst.datafileURL == "" {
		inst.statusMu.Unlock()
		inst.logger.Warn("flagforge: refresh called with no datafileUrl configured")
		return
	}
	inst.refreshInProgress = true
	inst.statusMu.Unlock()

	defer func() {
		inst.statusMu.Lock()
		inst.refreshInProgress = false
		inst.statusMu.Unlock()
	}()

	raw, err := inst.fetchRaw()
	if err != nil {
		inst.logger.Errorf("flagforge: refresh fetch failed: %s", err)
		return
	}
	parsed, err := datafile.ParseJSON(raw)
	if err != nil {
		inst.logger.Errorf("flagforge: refresh parse failed, keeping previous datafile: %s", err)
		return
	}

	previousRevision := inst.GetRevision()
	inst.df.Store(parsed)
	inst.markReady()
	inst.emitter.Emit(emitter.EventRefresh)
	if parsed.Revision != previousRevision {
		inst.emitter.Emit(emitter.EventUpdate)
	}
}

// StartRefreshing schedules Refresh at the configured RefreshInterval on a background
// goroutine. Calling it twice, or with no RefreshInterval configured, is a warn-and-no-op.
func (inst *Instance) StartRefreshing() {
	inst.pollerMu.Lock()
	defer inst.pollerMu.Unlock()
	if inst.poller != nil {
		inst.logger.Warn("flagforge: startRefreshing called while already refreshing")
		return
	}
	if inst.refreshInterval <= 0 {
		inst.logger.Warn("flagforge: startRefreshing called with no refreshInterval configured")
		return
	}
	inst.poller = datasource.NewPoller(inst.refreshInterval)
	inst.poller.Start(inst.Refresh)
}

// StopRefreshing cancels the periodic refresh started by StartRefreshing, if any.
func (inst *Instance) StopRefreshing() {
	inst.pollerMu.Lock()
	p := inst.poller
	inst.poller = nil
	inst.pollerMu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// SetDatafile installs a raw JSON datafile, replacing the current one on success. On a parse
// failure the previous datafile is retained and the error is logged, per spec §7's
// datafileParse error kind.
func (inst *Instance) SetDatafile(raw []byte) {
	parsed, err := datafile.ParseJSON(raw)
	if err != nil {
		inst.logger.Errorf("flagforge: setDatafile parse failed, keeping previous datafile: %s", err)
		return
	}
	inst.SetDatafileStruct(parsed)
}

// SetDatafileStruct installs an already-parsed datafile, replacing the current one.
func (inst *Instance) SetDatafileStruct(d *datafile.Datafile) {
	previousRevision := inst.GetRevision()
	inst.df.Store(d)
	inst.markReady()
	if d.Revision != previousRevision {
		inst.emitter.Emit(emitter.EventUpdate)
	}
}

// SetStickyFeatures replaces the sticky override table wholesale. A nil table clears it.
func (inst *Instance) SetStickyFeatures(overrides evaluation.Overrides) {
	inst.stickyMu.Lock()
	defer inst.stickyMu.Unlock()
	inst.sticky = cloneOverrides(overrides)
}
