// Package emitter implements the evaluation engine's publish-subscribe surface (C8): a
// synchronous, callback-based event bus for the fixed lifecycle events plus arbitrary
// caller-defined ones. It is grounded on the locking and copy-before-dispatch discipline of
// the teacher's genericBroadcaster (internal/broadcasters.go), but dispatches by calling
// listener functions directly on the emitting goroutine instead of fanning out over
// buffered channels — callers that need async delivery are expected to hop to their own
// goroutine inside the listener.
package emitter

import "sync"

// The fixed lifecycle event names a caller may subscribe to without declaring their own.
const (
	EventReady      = "ready"
	EventRefresh    = "refresh"
	EventUpdate     = "update"
	EventActivation = "activation"
)

// Listener receives whatever arguments Emit was called with.
type Listener func(args ...interface{})

type entry struct {
	id uint64
	fn Listener
}

// Emitter is a synchronous, in-order, multi-event pub/sub dispatcher. The zero value is not
// ready to use; construct with New.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string][]entry
	nextID    uint64
}

// New returns a ready-to-use Emitter.
func New() *Emitter {
	return &Emitter{listeners: map[string][]entry{}}
}

// AddListener subscribes fn to event, returning a handle that RemoveListener accepts.
// Listeners fire in registration order.
func (e *Emitter) AddListener(event string, fn Listener) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], entry{id: id, fn: fn})
	return id
}

// On is an alias for AddListener, matching the event-emitter naming the corpus favors.
func (e *Emitter) On(event string, fn Listener) uint64 { return e.AddListener(event, fn) }

// RemoveListener unsubscribes the listener previously returned by AddListener/On.
func (e *Emitter) RemoveListener(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.listeners[event]
	for i, en := range entries {
		if en.id == id {
			e.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// RemoveAllListeners removes every listener for event, or every listener for every event
// when event is empty.
func (e *Emitter) RemoveAllListeners(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if event == "" {
		e.listeners = map[string][]entry{}
		return
	}
	delete(e.listeners, event)
}

// Emit calls every listener subscribed to event, in registration order, synchronously on
// the calling goroutine. The subscriber list is copied under the lock before dispatch so a
// listener is free to add or remove listeners of its own without deadlocking.
func (e *Emitter) Emit(event string, args ...interface{}) {
	e.mu.Lock()
	entries := make([]entry, len(e.listeners[event]))
	copy(entries, e.listeners[event])
	e.mu.Unlock()

	for _, en := range entries {
		en.fn(args...)
	}
}

// HasListeners reports whether event has at least one subscriber.
func (e *Emitter) HasListeners(event string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event]) > 0
}
