package transmit

import (
	"sync"

	"github.com/engagekit/tracker/pkg/tracker/task"
)

// Delegate observes the delivery lifecycle of tracking tasks.
// Callbacks run on the transmitter's worker goroutine; implementations
// must not block.
type Delegate interface {
	// TrackingTaskDidComplete is called after a task's batch is delivered.
	TrackingTaskDidComplete(t *task.Task)

	// TrackingTaskDidFail is called after a task's batch exhausts its
	// delivery attempts.
	TrackingTaskDidFail(t *task.Task, err error)
}

// The process-wide delegate slot. It outlives any individual transmitter:
// a transmitter constructed after the slot was set picks the delegate up
// at construction, so SetDefaultDelegate may be called before the host
// application is configured.
var (
	defaultDelegateMu sync.RWMutex
	defaultDelegate   Delegate
)

// SetDefaultDelegate stores d in the process-wide slot. Passing nil clears
// the slot. Existing transmitters are not updated; the orchestration layer
// propagates into the active transmitter when one exists.
func SetDefaultDelegate(d Delegate) {
	defaultDelegateMu.Lock()
	defer defaultDelegateMu.Unlock()
	defaultDelegate = d
}

// DefaultDelegate returns the process-wide delegate, or nil.
func DefaultDelegate() Delegate {
	defaultDelegateMu.RLock()
	defer defaultDelegateMu.RUnlock()
	return defaultDelegate
}
