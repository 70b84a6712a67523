// Package task provides the asynchronously-completed handle returned from
// every tracking call.
//
// A Task binds one event to the visitor identity and scene it was tracked
// under. The tracker creates it, the transmitter completes it; after handoff
// nothing else writes to it. Any number of goroutines may inspect a task or
// wait on Done().
package task

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/engagekit/tracker/pkg/tracker/event"
)

// State represents the delivery state of a task.
type State string

// Task state constants.
const (
	StatePending  State = "pending"
	StateInflight State = "inflight"
	StateSent     State = "sent"
	StateFailed   State = "failed"
)

// Task is one unit of tracking work.
//
// The creator never mutates a task after handing it to the transmitter;
// BeginDelivery, Complete, and Fail belong exclusively to the delivering
// side. Terminal transitions are one-way: a sent or failed task never
// changes state again.
type Task struct {
	id        string
	evt       *event.Event
	visitorID string
	sceneID   string
	createdAt time.Time

	mu          sync.Mutex
	state       State
	err         error
	completedAt time.Time
	done        chan struct{}
}

// New creates a task binding evt to a visitor and an optional scene.
// The visitor ID is copied here; later changes to the global visitor
// identity do not affect a task already created.
func New(evt *event.Event, visitorID, sceneID string) *Task {
	return &Task{
		id:        uuid.New().String(),
		evt:       evt,
		visitorID: visitorID,
		sceneID:   sceneID,
		createdAt: time.Now(),
		state:     StatePending,
		done:      make(chan struct{}),
	}
}

// ID returns the unique task identifier.
func (t *Task) ID() string {
	return t.id
}

// Event returns the event this task delivers.
func (t *Task) Event() *event.Event {
	return t.evt
}

// VisitorID returns the visitor identity resolved at creation time.
func (t *Task) VisitorID() string {
	return t.visitorID
}

// SceneID returns the scene identifier the task is routed under,
// or "" for the default scene.
func (t *Task) SceneID() string {
	return t.sceneID
}

// CreatedAt returns when the task was created.
func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

// State returns the current delivery state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the delivery error for a failed task, nil otherwise.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// CompletedAt returns when the task reached a terminal state,
// or the zero time if it has not.
func (t *Task) CompletedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}

// Done returns a channel closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// BeginDelivery marks the task inflight. A no-op once terminal.
func (t *Task) BeginDelivery() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StatePending {
		t.state = StateInflight
	}
}

// Complete marks the task sent and releases Done waiters.
// A no-op if the task is already terminal.
func (t *Task) Complete() {
	t.finish(StateSent, nil)
}

// Fail marks the task failed with err and releases Done waiters.
// A no-op if the task is already terminal.
func (t *Task) Fail(err error) {
	t.finish(StateFailed, err)
}

func (t *Task) finish(state State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateSent || t.state == StateFailed {
		return
	}
	t.state = state
	t.err = err
	t.completedAt = time.Now()
	close(t.done)
}
