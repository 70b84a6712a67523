// Package inapp manages in-app message overlays shown atop the host
// application.
//
// The tracking core signals a scene transition every time a view event is
// fired. The Manager turns that signal into overlay behavior: the overlay
// currently shown in the transitioning scene is dismissed, and the
// transition is recorded so scene-scoped suppression policy can consult it.
// Dismissal happens before the view event leaves the SDK - a late response
// for the previous screen must not resurrect an overlay the user has
// already navigated away from.
package inapp

import (
	"sync"
	"time"
)

// DefaultSceneID is the scene identifier used by trackers not bound to a
// specific scene.
const DefaultSceneID = ""

// Presenter renders an overlay inside one scene. Implementations live in
// the host application's UI layer; the Manager only asks whether something
// is showing and tells it to go away.
type Presenter interface {
	// IsPresenting reports whether an overlay is currently displayed.
	IsPresenting() bool

	// Dismiss hides the displayed overlay.
	Dismiss()
}

// Transition records the most recent screen change in a scene.
type Transition struct {
	// ViewName is the screen the scene transitioned to.
	ViewName string

	// At is when the transition was signaled.
	At time.Time
}

// Manager tracks at most one presenter per scene and the latest view
// transition each scene has seen. Safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	presenters  map[string]Presenter
	transitions map[string]Transition
}

// NewManager creates an overlay manager.
func NewManager() *Manager {
	return &Manager{
		presenters:  make(map[string]Presenter),
		transitions: make(map[string]Transition),
	}
}

// Register binds a presenter to a scene, replacing any previous one.
func (m *Manager) Register(sceneID string, p Presenter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presenters[sceneID] = p
}

// Unregister removes the presenter bound to a scene.
func (m *Manager) Unregister(sceneID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.presenters, sceneID)
}

// IsPresenting reports whether the scene currently displays an overlay.
func (m *Manager) IsPresenting(sceneID string) bool {
	m.mu.Lock()
	p := m.presenters[sceneID]
	m.mu.Unlock()

	return p != nil && p.IsPresenting()
}

// SignalTransition applies a view transition to a scene: the displayed
// overlay, if any, is dismissed exactly once, and the transition is
// recorded for suppression policy. Returns true if an overlay was
// dismissed.
func (m *Manager) SignalTransition(sceneID, viewName string) bool {
	m.mu.Lock()
	p := m.presenters[sceneID]
	m.transitions[sceneID] = Transition{ViewName: viewName, At: time.Now()}
	m.mu.Unlock()

	// Dismiss outside the lock; presenters call back into UI code.
	if p != nil && p.IsPresenting() {
		p.Dismiss()
		return true
	}
	return false
}

// LastTransition returns the most recent transition recorded for a scene.
func (m *Manager) LastTransition(sceneID string) (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.transitions[sceneID]
	return tr, ok
}
