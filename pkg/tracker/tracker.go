package tracker

import (
	"github.com/engagekit/tracker/pkg/tracker/app"
	"github.com/engagekit/tracker/pkg/tracker/event"
	"github.com/engagekit/tracker/pkg/tracker/inapp"
	"github.com/engagekit/tracker/pkg/tracker/observability"
	"github.com/engagekit/tracker/pkg/tracker/task"
)

// Scene identifies an on-screen window/view used to route events and
// overlays in multi-window hosts. The tracker stores only the identifier;
// it never owns UI objects.
type Scene interface {
	SceneID() string
}

// Tracker stamps events into tracking tasks. It carries exactly two pieces
// of context: a visitor identity, frozen at construction, and an optional
// scene. The zero value tracks under an empty visitor and the default
// scene.
type Tracker struct {
	visitorID string
	scene     Scene
}

// New creates a Tracker bound to the shared app's current visitor
// identity. Before Setup the visitor is empty; tracking still works and
// dispatch no-ops.
func New() Tracker {
	return Tracker{visitorID: currentVisitorID()}
}

// NewWithVisitor creates a Tracker for an explicit visitor identity.
func NewWithVisitor(visitorID string) Tracker {
	return Tracker{visitorID: visitorID}
}

// NewForScene creates a Tracker bound to the shared app's current visitor
// identity and the given scene. A nil scene means the default scene.
func NewForScene(scene Scene) Tracker {
	return Tracker{visitorID: currentVisitorID(), scene: scene}
}

func currentVisitorID() string {
	if a := app.Shared(); a != nil {
		return a.VisitorID()
	}
	return ""
}

// VisitorID returns the visitor identity this tracker stamps onto tasks.
func (tr Tracker) VisitorID() string {
	return tr.visitorID
}

func (tr Tracker) sceneID() string {
	if tr.scene == nil {
		return inapp.DefaultSceneID
	}
	return tr.scene.SceneID()
}

// Track reports a named event.
func (tr Tracker) Track(name event.Name, values event.Values) *task.Task {
	return tr.TrackEvent(event.NewNamed(name, values))
}

// Identify reports a visitor-profile update.
func (tr Tracker) Identify(values event.Values) *task.Task {
	return tr.TrackEvent(event.NewIdentify(values))
}

// View reports a screen view. The screen title defaults to viewName.
func (tr Tracker) View(viewName string, values event.Values) *task.Task {
	return tr.TrackEvent(event.NewView(viewName, values))
}

// ViewWithTitle reports a screen view with an explicit title.
func (tr Tracker) ViewWithTitle(viewName, title string, values event.Values) *task.Task {
	return tr.TrackEvent(event.NewViewWithTitle(viewName, title, values))
}

// TrackEvent is the single funnel every tracking call goes through. It
// binds the event to the tracker's visitor and scene, signals the scene
// transition for view events, and hands the task to the transmitter.
//
// Always returns synchronously with a valid task. With no app set up the
// task is returned pending and dispatch silently no-ops.
func (tr Tracker) TrackEvent(evt *event.Event) *task.Task {
	t := task.New(evt, tr.visitorID, tr.sceneID())

	a := app.Shared()
	if a == nil {
		return t
	}

	// The transition signal must land before the task reaches the
	// transmitter: a late response for the previous view must not
	// resurrect an overlay on a screen the user has left.
	if evt.Kind() == event.KindView {
		dismissed := a.Overlays().SignalTransition(tr.sceneID(), evt.ViewName())
		observability.LogViewTransition(a.Logger(), tr.sceneID(), evt.ViewName(), dismissed)
	}

	a.Transmitter().Track(t)
	return t
}

// Track reports a named event under a default Tracker.
func Track(name event.Name, values event.Values) *task.Task {
	return New().Track(name, values)
}

// Identify reports a visitor-profile update under a default Tracker.
func Identify(values event.Values) *task.Task {
	return New().Identify(values)
}

// View reports a screen view under a default Tracker.
func View(viewName string, values event.Values) *task.Task {
	return New().View(viewName, values)
}

// ViewWithTitle reports a screen view with a title under a default Tracker.
func ViewWithTitle(viewName, title string, values event.Values) *task.Task {
	return New().ViewWithTitle(viewName, title, values)
}

// TrackEvent reports a pre-built event under a default Tracker.
func TrackEvent(evt *event.Event) *task.Task {
	return New().TrackEvent(evt)
}
