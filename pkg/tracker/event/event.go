// Package event defines the immutable event model for the tracking SDK.
//
// Three kinds of events exist:
//   - Named: a freeform application event ("purchase", "signup", ...)
//   - Identify: an update to the visitor's profile attributes
//   - View: a screen-view transition, which doubles as the SDK's
//     scene-change signal
//
// Events are immutable once created - constructors clone their payload maps
// so later mutation by the caller cannot leak into an event already handed
// to the transmitter.
package event

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the event variants.
type Kind string

// Event kind constants.
const (
	KindNamed    Kind = "named"
	KindIdentify Kind = "identify"
	KindView     Kind = "view"
)

// Name is an event-name token. It is an opaque identifier sent on the wire,
// not free text; callers own its validity.
type Name string

// Reserved event names used by the built-in variants.
const (
	NameIdentify Name = "identify"
	NameView     Name = "view"
)

// Field keys the View variant injects into its wire payload.
const (
	FieldViewName = "view_name"
	FieldTitle    = "title"
)

// Values is an event payload: string keys mapped to encodable values.
// Encoding of individual values is the transmit codec's concern.
type Values map[string]any

// Clone returns a shallow copy of the values map.
// A nil receiver yields an empty, non-nil map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	maps.Copy(out, v)
	return out
}

// Event is one immutable tracking event.
type Event struct {
	id         string
	kind       Kind
	name       Name
	viewName   string
	title      string
	values     Values
	occurredAt time.Time
}

// NewNamed creates a freeform named event.
func NewNamed(name Name, values Values) *Event {
	return &Event{
		id:         uuid.New().String(),
		kind:       KindNamed,
		name:       name,
		values:     values.Clone(),
		occurredAt: time.Now(),
	}
}

// NewIdentify creates a visitor-profile update event.
// An empty values map is allowed.
func NewIdentify(values Values) *Event {
	return &Event{
		id:         uuid.New().String(),
		kind:       KindIdentify,
		name:       NameIdentify,
		values:     values.Clone(),
		occurredAt: time.Now(),
	}
}

// NewView creates a screen-view event whose title defaults to viewName.
func NewView(viewName string, values Values) *Event {
	return NewViewWithTitle(viewName, "", values)
}

// NewViewWithTitle creates a screen-view event with an explicit title.
// An empty title falls back to viewName; the default is resolved here, at
// construction, never later.
func NewViewWithTitle(viewName, title string, values Values) *Event {
	if title == "" {
		title = viewName
	}
	return &Event{
		id:         uuid.New().String(),
		kind:       KindView,
		name:       NameView,
		viewName:   viewName,
		title:      title,
		values:     values.Clone(),
		occurredAt: time.Now(),
	}
}

// ID returns the unique event identifier.
func (e *Event) ID() string {
	return e.id
}

// Kind returns the event variant.
func (e *Event) Kind() Kind {
	return e.kind
}

// EventName returns the wire-level event name: the caller-supplied name for
// Named events, "identify" and "view" for the built-in variants.
func (e *Event) EventName() Name {
	return e.name
}

// ViewName returns the screen name for View events, "" otherwise.
func (e *Event) ViewName() string {
	return e.viewName
}

// Title returns the screen title for View events, "" otherwise.
func (e *Event) Title() string {
	return e.title
}

// OccurredAt returns when the event was created.
func (e *Event) OccurredAt() time.Time {
	return e.occurredAt
}

// Values returns a copy of the caller-supplied payload.
func (e *Event) Values() Values {
	return e.values.Clone()
}

// WireValues returns the payload as it goes on the wire. For View events the
// screen name and title are merged in under reserved keys; caller-supplied
// values never override them.
func (e *Event) WireValues() Values {
	out := e.values.Clone()
	if e.kind == KindView {
		out[FieldViewName] = e.viewName
		out[FieldTitle] = e.title
	}
	return out
}

// wireEvent is the JSON shape consumed by the collection endpoint.
type wireEvent struct {
	ID     string `json:"id"`
	Name   Name   `json:"event_name"`
	Values Values `json:"values,omitempty"`
	Date   string `json:"date"`
}

// MarshalJSON implements json.Marshaler with the wire shape.
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		ID:     e.id,
		Name:   e.name,
		Values: e.WireValues(),
		Date:   e.occurredAt.UTC().Format(time.RFC3339Nano),
	})
}
