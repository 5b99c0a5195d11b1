// Package surface defines the presentation capability a host hands to the
// engine for the duration of one trial. The engine never touches a browser,
// terminal or window directly; everything visible and every input event goes
// through a Surface.
package surface

// Kind classifies an element so hosts can map it onto their own widgets.
type Kind string

const (
	KindText   Kind = "text"   // A block of text, e.g. a flanker string or a digit.
	KindTarget Kind = "target" // A filled shape that can be clicked.
	KindMarker Kind = "marker" // A transient overlay such as the probe marker.
)

// Element is one addressable item of a view.
type Element struct {
	ID    string            `json:"id" yaml:"id"`
	Kind  Kind              `json:"kind" yaml:"kind"`
	Text  string            `json:"text,omitempty" yaml:"text,omitempty"`
	Style map[string]string `json:"style,omitempty" yaml:"style,omitempty"`
}

// View is a complete frame. Rendering a view replaces whatever the surface
// showed before, including elements left by a previous trial.
type View struct {
	Elements []Element `json:"elements" yaml:"elements"`
}

// KeyEvent is a raw keyboard event as reported by the host. Key is the raw
// identifier; the engine canonicalizes it.
type KeyEvent struct {
	Key string
}

// Subscription is a scoped listener registration. Cancel is idempotent and,
// once it returns, the callback is never invoked again.
type Subscription interface {
	Cancel()
}

// Surface is the presentation capability owned by the active trial.
// Callbacks may be invoked from any goroutine; the engine serializes them.
type Surface interface {
	// Render replaces the surface content with view.
	Render(view View)
	// SetText changes the text of an element. Unknown ids are ignored.
	SetText(id, text string)
	// SetStyle changes one style property of an element. Unknown ids are ignored.
	SetStyle(id, property, value string)
	// AddElement appends an element to the current view.
	AddElement(el Element)
	// RemoveElement removes an element. Removing a missing element is a no-op.
	RemoveElement(id string)

	// ListenKeys registers fn for keyboard input. When keys is nil every key is
	// delivered; otherwise only keys whose raw identifier is in the set.
	ListenKeys(keys []string, fn func(KeyEvent)) Subscription
	// ListenClick registers fn for clicks on the element with the given id.
	ListenClick(id string, fn func()) Subscription
}
