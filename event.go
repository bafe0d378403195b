package pullwin

import (
	"fmt"
	"sync/atomic"

	"github.com/1broseidon/pullwin/internal/platform"
)

// Geometry and identity types shared with the backends.
type (
	Rect        = platform.Rect
	Point       = platform.Point
	Color       = platform.Color
	BackendKind = platform.Kind
	RawEvent    = platform.RawEvent
)

// EventKind is the closed, platform-independent set of event kinds.
type EventKind int

const (
	KeyDown EventKind = iota
	KeyUp
	MouseButtonDown
	MouseButtonUp
	AboutToPaint
	Paint
	BoundsChanging
	BoundsChanged
	TextChanging
	TextChanged
	Close
	Quit
	MessageCarrier
)

var eventKindNames = [...]string{
	KeyDown:         "KeyDown",
	KeyUp:           "KeyUp",
	MouseButtonDown: "MouseButtonDown",
	MouseButtonUp:   "MouseButtonUp",
	AboutToPaint:    "AboutToPaint",
	Paint:           "Paint",
	BoundsChanging:  "BoundsChanging",
	BoundsChanged:   "BoundsChanged",
	TextChanging:    "TextChanging",
	TextChanged:     "TextChanged",
	Close:           "Close",
	Quit:            "Quit",
	MessageCarrier:  "MessageCarrier",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind resolves a kind from its String form.
func ParseEventKind(s string) (EventKind, bool) {
	for k, name := range eventKindNames {
		if name == s {
			return EventKind(k), true
		}
	}
	return 0, false
}

// AllEventKinds lists every kind in declaration order.
func AllEventKinds() []EventKind {
	out := make([]EventKind, len(eventKindNames))
	for i := range out {
		out[i] = EventKind(i)
	}
	return out
}

// MouseButton numbers follow the X11 convention: 1 left, 2 middle, 3 right,
// 4 and 5 the extra (back/forward) buttons.
type MouseButton int

const (
	Button1 MouseButton = iota + 1
	Button2
	Button3
	Button4
	Button5
)

func (b MouseButton) String() string { return fmt.Sprintf("Button%d", int(b)) }

// KeyInfo describes a key transition.
type KeyInfo struct {
	// Name is the backend's symbolic key name (keysym name on X11).
	Name  string
	Code  uint32
	Rune  rune
	Ctrl  bool
	Alt   bool
	Shift bool
}

// Carrier wraps a raw native event that has no semantic mapping.
type Carrier struct {
	Backend BackendKind
	// Name is a short description, such as the message name on Win32.
	Name string
	Raw  RawEvent
}

// boundsDirective tells dispatch what a BoundsChanging event still needs.
type boundsDirective struct {
	// forward applies the bounds to the native window.
	forward bool
	// confirm queues the BoundsChanged confirmation after applying.
	confirm bool
}

// Event is one semantic event targeting a window. Payload accessors are
// kind-checked: asking for a payload the kind does not carry returns ok == false.
type Event struct {
	kind   EventKind
	window *Window
	exit   bool

	key    KeyInfo
	cursor *Point

	button MouseButton
	point  Point

	oldBounds, newBounds Rect
	directive            boundsDirective

	oldText, newText string

	carrier Carrier

	consumed atomic.Bool
}

// NewEvent creates an event without payload (AboutToPaint, Paint, Close, Quit).
// Quit events carry the exit flag.
func NewEvent(kind EventKind, w *Window) *Event {
	return &Event{kind: kind, window: w, exit: kind == Quit}
}

func newKeyEvent(kind EventKind, w *Window, key KeyInfo, cursor *Point) *Event {
	return &Event{kind: kind, window: w, key: key, cursor: cursor}
}

func newButtonEvent(kind EventKind, w *Window, button MouseButton, at Point) *Event {
	return &Event{kind: kind, window: w, button: button, point: at}
}

func newBoundsEvent(kind EventKind, w *Window, old, new Rect, d boundsDirective) *Event {
	return &Event{kind: kind, window: w, oldBounds: old, newBounds: new, directive: d}
}

func newTextEvent(kind EventKind, w *Window, old, new string) *Event {
	return &Event{kind: kind, window: w, oldText: old, newText: new}
}

func newCarrierEvent(w *Window, c Carrier) *Event {
	return &Event{kind: MessageCarrier, window: w, carrier: c}
}

// closeEvent applies the close-protocol rule: a top-level window closing ends
// the application.
func closeEvent(w *Window) *Event {
	if w.IsTopLevel() {
		return NewEvent(Quit, w)
	}
	return NewEvent(Close, w)
}

// Kind returns the event kind.
func (e *Event) Kind() EventKind { return e.kind }

// Window returns the target window.
func (e *Event) Window() *Window { return e.window }

// IsExitEvent reports whether the application loop should terminate.
func (e *Event) IsExitEvent() bool { return e.exit }

// Key returns the key information of KeyDown and KeyUp events.
func (e *Event) Key() (KeyInfo, bool) {
	if e.kind != KeyDown && e.kind != KeyUp {
		return KeyInfo{}, false
	}
	return e.key, true
}

// Cursor returns the pointer position sampled with a key event, when the
// backend could provide one.
func (e *Event) Cursor() (Point, bool) {
	if (e.kind != KeyDown && e.kind != KeyUp) || e.cursor == nil {
		return Point{}, false
	}
	return *e.cursor, true
}

// Button returns the button and window-relative position of mouse button events.
func (e *Event) Button() (MouseButton, Point, bool) {
	if e.kind != MouseButtonDown && e.kind != MouseButtonUp {
		return 0, Point{}, false
	}
	return e.button, e.point, true
}

// Bounds returns the old and new bounds of BoundsChanging and BoundsChanged events.
func (e *Event) Bounds() (old, new Rect, ok bool) {
	if e.kind != BoundsChanging && e.kind != BoundsChanged {
		return Rect{}, Rect{}, false
	}
	return e.oldBounds, e.newBounds, true
}

// Text returns the old and new text of TextChanging and TextChanged events.
func (e *Event) Text() (old, new string, ok bool) {
	if e.kind != TextChanging && e.kind != TextChanged {
		return "", "", false
	}
	return e.oldText, e.newText, true
}

// Carrier returns the wrapped native event of MessageCarrier events.
func (e *Event) Carrier() (Carrier, bool) {
	if e.kind != MessageCarrier {
		return Carrier{}, false
	}
	return e.carrier, true
}

// Dispatch runs the target window's default handling. An event can be
// dispatched once; later calls return ErrEventConsumed.
func (e *Event) Dispatch() error {
	if !e.consumed.CompareAndSwap(false, true) {
		return ErrEventConsumed
	}
	if e.window == nil {
		return nil
	}
	return e.window.handleEvent(e)
}

func (e *Event) String() string {
	id := uint64(0)
	if e.window != nil {
		id = uint64(e.window.ID())
	}
	s := fmt.Sprintf("%s window=%d", e.kind, id)
	switch e.kind {
	case KeyDown, KeyUp:
		s += fmt.Sprintf(" key=%q ctrl=%t alt=%t shift=%t", e.key.Name, e.key.Ctrl, e.key.Alt, e.key.Shift)
	case MouseButtonDown, MouseButtonUp:
		s += fmt.Sprintf(" button=%d at=(%d,%d)", e.button, e.point.X, e.point.Y)
	case BoundsChanging, BoundsChanged:
		s += fmt.Sprintf(" old=%s new=%s", e.oldBounds, e.newBounds)
	case TextChanging, TextChanged:
		s += fmt.Sprintf(" old=%q new=%q", e.oldText, e.newText)
	case MessageCarrier:
		s += " raw=" + e.carrier.Name
	}
	if e.exit {
		s += " exit"
	}
	return s
}
