package platform

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/gdamore/tcell/v2"
)

// RawEvent is an unprocessed notification from a native backend.
type RawEvent interface {
	// Target returns the native window the event refers to, or zero.
	Target() NativeKey
}

// XEvent carries one X11 protocol event. Keysym is resolved by the adapter for
// key events, since keysym lookup needs the connection's keyboard mapping.
type XEvent struct {
	Event  xgb.Event
	Keysym string
	// Origin is the root position of a top-level window, resolved when a
	// ConfigureNotify was read. Nil for child windows.
	Origin *Point
}

// Target extracts the window from the events the core understands.
func (e XEvent) Target() NativeKey {
	var w xproto.Window
	switch ev := e.Event.(type) {
	case xproto.KeyPressEvent:
		w = ev.Event
	case xproto.KeyReleaseEvent:
		w = ev.Event
	case xproto.ButtonPressEvent:
		w = ev.Event
	case xproto.ButtonReleaseEvent:
		w = ev.Event
	case xproto.MotionNotifyEvent:
		w = ev.Event
	case xproto.EnterNotifyEvent:
		w = ev.Event
	case xproto.LeaveNotifyEvent:
		w = ev.Event
	case xproto.FocusInEvent:
		w = ev.Event
	case xproto.FocusOutEvent:
		w = ev.Event
	case xproto.ExposeEvent:
		w = ev.Window
	case xproto.ConfigureNotifyEvent:
		w = ev.Window
	case xproto.MapNotifyEvent:
		w = ev.Window
	case xproto.UnmapNotifyEvent:
		w = ev.Window
	case xproto.DestroyNotifyEvent:
		w = ev.Window
	case xproto.ReparentNotifyEvent:
		w = ev.Window
	case xproto.PropertyNotifyEvent:
		w = ev.Window
	case xproto.ClientMessageEvent:
		w = ev.Window
	}
	return NativeKey(w)
}

// WindowPos is the geometry payload of WM_WINDOWPOSCHANGING/CHANGED, copied out
// of the native WINDOWPOS struct while it is still valid.
type WindowPos struct {
	X, Y, CX, CY int32
	Flags        uint32
}

// Modifiers is a snapshot of modifier key state.
type Modifiers struct {
	Ctrl, Alt, Shift bool
}

// Win32Message is one window message captured inside the window procedure.
// Pointer-valued parameters are decoded there, and modifier and cursor state are
// sampled at that moment, so translation never touches native memory.
type Win32Message struct {
	HWND   NativeKey
	Msg    uint32
	WParam uintptr
	LParam uintptr

	Pos    *WindowPos
	Mods   Modifiers
	Cursor *Point
}

// Target returns the HWND.
func (m Win32Message) Target() NativeKey { return m.HWND }

// TermEvent is one event from the terminal-cell adapter, already routed to a
// cell window.
type TermEvent struct {
	Window NativeKey
	// Event is the underlying tcell event, nil for synthesized notifications.
	Event tcell.Event

	Expose    bool
	Close     bool
	Configure *Rect

	// Button is 1-3 for a button transition, 0 otherwise.
	Button  int
	Pressed bool
	Point   Point
}

// Target returns the routed cell window.
func (e TermEvent) Target() NativeKey { return e.Window }
