package platform

import (
	"errors"
	"fmt"
)

// Kind names the windowing system behind a Backend.
type Kind string

const (
	KindX11   Kind = "x11"
	KindWin32 Kind = "win32"
	KindTerm  Kind = "term"
)

// NativeKey is a platform-neutral identifier for a native window: an XID on X11,
// an HWND on Win32, a cell-window number on the terminal backend.
type NativeKey uint64

// Rect describes a rectangular region. Child window coordinates are relative to
// the parent.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Point is a position in window coordinates.
type Point struct {
	X int
	Y int
}

// Color is a 24-bit RGB color.
type Color struct {
	R, G, B uint8
}

// Pixel packs the color for TrueColor visuals.
func (c Color) Pixel() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// COLORREF packs the color the way GDI expects it (0x00BBGGRR).
func (c Color) COLORREF() uint32 {
	return uint32(c.B)<<16 | uint32(c.G)<<8 | uint32(c.R)
}

// WindowSpec describes a native window to create.
type WindowSpec struct {
	Parent     NativeKey // zero means the screen root
	Title      string
	Bounds     Rect
	Background *Color
	TopLevel   bool
}

// ResourceClass is the kind of native sub-resource attached to a window.
type ResourceClass int

const (
	ResourceContext ResourceClass = iota
	ResourceColormap
	ResourceInputContext
)

func (c ResourceClass) String() string {
	switch c {
	case ResourceContext:
		return "drawing context"
	case ResourceColormap:
		return "colormap"
	case ResourceInputContext:
		return "input context"
	default:
		return fmt.Sprintf("ResourceClass(%d)", int(c))
	}
}

// Resource identifies a native sub-resource. Default resources are shared by the
// platform (default colormap, stock brush) and must never be released.
type Resource struct {
	Class   ResourceClass
	Window  NativeKey
	ID      uint64
	Default bool
}

// InputMask selects which optional input a native window reports. Exposure and
// structure notifications are always selected.
type InputMask uint32

const (
	InputKeys InputMask = 1 << iota
	InputButtons
)

var (
	// ErrConnectionClosed is returned by NextRawEvent once the connection is gone.
	ErrConnectionClosed = errors.New("platform: connection closed")
	// ErrUnsupported is returned when no adapter exists for the running platform.
	ErrUnsupported = errors.New("platform: windowing system not supported on this platform")
	// ErrResourceExhausted is returned when the native system refuses to allocate.
	ErrResourceExhausted = errors.New("platform: native resources exhausted")
	// ErrInvalidParameter is returned when the native system rejects a request.
	ErrInvalidParameter = errors.New("platform: invalid parameter")
)

// Backend abstracts one native windowing connection. Exactly one native
// implementation is compiled per target; the terminal adapter is portable.
type Backend interface {
	Kind() Kind

	CreateWindow(spec WindowSpec) (NativeKey, error)
	DestroyWindow(win NativeKey) error
	ShowWindow(win NativeKey) error
	SetBounds(win NativeKey, bounds Rect) error
	SetText(win NativeKey, text string) error
	SelectInput(win NativeKey, mask InputMask) error
	// Reparent moves win under parent, keeping its parent-relative position.
	// A zero parent means the screen root.
	Reparent(win, parent NativeKey) error

	CreateContext(win NativeKey) (Resource, error)
	CreateColormap(win NativeKey, background *Color) (Resource, error)
	CreateInputContext(win NativeKey) (Resource, error)
	ReleaseResource(res Resource) error

	// NextRawEvent blocks until the native system delivers one event.
	NextRawEvent() (RawEvent, error)

	// TwoPhaseGeometry reports whether the native system confirms geometry
	// changes with a separate notification after a pre-change notice.
	TwoPhaseGeometry() bool

	Close() error
}

// ProtocolAtoms is implemented by backends that deliver window-close requests as
// client messages carrying an atom (X11 WM_DELETE_WINDOW).
type ProtocolAtoms interface {
	DeleteWindowAtom() uint32
}

// ScreenLister is implemented by backends that can report monitor work areas.
type ScreenLister interface {
	Screens() ([]Rect, error)
}

// ThreadBound is implemented by backends whose windows belong to the OS thread
// that opened the connection (Win32). Destroying windows and closing the
// connection must happen on that thread.
type ThreadBound interface {
	// OnOwnerThread reports whether the caller runs on the owner thread.
	OnOwnerThread() bool
	// Wake makes a blocked NextRawEvent on the owner thread return
	// ErrConnectionClosed. It is safe from any goroutine.
	Wake()
}
