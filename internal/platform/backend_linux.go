//go:build linux

package platform

import (
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/pullwin/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend speaks X11 through an xgbutil connection.
type LinuxBackend struct {
	conn *x11.Connection

	mu       sync.Mutex
	topLevel map[xproto.Window]bool
}

var (
	_ Backend       = (*LinuxBackend)(nil)
	_ ProtocolAtoms = (*LinuxBackend)(nil)
	_ ScreenLister  = (*LinuxBackend)(nil)
)

// NewLinuxBackend wraps an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn, topLevel: make(map[xproto.Window]bool)}
}

func openNative(opts Options) (Backend, error) {
	conn, err := x11.NewConnection(opts.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

func (b *LinuxBackend) Kind() Kind { return KindX11 }

// TwoPhaseGeometry is false: X11 reports geometry once, via ConfigureNotify.
func (b *LinuxBackend) TwoPhaseGeometry() bool { return false }

// DeleteWindowAtom returns the interned WM_DELETE_WINDOW atom.
func (b *LinuxBackend) DeleteWindowAtom() uint32 { return uint32(b.conn.DeleteWindow) }

func (b *LinuxBackend) CreateWindow(spec WindowSpec) (NativeKey, error) {
	opts := x11.WindowOptions{
		Parent:  xproto.Window(spec.Parent),
		X:       spec.Bounds.X,
		Y:       spec.Bounds.Y,
		Width:   spec.Bounds.Width,
		Height:  spec.Bounds.Height,
		Title:   spec.Title,
		Managed: spec.TopLevel,
	}
	if spec.Background != nil {
		opts.HasBackground = true
		opts.Background = spec.Background.Pixel()
	}
	wid, err := b.conn.CreateWindow(opts)
	if err != nil {
		return 0, mapX11Error(err)
	}
	b.mu.Lock()
	b.topLevel[wid] = spec.TopLevel
	b.mu.Unlock()
	return NativeKey(wid), nil
}

func (b *LinuxBackend) DestroyWindow(win NativeKey) error {
	b.mu.Lock()
	delete(b.topLevel, xproto.Window(win))
	b.mu.Unlock()
	return mapX11Error(b.conn.DestroyWindow(xproto.Window(win)))
}

func (b *LinuxBackend) ShowWindow(win NativeKey) error {
	return mapX11Error(b.conn.MapWindow(xproto.Window(win)))
}

func (b *LinuxBackend) SetBounds(win NativeKey, bounds Rect) error {
	b.mu.Lock()
	top := b.topLevel[xproto.Window(win)]
	b.mu.Unlock()
	return b.conn.MoveResizeWindow(xproto.Window(win), top, bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

func (b *LinuxBackend) SetText(win NativeKey, text string) error {
	return b.conn.SetTitle(xproto.Window(win), text)
}

func (b *LinuxBackend) SelectInput(win NativeKey, mask InputMask) error {
	return mapX11Error(b.conn.SelectInput(xproto.Window(win), mask&InputKeys != 0, mask&InputButtons != 0))
}

func (b *LinuxBackend) Reparent(win, parent NativeKey) error {
	return mapX11Error(b.conn.ReparentWindow(xproto.Window(win), xproto.Window(parent)))
}

func (b *LinuxBackend) CreateContext(win NativeKey) (Resource, error) {
	gc, err := b.conn.CreateGC(xproto.Window(win))
	if err != nil {
		return Resource{}, mapX11Error(err)
	}
	return Resource{Class: ResourceContext, Window: win, ID: uint64(gc)}, nil
}

// CreateColormap returns the screen's default colormap unless a background color
// asks for a private one.
func (b *LinuxBackend) CreateColormap(win NativeKey, background *Color) (Resource, error) {
	if background == nil {
		return Resource{Class: ResourceColormap, Window: win, ID: uint64(b.conn.DefaultColormap()), Default: true}, nil
	}
	cmap, err := b.conn.CreateColormap(xproto.Window(win))
	if err != nil {
		return Resource{}, mapX11Error(err)
	}
	return Resource{Class: ResourceColormap, Window: win, ID: uint64(cmap)}, nil
}

// CreateInputContext returns the connection-wide keyboard mapping. The core
// protocol has no per-window input method, so the context is a shared default.
func (b *LinuxBackend) CreateInputContext(win NativeKey) (Resource, error) {
	return Resource{Class: ResourceInputContext, Window: win, Default: true}, nil
}

func (b *LinuxBackend) ReleaseResource(res Resource) error {
	if res.Default {
		return nil
	}
	switch res.Class {
	case ResourceContext:
		return mapX11Error(b.conn.FreeGC(xproto.Gcontext(res.ID)))
	case ResourceColormap:
		return mapX11Error(b.conn.FreeColormap(xproto.Colormap(res.ID)))
	case ResourceInputContext:
		return nil
	}
	return fmt.Errorf("%w: unknown resource class %s", ErrInvalidParameter, res.Class)
}

func (b *LinuxBackend) NextRawEvent() (RawEvent, error) {
	ev, err := b.conn.WaitForEvent()
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrConnectionClosed
	}
	raw := XEvent{Event: ev}
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		raw.Keysym = b.conn.KeysymName(e.State, e.Detail)
	case xproto.KeyReleaseEvent:
		raw.Keysym = b.conn.KeysymName(e.State, e.Detail)
	case xproto.ConfigureNotifyEvent:
		// A real ConfigureNotify on a framed top-level window carries
		// frame-relative coordinates and a synthetic one carries root
		// coordinates; both resolve to the same root position here.
		b.mu.Lock()
		top := b.topLevel[e.Window]
		b.mu.Unlock()
		if top {
			if x, y, err := b.conn.RootOrigin(e.Window); err == nil {
				raw.Origin = &Point{X: x, Y: y}
			}
		}
	}
	return raw, nil
}

// Screens reports monitor work areas from RandR.
func (b *LinuxBackend) Screens() ([]Rect, error) {
	monitors, err := b.conn.GetMonitors()
	if err != nil {
		return nil, err
	}
	out := make([]Rect, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height})
	}
	return out, nil
}

func (b *LinuxBackend) Close() error {
	if b == nil || b.conn == nil {
		return nil
	}
	b.conn.Close()
	return nil
}

func mapX11Error(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, x11.ErrAlloc):
		return fmt.Errorf("%w: %v", ErrResourceExhausted, err)
	case errors.Is(err, x11.ErrValue):
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return err
}
