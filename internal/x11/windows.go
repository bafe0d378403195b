package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

var (
	// ErrAlloc reports that the server could not allocate a resource or ran out of ids.
	ErrAlloc = errors.New("x11: allocation failed")
	// ErrValue reports that the server rejected a request argument.
	ErrValue = errors.New("x11: bad value")
)

// Exposure and structure changes are always selected; keys and buttons only on request.
const baseEventMask = xproto.EventMaskExposure | xproto.EventMaskStructureNotify

// WindowOptions describes a window to create.
type WindowOptions struct {
	Parent        xproto.Window // zero means the root window
	X, Y          int
	Width, Height int
	Background    uint32
	HasBackground bool
	Title         string
	// Managed windows participate in WM_DELETE_WINDOW.
	Managed bool
}

// CreateWindow creates an unmapped InputOutput window.
func (c *Connection) CreateWindow(opts WindowOptions) (xproto.Window, error) {
	conn := c.XUtil.Conn()
	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, fmt.Errorf("%w: window id: %v", ErrAlloc, err)
	}

	parent := opts.Parent
	if parent == 0 {
		parent = c.Root
	}

	var (
		mask   uint32
		values []uint32
	)
	if opts.HasBackground {
		mask |= xproto.CwBackPixel
		values = append(values, opts.Background)
	}
	mask |= xproto.CwEventMask
	values = append(values, baseEventMask)

	err = xproto.CreateWindowChecked(conn,
		c.Screen.RootDepth, wid, parent,
		int16(opts.X), int16(opts.Y), uint16(opts.Width), uint16(opts.Height),
		0, xproto.WindowClassInputOutput, c.Screen.RootVisual,
		mask, values,
	).Check()
	if err != nil {
		return 0, classify(err)
	}

	if opts.Title != "" {
		if err := c.SetTitle(wid, opts.Title); err != nil {
			_ = xproto.DestroyWindowChecked(conn, wid).Check()
			return 0, err
		}
	}
	if opts.Managed {
		if err := icccm.WmProtocolsSet(c.XUtil, wid, []string{"WM_DELETE_WINDOW"}); err != nil {
			_ = xproto.DestroyWindowChecked(conn, wid).Check()
			return 0, fmt.Errorf("set WM_PROTOCOLS: %w", err)
		}
	}
	return wid, nil
}

// DestroyWindow destroys a window and all of its subwindows.
func (c *Connection) DestroyWindow(windowID xproto.Window) error {
	return classify(xproto.DestroyWindowChecked(c.XUtil.Conn(), windowID).Check())
}

// MapWindow makes a window visible.
func (c *Connection) MapWindow(windowID xproto.Window) error {
	return classify(xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check())
}

// SelectInput replaces the window's event mask with the base mask plus extra.
func (c *Connection) SelectInput(windowID xproto.Window, keys, buttons bool) error {
	mask := uint32(baseEventMask)
	if keys {
		mask |= xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease
	}
	if buttons {
		mask |= xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease
	}
	return classify(xproto.ChangeWindowAttributesChecked(
		c.XUtil.Conn(), windowID, xproto.CwEventMask, []uint32{mask},
	).Check())
}

// ReparentWindow moves a window under parent, or under the root window when
// parent is zero, keeping its parent-relative position.
func (c *Connection) ReparentWindow(windowID, parent xproto.Window) error {
	if parent == 0 {
		parent = c.Root
	}
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return classify(err)
	}
	return classify(xproto.ReparentWindowChecked(c.XUtil.Conn(), windowID, parent, geom.X, geom.Y).Check())
}

// RootOrigin returns the root-window position of a window's origin. Under a
// reparenting window manager a top-level window's own geometry is relative to
// its frame, so this is the only reliable position.
func (c *Connection) RootOrigin(windowID xproto.Window) (x, y int, err error) {
	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, classify(err)
	}
	return int(translate.DstX), int(translate.DstY), nil
}

// MoveResizeWindow moves and resizes a window to the specified geometry.
// Top-level windows go through EWMH first so the window manager honors the request.
func (c *Connection) MoveResizeWindow(windowID xproto.Window, topLevel bool, x, y, width, height int) error {
	if topLevel {
		c.unmaximizeWindow(windowID)
		if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err == nil {
			return nil
		}
	}
	// Fallback to direct window manipulation
	xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	return nil
}

// SetTitle sets both the ICCCM and EWMH window names.
func (c *Connection) SetTitle(windowID xproto.Window, title string) error {
	if err := icccm.WmNameSet(c.XUtil, windowID, title); err != nil {
		return fmt.Errorf("set WM_NAME: %w", err)
	}
	if err := ewmh.WmNameSet(c.XUtil, windowID, title); err != nil {
		return fmt.Errorf("set _NET_WM_NAME: %w", err)
	}
	return nil
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return
	}
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			_ = ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state)
		}
	}
}

// classify maps X protocol errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case xproto.AllocError, xproto.IDChoiceError:
		return fmt.Errorf("%w: %v", ErrAlloc, err)
	case xproto.ValueError, xproto.MatchError, xproto.WindowError, xproto.DrawableError:
		return fmt.Errorf("%w: %v", ErrValue, err)
	}
	return err
}
