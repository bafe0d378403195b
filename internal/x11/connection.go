package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xprop"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil  *xgbutil.XUtil
	Root   xproto.Window
	Screen *xproto.ScreenInfo

	// WM_DELETE_WINDOW, interned once at connect time.
	DeleteWindow xproto.Atom
}

// NewConnection connects to display, or to $DISPLAY when display is empty.
func NewConnection(display string) (*Connection, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(display)
	}
	if err != nil {
		return nil, err
	}

	// Keysym lookup for key events goes through the keybind mapping.
	keybind.Initialize(xu)

	del, err := xprop.Atm(xu, "WM_DELETE_WINDOW")
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("intern WM_DELETE_WINDOW: %w", err)
	}

	return &Connection{
		XUtil:        xu,
		Root:         xu.RootWin(),
		Screen:       xu.Screen(),
		DeleteWindow: del,
	}, nil
}

// WaitForEvent blocks for the next event or asynchronous protocol error.
// Both results nil means the connection was closed.
func (c *Connection) WaitForEvent() (xgb.Event, error) {
	ev, xerr := c.XUtil.Conn().WaitForEvent()
	if xerr != nil {
		return nil, fmt.Errorf("x11 protocol error: %s", xerr.Error())
	}
	return ev, nil
}

// KeysymName resolves the keysym string for a key event.
func (c *Connection) KeysymName(state uint16, detail xproto.Keycode) string {
	return keybind.LookupString(c.XUtil, state, detail)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
