package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// CreateGC creates a graphics context for drawing into windowID.
func (c *Connection) CreateGC(windowID xproto.Window) (xproto.Gcontext, error) {
	conn := c.XUtil.Conn()
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, fmt.Errorf("%w: gcontext id: %v", ErrAlloc, err)
	}
	err = xproto.CreateGCChecked(conn, gc, xproto.Drawable(windowID),
		xproto.GcForeground|xproto.GcGraphicsExposures,
		[]uint32{c.Screen.BlackPixel, 0},
	).Check()
	if err != nil {
		return 0, classify(err)
	}
	return gc, nil
}

// FreeGC releases a graphics context.
func (c *Connection) FreeGC(gc xproto.Gcontext) error {
	return classify(xproto.FreeGCChecked(c.XUtil.Conn(), gc).Check())
}

// DefaultColormap is the screen's shared colormap. It must never be freed.
func (c *Connection) DefaultColormap() xproto.Colormap {
	return c.Screen.DefaultColormap
}

// CreateColormap allocates a private colormap for windowID and installs it as
// the window's colormap attribute.
func (c *Connection) CreateColormap(windowID xproto.Window) (xproto.Colormap, error) {
	conn := c.XUtil.Conn()
	cmap, err := xproto.NewColormapId(conn)
	if err != nil {
		return 0, fmt.Errorf("%w: colormap id: %v", ErrAlloc, err)
	}
	err = xproto.CreateColormapChecked(conn, xproto.ColormapAllocNone, cmap, windowID, c.Screen.RootVisual).Check()
	if err != nil {
		return 0, classify(err)
	}
	err = xproto.ChangeWindowAttributesChecked(conn, windowID, xproto.CwColormap, []uint32{uint32(cmap)}).Check()
	if err != nil {
		_ = xproto.FreeColormapChecked(conn, cmap).Check()
		return 0, classify(err)
	}
	return cmap, nil
}

// FreeColormap releases a colormap created by CreateColormap.
func (c *Connection) FreeColormap(cmap xproto.Colormap) error {
	return classify(xproto.FreeColormapChecked(c.XUtil.Conn(), cmap).Check())
}
