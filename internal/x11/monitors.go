package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// GetMonitors retrieves all active monitors using XRandR, clipped to the EWMH
// work area when the window manager publishes one.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(c.XUtil.Conn(), info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}

	if len(monitors) == 0 {
		// No RandR outputs (nested or virtual servers): report the root screen.
		monitors = append(monitors, Monitor{
			Name:   "screen",
			Width:  int(c.Screen.WidthInPixels),
			Height: int(c.Screen.HeightInPixels),
		})
	}

	c.clipToWorkArea(monitors)
	return monitors, nil
}

func (c *Connection) clipToWorkArea(monitors []Monitor) {
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return
	}
	desktop := 0
	if cur, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(cur) < len(workArea) {
		desktop = int(cur)
	}
	wa := workArea[desktop]

	for i := range monitors {
		m := &monitors[i]
		x1 := max(m.X, int(wa.X))
		y1 := max(m.Y, int(wa.Y))
		x2 := min(m.X+m.Width, int(wa.X)+int(wa.Width))
		y2 := min(m.Y+m.Height, int(wa.Y)+int(wa.Height))
		if x2 > x1 && y2 > y1 {
			m.X, m.Y, m.Width, m.Height = x1, y1, x2-x1, y2-y1
		}
	}
}
