package pullwin

import (
	"fmt"

	"github.com/1broseidon/pullwin/internal/platform"
	"github.com/1broseidon/pullwin/internal/win32"
)

// translateWin32 maps one window message. Geometry is two-phase: the pre-change
// notice stores the current bounds on the window and the confirmation takes them
// back, so BoundsChanged reports the true delta. Every message is additionally
// delivered as a MessageCarrier, always last.
func (i *Instance) translateWin32(w *Window, m platform.Win32Message) ([]*Event, error) {
	var (
		evs []*Event
		err error
	)

	switch m.Msg {
	case win32.WM_CLOSE:
		evs = append(evs, closeEvent(w))

	case win32.WM_PAINT:
		evs = append(evs, NewEvent(Paint, w))

	case win32.WM_KEYDOWN, win32.WM_SYSKEYDOWN:
		evs = append(evs, newKeyEvent(KeyDown, w, win32Key(m), m.Cursor))
	case win32.WM_KEYUP, win32.WM_SYSKEYUP:
		evs = append(evs, newKeyEvent(KeyUp, w, win32Key(m), m.Cursor))

	case win32.WM_LBUTTONDOWN, win32.WM_MBUTTONDOWN, win32.WM_RBUTTONDOWN, win32.WM_XBUTTONDOWN,
		win32.WM_LBUTTONUP, win32.WM_MBUTTONUP, win32.WM_RBUTTONUP, win32.WM_XBUTTONUP:
		var b MouseButton
		if b, err = win32Button(m); err == nil {
			kind := MouseButtonDown
			switch m.Msg {
			case win32.WM_LBUTTONUP, win32.WM_MBUTTONUP, win32.WM_RBUTTONUP, win32.WM_XBUTTONUP:
				kind = MouseButtonUp
			}
			x, y := win32.PointFromLParam(m.LParam)
			evs = append(evs, newButtonEvent(kind, w, b, Point{X: x, Y: y}))
		}

	case win32.WM_WINDOWPOSCHANGING:
		cur := w.Bounds()
		var next Rect
		if next, err = windowPosBounds(m, cur); err == nil {
			w.storeOldBounds(cur)
			if next != cur {
				evs = append(evs, newBoundsEvent(BoundsChanging, w, cur, next, boundsDirective{}))
			}
		}

	case win32.WM_WINDOWPOSCHANGED:
		var next Rect
		if next, err = windowPosBounds(m, w.Bounds()); err == nil {
			old, ok := w.takeOldBounds()
			switch {
			case !ok:
				i.log.Error("old bounds were not stored before WM_WINDOWPOSCHANGED; reporting new bounds as old",
					"window", w.ID(), "bounds", next.String())
				evs = append(evs, newBoundsEvent(BoundsChanged, w, next, next, boundsDirective{}))
			case old != next:
				evs = append(evs, newBoundsEvent(BoundsChanged, w, old, next, boundsDirective{}))
			}
		}
	}

	evs = append(evs, newCarrierEvent(w, Carrier{Backend: platform.KindWin32, Name: win32.MessageName(m.Msg), Raw: m}))
	return evs, err
}

// windowPosBounds reads the WINDOWPOS payload. Components the flags mark as
// unchanged are taken from cur.
func windowPosBounds(m platform.Win32Message, cur Rect) (Rect, error) {
	if m.Pos == nil {
		return Rect{}, &TranslationError{Backend: platform.KindWin32, Raw: win32.MessageName(m.Msg), Reason: "missing WINDOWPOS payload"}
	}
	next := Rect{X: int(m.Pos.X), Y: int(m.Pos.Y), Width: int(m.Pos.CX), Height: int(m.Pos.CY)}
	if m.Pos.Flags&win32.SWP_NOMOVE != 0 {
		next.X, next.Y = cur.X, cur.Y
	}
	if m.Pos.Flags&win32.SWP_NOSIZE != 0 {
		next.Width, next.Height = cur.Width, cur.Height
	}
	if next.Width < 0 || next.Height < 0 {
		return Rect{}, &TranslationError{
			Backend: platform.KindWin32,
			Raw:     win32.MessageName(m.Msg),
			Reason:  fmt.Sprintf("negative size %dx%d", next.Width, next.Height),
		}
	}
	return next, nil
}

func win32Button(m platform.Win32Message) (MouseButton, error) {
	switch m.Msg {
	case win32.WM_LBUTTONDOWN, win32.WM_LBUTTONUP:
		return Button1, nil
	case win32.WM_MBUTTONDOWN, win32.WM_MBUTTONUP:
		return Button2, nil
	case win32.WM_RBUTTONDOWN, win32.WM_RBUTTONUP:
		return Button3, nil
	}
	switch win32.HiWord(m.WParam) {
	case win32.XBUTTON1:
		return Button4, nil
	case win32.XBUTTON2:
		return Button5, nil
	}
	return 0, &TranslationError{
		Backend: platform.KindWin32,
		Raw:     win32.MessageName(m.Msg),
		Reason:  fmt.Sprintf("unexpected extra button %d", win32.HiWord(m.WParam)),
	}
}

func win32Key(m platform.Win32Message) KeyInfo {
	vk := uint32(m.WParam & 0xff)
	k := KeyInfo{
		Name:  vkName(vk),
		Code:  vk,
		Ctrl:  m.Mods.Ctrl,
		Alt:   m.Mods.Alt,
		Shift: m.Mods.Shift,
	}
	if r := []rune(k.Name); len(r) == 1 {
		k.Rune = r[0]
	}
	return k
}

var vkNames = map[uint32]string{
	0x08: "BackSpace",
	0x09: "Tab",
	0x0D: "Return",
	0x10: "Shift_L",
	0x11: "Control_L",
	0x12: "Alt_L",
	0x1B: "Escape",
	0x20: "space",
	0x21: "Prior",
	0x22: "Next",
	0x23: "End",
	0x24: "Home",
	0x25: "Left",
	0x26: "Up",
	0x27: "Right",
	0x28: "Down",
	0x2D: "Insert",
	0x2E: "Delete",
}

// vkName names virtual keys with X11 keysym spelling so both backends agree
// on common keys.
func vkName(vk uint32) string {
	switch {
	case vk >= '0' && vk <= '9':
		return string(rune(vk))
	case vk >= 'A' && vk <= 'Z':
		return string(rune(vk - 'A' + 'a'))
	case vk >= 0x70 && vk <= 0x87:
		return fmt.Sprintf("F%d", vk-0x6F)
	}
	if name, ok := vkNames[vk]; ok {
		return name
	}
	return fmt.Sprintf("VK_0x%02X", vk)
}
