package pullwin

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/pullwin/internal/platform"
)

// translateX11 maps one X11 event. Geometry is one-phase: a ConfigureNotify that
// moves or resizes the window becomes a BoundsChanging whose dispatch confirms it.
func (i *Instance) translateX11(w *Window, raw platform.XEvent) ([]*Event, error) {
	switch ev := raw.Event.(type) {
	case xproto.KeyPressEvent:
		return []*Event{newKeyEvent(KeyDown, w, x11Key(raw.Keysym, ev.Detail, ev.State), &Point{X: int(ev.EventX), Y: int(ev.EventY)})}, nil
	case xproto.KeyReleaseEvent:
		return []*Event{newKeyEvent(KeyUp, w, x11Key(raw.Keysym, ev.Detail, ev.State), &Point{X: int(ev.EventX), Y: int(ev.EventY)})}, nil

	case xproto.ButtonPressEvent:
		b, err := x11Button(ev.Detail)
		if err != nil {
			return nil, err
		}
		return []*Event{newButtonEvent(MouseButtonDown, w, b, Point{X: int(ev.EventX), Y: int(ev.EventY)})}, nil
	case xproto.ButtonReleaseEvent:
		b, err := x11Button(ev.Detail)
		if err != nil {
			return nil, err
		}
		return []*Event{newButtonEvent(MouseButtonUp, w, b, Point{X: int(ev.EventX), Y: int(ev.EventY)})}, nil

	case xproto.ExposeEvent:
		return []*Event{NewEvent(Paint, w)}, nil

	case xproto.ConfigureNotifyEvent:
		next := Rect{X: int(ev.X), Y: int(ev.Y), Width: int(ev.Width), Height: int(ev.Height)}
		if raw.Origin != nil {
			next.X, next.Y = raw.Origin.X, raw.Origin.Y
		}
		cur := w.Bounds()
		if next == cur {
			return nil, nil
		}
		return []*Event{newBoundsEvent(BoundsChanging, w, cur, next, boundsDirective{confirm: true})}, nil

	case xproto.ClientMessageEvent:
		if i.deleteAtom != 0 && ev.Format == 32 &&
			len(ev.Data.Data32) > 0 && ev.Data.Data32[0] == i.deleteAtom {
			return []*Event{closeEvent(w)}, nil
		}
	}

	return []*Event{newCarrierEvent(w, Carrier{Backend: platform.KindX11, Name: x11EventName(raw), Raw: raw})}, nil
}

func x11Key(keysym string, detail xproto.Keycode, state uint16) KeyInfo {
	k := KeyInfo{
		Name:  keysym,
		Code:  uint32(detail),
		Ctrl:  state&xproto.ModMaskControl != 0,
		Alt:   state&xproto.ModMask1 != 0,
		Shift: state&xproto.ModMaskShift != 0,
	}
	if r := []rune(keysym); len(r) == 1 {
		k.Rune = r[0]
	}
	return k
}

func x11Button(detail xproto.Button) (MouseButton, error) {
	if detail < 1 || detail > 5 {
		return 0, &TranslationError{
			Backend: platform.KindX11,
			Raw:     "ButtonPress/Release",
			Reason:  fmt.Sprintf("unexpected button number %d", detail),
		}
	}
	return MouseButton(detail), nil
}

func x11EventName(raw platform.XEvent) string {
	if raw.Event == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", raw.Event)
}
