package pullwin

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/1broseidon/pullwin/internal/platform"
)

// translateTerm maps one routed terminal event. Terminals report key presses
// only, so there is no KeyUp on this backend.
func (i *Instance) translateTerm(w *Window, ev platform.TermEvent) ([]*Event, error) {
	switch {
	case ev.Close:
		return []*Event{closeEvent(w)}, nil
	case ev.Expose:
		return []*Event{NewEvent(Paint, w)}, nil
	case ev.Configure != nil:
		cur := w.Bounds()
		if *ev.Configure == cur {
			return nil, nil
		}
		return []*Event{newBoundsEvent(BoundsChanging, w, cur, *ev.Configure, boundsDirective{confirm: true})}, nil
	case ev.Button != 0:
		if ev.Button < 1 || ev.Button > 5 {
			return nil, &TranslationError{Backend: platform.KindTerm, Raw: "mouse", Reason: fmt.Sprintf("unexpected button %d", ev.Button)}
		}
		kind := MouseButtonUp
		if ev.Pressed {
			kind = MouseButtonDown
		}
		return []*Event{newButtonEvent(kind, w, MouseButton(ev.Button), ev.Point)}, nil
	}

	if key, ok := ev.Event.(*tcell.EventKey); ok {
		return []*Event{newKeyEvent(KeyDown, w, termKey(key), nil)}, nil
	}
	return []*Event{newCarrierEvent(w, Carrier{Backend: platform.KindTerm, Name: termEventName(ev.Event), Raw: ev})}, nil
}

func termKey(ev *tcell.EventKey) KeyInfo {
	mods := ev.Modifiers()
	k := KeyInfo{
		Code:  uint32(ev.Key()),
		Ctrl:  mods&tcell.ModCtrl != 0,
		Alt:   mods&tcell.ModAlt != 0,
		Shift: mods&tcell.ModShift != 0,
	}
	if ev.Key() == tcell.KeyRune {
		k.Rune = ev.Rune()
		k.Name = string(ev.Rune())
		return k
	}
	if name, ok := tcell.KeyNames[ev.Key()]; ok {
		k.Name = name
	} else {
		k.Name = ev.Name()
	}
	return k
}

func termEventName(ev tcell.Event) string {
	switch ev.(type) {
	case nil:
		return "<nil>"
	case *tcell.EventMouse:
		return "mouse"
	case *tcell.EventResize:
		return "resize"
	case *tcell.EventInterrupt:
		return "interrupt"
	case *tcell.EventPaste:
		return "paste"
	case *tcell.EventFocus:
		return "focus"
	}
	return fmt.Sprintf("%T", ev)
}
