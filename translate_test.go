package pullwin

import (
	"errors"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/gdamore/tcell/v2"

	"github.com/1broseidon/pullwin/internal/platform"
	"github.com/1broseidon/pullwin/internal/platform/platformtest"
	"github.com/1broseidon/pullwin/internal/win32"
)

func kinds(evs []*Event) []EventKind {
	out := make([]EventKind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind()
	}
	return out
}

func sameKinds(got []*Event, want ...EventKind) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].Kind() != want[i] {
			return false
		}
	}
	return true
}

func deleteMessage(win platform.NativeKey, atom uint32) platform.XEvent {
	return platform.XEvent{Event: xproto.ClientMessageEvent{
		Format: 32,
		Window: xproto.Window(win),
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{atom, 0, 0, 0, 0}),
	}}
}

func TestTranslateX11_ConfigureNotify(t *testing.T) {
	inst := newTestInstance(t, platformtest.New())
	w := mustWindow(t, inst, nil, Rect{Width: 400, Height: 300}, true)
	key := nativeKey(t, w)

	same := platform.XEvent{Event: xproto.ConfigureNotifyEvent{Window: xproto.Window(key), Width: 400, Height: 300}}
	evs, err := inst.translate(same)
	if err != nil || len(evs) != 0 {
		t.Fatalf("unchanged configure = %v, %v; want nothing", kinds(evs), err)
	}

	grow := platform.XEvent{Event: xproto.ConfigureNotifyEvent{Window: xproto.Window(key), X: 5, Width: 500, Height: 300}}
	evs, err = inst.translate(grow)
	if err != nil || !sameKinds(evs, BoundsChanging) {
		t.Fatalf("configure = %v, %v", kinds(evs), err)
	}
	old, next, ok := evs[0].Bounds()
	if !ok || old != (Rect{Width: 400, Height: 300}) || next != (Rect{X: 5, Width: 500, Height: 300}) {
		t.Fatalf("Bounds() = %s, %s, %v", old, next, ok)
	}
	if !evs[0].directive.confirm || evs[0].directive.forward {
		t.Fatalf("directive = %+v, want confirm only", evs[0].directive)
	}
}

func TestTranslateX11_ConfigureNotifyUsesRootOrigin(t *testing.T) {
	inst := newTestInstance(t, platformtest.New())
	w := mustWindow(t, inst, nil, Rect{X: 100, Y: 100, Width: 400, Height: 300}, true)
	win := xproto.Window(nativeKey(t, w))
	origin := &platform.Point{X: 100, Y: 100}

	// A framed window's real notify is relative to the frame; the window
	// manager's synthetic one is root-relative. Neither moved the window.
	framed := platform.XEvent{Event: xproto.ConfigureNotifyEvent{Window: win, Width: 400, Height: 300}, Origin: origin}
	synthetic := platform.XEvent{Event: xproto.ConfigureNotifyEvent{Window: win, X: 100, Y: 100, Width: 400, Height: 300}, Origin: origin}
	for _, raw := range []platform.XEvent{framed, synthetic, framed} {
		evs, err := inst.translate(raw)
		if err != nil || len(evs) != 0 {
			t.Fatalf("configure at same root position = %v, %v; want nothing", kinds(evs), err)
		}
	}

	moved := platform.XEvent{Event: xproto.ConfigureNotifyEvent{Window: win, Width: 400, Height: 300}, Origin: &platform.Point{X: 150, Y: 100}}
	evs, err := inst.translate(moved)
	if err != nil || !sameKinds(evs, BoundsChanging) {
		t.Fatalf("moved configure = %v, %v", kinds(evs), err)
	}
	if _, next, _ := evs[0].Bounds(); next != (Rect{X: 150, Y: 100, Width: 400, Height: 300}) {
		t.Fatalf("next bounds = %s", next)
	}
}

func TestTranslateX11_DeleteWindow(t *testing.T) {
	inst := newTestInstance(t, platformtest.New())
	top := mustWindow(t, inst, nil, Rect{Width: 100, Height: 100}, true)
	child := mustWindow(t, inst, top, Rect{Width: 10, Height: 10}, false)

	evs, err := inst.translate(deleteMessage(nativeKey(t, top), platformtest.DeleteAtom))
	if err != nil || !sameKinds(evs, Quit) || !evs[0].IsExitEvent() {
		t.Fatalf("top-level delete = %v, %v", kinds(evs), err)
	}

	evs, err = inst.translate(deleteMessage(nativeKey(t, child), platformtest.DeleteAtom))
	if err != nil || !sameKinds(evs, Close) || evs[0].IsExitEvent() {
		t.Fatalf("child delete = %v, %v", kinds(evs), err)
	}

	evs, err = inst.translate(deleteMessage(nativeKey(t, top), platformtest.DeleteAtom+1))
	if err != nil || !sameKinds(evs, MessageCarrier) {
		t.Fatalf("other client message = %v, %v", kinds(evs), err)
	}
}

func TestTranslateX11_InputAndCarriers(t *testing.T) {
	inst := newTestInstance(t, platformtest.New())
	w := mustWindow(t, inst, nil, Rect{Width: 100, Height: 100}, true)
	win := xproto.Window(nativeKey(t, w))

	evs, err := inst.translate(platform.XEvent{
		Event:  xproto.KeyReleaseEvent{Event: win, Detail: 24, State: xproto.ModMaskControl | xproto.ModMaskShift, EventX: 3, EventY: 4},
		Keysym: "Q",
	})
	if err != nil || !sameKinds(evs, KeyUp) {
		t.Fatalf("key release = %v, %v", kinds(evs), err)
	}
	k, _ := evs[0].Key()
	if k.Name != "Q" || k.Rune != 'Q' || k.Code != 24 || !k.Ctrl || !k.Shift || k.Alt {
		t.Fatalf("key = %+v", k)
	}
	if p, ok := evs[0].Cursor(); !ok || p != (Point{X: 3, Y: 4}) {
		t.Fatalf("Cursor() = %v, %v", p, ok)
	}

	evs, err = inst.translate(platform.XEvent{Event: xproto.ButtonPressEvent{Event: win, Detail: 3, EventX: 7, EventY: 9}})
	if err != nil || !sameKinds(evs, MouseButtonDown) {
		t.Fatalf("button press = %v, %v", kinds(evs), err)
	}
	if b, p, _ := evs[0].Button(); b != Button3 || p != (Point{X: 7, Y: 9}) {
		t.Fatalf("Button() = %v at %v", b, p)
	}

	_, err = inst.translate(platform.XEvent{Event: xproto.ButtonReleaseEvent{Event: win, Detail: 9}})
	if !errors.Is(err, ErrTranslation) {
		t.Fatalf("button 9 = %v, want ErrTranslation", err)
	}

	evs, err = inst.translate(platform.XEvent{Event: xproto.MapNotifyEvent{Window: win, Event: win}})
	if err != nil || !sameKinds(evs, MessageCarrier) {
		t.Fatalf("map notify = %v, %v", kinds(evs), err)
	}
	if c, ok := evs[0].Carrier(); !ok || c.Backend != platform.KindX11 {
		t.Fatalf("Carrier() = %+v, %v", c, ok)
	}
}

func TestTranslate_IsDeterministic(t *testing.T) {
	inst := newTestInstance(t, platformtest.New())
	w := mustWindow(t, inst, nil, Rect{Width: 100, Height: 100}, true)
	win := xproto.Window(nativeKey(t, w))

	raws := []platform.RawEvent{
		platform.XEvent{Event: xproto.ConfigureNotifyEvent{Window: win, Width: 120, Height: 80}},
		platform.XEvent{Event: xproto.KeyPressEvent{Event: win, Detail: 9}, Keysym: "Escape"},
		platform.XEvent{Event: xproto.ExposeEvent{Window: win}},
		deleteMessage(platform.NativeKey(win), platformtest.DeleteAtom),
	}
	for _, raw := range raws {
		a, errA := inst.translate(raw)
		b, errB := inst.translate(raw)
		if (errA == nil) != (errB == nil) || len(a) != len(b) {
			t.Fatalf("%T: results differ", raw)
		}
		for i := range a {
			if a[i].String() != b[i].String() {
				t.Fatalf("%T: %q != %q", raw, a[i], b[i])
			}
		}
	}
}

func winPos(key platform.NativeKey, msg uint32, r Rect, flags uint32) platform.Win32Message {
	return platform.Win32Message{
		HWND: key,
		Msg:  msg,
		Pos:  &platform.WindowPos{X: int32(r.X), Y: int32(r.Y), CX: int32(r.Width), CY: int32(r.Height), Flags: flags},
	}
}

func TestTranslateWin32_ResizeRoundTrip(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	w := mustWindow(t, inst, nil, Rect{Width: 400, Height: 300}, true)
	key := nativeKey(t, w)
	target := Rect{Width: 500, Height: 300}

	evs, err := inst.translate(winPos(key, win32.WM_WINDOWPOSCHANGING, target, 0))
	if err != nil || !sameKinds(evs, BoundsChanging, MessageCarrier) {
		t.Fatalf("changing = %v, %v", kinds(evs), err)
	}
	if d := evs[0].directive; d.forward || d.confirm {
		t.Fatalf("directive = %+v, want none", d)
	}
	if err := evs[0].Dispatch(); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := w.Bounds(); got != target {
		t.Fatalf("bounds after changing = %s", got)
	}

	evs, err = inst.translate(winPos(key, win32.WM_WINDOWPOSCHANGED, target, 0))
	if err != nil || !sameKinds(evs, BoundsChanged, MessageCarrier) {
		t.Fatalf("changed = %v, %v", kinds(evs), err)
	}
	old, next, _ := evs[0].Bounds()
	if old != (Rect{Width: 400, Height: 300}) || next != target {
		t.Fatalf("BoundsChanged old=%s new=%s; want 400x300 -> 500x300", old, next)
	}
	if _, ok := w.takeOldBounds(); ok {
		t.Fatal("old-bounds slot not emptied")
	}
}

func TestTranslateWin32_ChangedWithoutChanging(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	w := mustWindow(t, inst, nil, Rect{Width: 400, Height: 300}, true)

	evs, err := inst.translate(winPos(nativeKey(t, w), win32.WM_WINDOWPOSCHANGED, Rect{Width: 10, Height: 10}, win32.SWP_NOMOVE))
	if err != nil || !sameKinds(evs, BoundsChanged, MessageCarrier) {
		t.Fatalf("changed = %v, %v", kinds(evs), err)
	}
	old, next, _ := evs[0].Bounds()
	if old != next || next != (Rect{Width: 10, Height: 10}) {
		t.Fatalf("old=%s new=%s; want new reported as old", old, next)
	}
}

func TestTranslateWin32_ZOrderOnlyChangeIsNotABoundsChange(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	w := mustWindow(t, inst, nil, Rect{X: 10, Y: 20, Width: 400, Height: 300}, true)
	key := nativeKey(t, w)
	flags := uint32(win32.SWP_NOMOVE | win32.SWP_NOSIZE)

	evs, err := inst.translate(winPos(key, win32.WM_WINDOWPOSCHANGING, Rect{}, flags))
	if err != nil || !sameKinds(evs, MessageCarrier) {
		t.Fatalf("changing with identical bounds = %v, %v; want carrier only", kinds(evs), err)
	}
	evs, err = inst.translate(winPos(key, win32.WM_WINDOWPOSCHANGED, Rect{}, flags))
	if err != nil || !sameKinds(evs, MessageCarrier) {
		t.Fatalf("changed with identical bounds = %v, %v; want carrier only", kinds(evs), err)
	}
	if _, ok := w.takeOldBounds(); ok {
		t.Fatal("old-bounds slot not emptied")
	}
}

func TestTranslateWin32_NoSizeKeepsCurrentSize(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	w := mustWindow(t, inst, nil, Rect{X: 1, Y: 1, Width: 400, Height: 300}, true)

	evs, err := inst.translate(winPos(nativeKey(t, w), win32.WM_WINDOWPOSCHANGING, Rect{X: 50, Y: 60}, win32.SWP_NOSIZE))
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if _, next, _ := evs[0].Bounds(); next != (Rect{X: 50, Y: 60, Width: 400, Height: 300}) {
		t.Fatalf("new bounds = %s", next)
	}
}

func TestTranslateWin32_CarrierIsAlwaysLast(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	top := mustWindow(t, inst, nil, Rect{Width: 100, Height: 100}, true)
	key := nativeKey(t, top)

	cases := []struct {
		msg  platform.Win32Message
		want []EventKind
	}{
		{platform.Win32Message{HWND: key, Msg: win32.WM_CLOSE}, []EventKind{Quit, MessageCarrier}},
		{platform.Win32Message{HWND: key, Msg: win32.WM_PAINT}, []EventKind{Paint, MessageCarrier}},
		{platform.Win32Message{HWND: key, Msg: win32.WM_KEYDOWN, WParam: 'A'}, []EventKind{KeyDown, MessageCarrier}},
		{platform.Win32Message{HWND: key, Msg: win32.WM_SYSKEYUP, WParam: 0x1B}, []EventKind{KeyUp, MessageCarrier}},
		{platform.Win32Message{HWND: key, Msg: win32.WM_RBUTTONUP, LParam: win32.MakeLParam(4, 5)}, []EventKind{MouseButtonUp, MessageCarrier}},
		{platform.Win32Message{HWND: key, Msg: win32.WM_MOUSEMOVE}, []EventKind{MessageCarrier}},
	}
	for _, tc := range cases {
		evs, err := inst.translate(tc.msg)
		if err != nil || !sameKinds(evs, tc.want...) {
			t.Errorf("%s = %v, %v; want %v", win32.MessageName(tc.msg.Msg), kinds(evs), err, tc.want)
		}
	}
}

func TestTranslateWin32_Keys(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	w := mustWindow(t, inst, nil, Rect{Width: 100, Height: 100}, true)

	evs, _ := inst.translate(platform.Win32Message{
		HWND:   nativeKey(t, w),
		Msg:    win32.WM_KEYDOWN,
		WParam: 'Q',
		Mods:   platform.Modifiers{Ctrl: true},
		Cursor: &platform.Point{X: 12, Y: 13},
	})
	k, ok := evs[0].Key()
	if !ok || k.Name != "q" || k.Rune != 'q' || !k.Ctrl || k.Shift {
		t.Fatalf("Key() = %+v, %v", k, ok)
	}
	if p, ok := evs[0].Cursor(); !ok || p != (Point{X: 12, Y: 13}) {
		t.Fatalf("Cursor() = %v, %v", p, ok)
	}

	for vk, want := range map[uint32]string{0x0D: "Return", 0x70: "F1", 0x87: "F24", '7': "7", 0xE5: "VK_0xE5"} {
		if got := vkName(vk); got != want {
			t.Errorf("vkName(%#x) = %q, want %q", vk, got, want)
		}
	}
}

func TestTranslateWin32_ExtraButtons(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	w := mustWindow(t, inst, nil, Rect{Width: 100, Height: 100}, true)
	key := nativeKey(t, w)

	evs, err := inst.translate(platform.Win32Message{HWND: key, Msg: win32.WM_XBUTTONDOWN, WParam: win32.XBUTTON2 << 16})
	if err != nil {
		t.Fatalf("XBUTTON2: %v", err)
	}
	if b, _, _ := evs[0].Button(); b != Button5 {
		t.Fatalf("XBUTTON2 = %v, want Button5", b)
	}

	evs, err = inst.translate(platform.Win32Message{HWND: key, Msg: win32.WM_XBUTTONUP, WParam: 7 << 16})
	var terr *TranslationError
	if !errors.As(err, &terr) || terr.Backend != platform.KindWin32 {
		t.Fatalf("bad xbutton = %v, want *TranslationError", err)
	}
	if !sameKinds(evs, MessageCarrier) {
		t.Fatalf("bad xbutton events = %v, want the carrier only", kinds(evs))
	}
}

func TestTranslateWin32_NegativeSize(t *testing.T) {
	inst := newTestInstance(t, platformtest.NewTwoPhase())
	w := mustWindow(t, inst, nil, Rect{Width: 100, Height: 100}, true)

	evs, err := inst.translate(winPos(nativeKey(t, w), win32.WM_WINDOWPOSCHANGING, Rect{Width: -5, Height: 10}, 0))
	if !errors.Is(err, ErrTranslation) || !sameKinds(evs, MessageCarrier) {
		t.Fatalf("negative size = %v, %v", kinds(evs), err)
	}
	if _, ok := w.takeOldBounds(); ok {
		t.Fatal("slot filled by a rejected message")
	}
}

func TestTranslateTerm(t *testing.T) {
	fake := platformtest.New()
	fake.KindValue = platform.KindTerm
	inst := newTestInstance(t, fake)
	top := mustWindow(t, inst, nil, Rect{Width: 40, Height: 10}, true)
	child := mustWindow(t, inst, top, Rect{Width: 10, Height: 4}, false)
	tk, ck := nativeKey(t, top), nativeKey(t, child)

	resize := Rect{Width: 40, Height: 12}
	cases := []struct {
		name string
		raw  platform.TermEvent
		want []EventKind
	}{
		{"close top", platform.TermEvent{Window: tk, Close: true}, []EventKind{Quit}},
		{"close child", platform.TermEvent{Window: ck, Close: true}, []EventKind{Close}},
		{"expose", platform.TermEvent{Window: tk, Expose: true}, []EventKind{Paint}},
		{"configure", platform.TermEvent{Window: tk, Configure: &resize}, []EventKind{BoundsChanging}},
		{"press", platform.TermEvent{Window: ck, Button: 1, Pressed: true}, []EventKind{MouseButtonDown}},
		{"release", platform.TermEvent{Window: ck, Button: 3}, []EventKind{MouseButtonUp}},
		{"key", platform.TermEvent{Window: tk, Event: tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)}, []EventKind{KeyDown}},
		{"focus", platform.TermEvent{Window: tk, Event: tcell.NewEventFocus(true)}, []EventKind{MessageCarrier}},
	}
	for _, tc := range cases {
		evs, err := inst.translate(tc.raw)
		if err != nil || !sameKinds(evs, tc.want...) {
			t.Errorf("%s = %v, %v; want %v", tc.name, kinds(evs), err, tc.want)
		}
	}

	unchanged := top.Bounds()
	if evs, _ := inst.translate(platform.TermEvent{Window: tk, Configure: &unchanged}); len(evs) != 0 {
		t.Fatalf("unchanged configure produced %v", kinds(evs))
	}
	if _, err := inst.translate(platform.TermEvent{Window: tk, Button: 8}); !errors.Is(err, ErrTranslation) {
		t.Fatalf("button 8 = %v", err)
	}

	evs, _ := inst.translate(platform.TermEvent{Window: tk, Event: tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModAlt)})
	if k, _ := evs[0].Key(); k.Name == "" || k.Code != uint32(tcell.KeyEnter) || !k.Alt {
		t.Fatalf("enter key = %+v", k)
	}
}
