package platform

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func newTestTerm(t *testing.T) *TermBackend {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	b, err := OpenTerm(screen)
	if err != nil {
		t.Fatalf("OpenTerm: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func mustCreate(t *testing.T, b *TermBackend, spec WindowSpec) NativeKey {
	t.Helper()
	key, err := b.CreateWindow(spec)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	return key
}

func TestTermBackend_ShowQueuesExposeAndDrawsTitle(t *testing.T) {
	b := newTestTerm(t)
	key := mustCreate(t, b, WindowSpec{Title: "hello", Bounds: Rect{X: 2, Y: 1, Width: 20, Height: 5}, TopLevel: true})
	if err := b.ShowWindow(key); err != nil {
		t.Fatalf("ShowWindow: %v", err)
	}

	raw, err := b.NextRawEvent()
	if err != nil {
		t.Fatalf("NextRawEvent: %v", err)
	}
	ev, ok := raw.(TermEvent)
	if !ok || !ev.Expose || ev.Window != key {
		t.Fatalf("NextRawEvent = %#v, want expose for %d", raw, key)
	}

	got, _, _, _ := b.screen.GetContent(2, 1)
	if got != 'h' {
		t.Fatalf("title cell = %q, want 'h'", got)
	}
}

func TestTermBackend_WideTitleIsClipped(t *testing.T) {
	b := newTestTerm(t)
	key := mustCreate(t, b, WindowSpec{Title: "日本語", Bounds: Rect{Width: 5, Height: 3}, TopLevel: true})
	if err := b.ShowWindow(key); err != nil {
		t.Fatalf("ShowWindow: %v", err)
	}

	if got, _, _, _ := b.screen.GetContent(0, 0); got != '日' {
		t.Fatalf("cell 0 = %q", got)
	}
	if got, _, _, _ := b.screen.GetContent(2, 0); got != '本' {
		t.Fatalf("cell 2 = %q", got)
	}
	if got, _, _, _ := b.screen.GetContent(4, 0); got == '語' {
		t.Fatal("title overflowed the window")
	}
}

func TestTermBackend_SetBoundsQueuesConfigure(t *testing.T) {
	b := newTestTerm(t)
	key := mustCreate(t, b, WindowSpec{Bounds: Rect{Width: 10, Height: 4}, TopLevel: true})
	want := Rect{X: 1, Y: 1, Width: 12, Height: 4}
	if err := b.SetBounds(key, want); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	raw, err := b.NextRawEvent()
	if err != nil {
		t.Fatalf("NextRawEvent: %v", err)
	}
	ev := raw.(TermEvent)
	if ev.Configure == nil || *ev.Configure != want {
		t.Fatalf("Configure = %v, want %v", ev.Configure, want)
	}
}

func TestTermBackend_RejectsBadRequests(t *testing.T) {
	b := newTestTerm(t)
	if _, err := b.CreateWindow(WindowSpec{Parent: 42, Bounds: Rect{Width: 1, Height: 1}}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("CreateWindow with unknown parent = %v", err)
	}
	if _, err := b.CreateWindow(WindowSpec{Bounds: Rect{Width: 0, Height: 3}}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("CreateWindow with empty bounds = %v", err)
	}
	if err := b.ShowWindow(99); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("ShowWindow unknown = %v", err)
	}
}

func TestTermBackend_DestroyRemovesSubtree(t *testing.T) {
	b := newTestTerm(t)
	top := mustCreate(t, b, WindowSpec{Bounds: Rect{Width: 30, Height: 10}, TopLevel: true})
	child := mustCreate(t, b, WindowSpec{Parent: top, Bounds: Rect{X: 1, Y: 1, Width: 5, Height: 2}})
	other := mustCreate(t, b, WindowSpec{Bounds: Rect{Width: 3, Height: 3}, TopLevel: true})

	if err := b.DestroyWindow(top); err != nil {
		t.Fatalf("DestroyWindow: %v", err)
	}
	if _, ok := b.windows[child]; ok {
		t.Fatal("child survived parent destruction")
	}
	if _, ok := b.windows[other]; !ok {
		t.Fatal("unrelated window was destroyed")
	}
	if err := b.DestroyWindow(child); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("DestroyWindow twice = %v", err)
	}
}

func TestTermBackend_ReparentMovesSubtree(t *testing.T) {
	b := newTestTerm(t)
	top := mustCreate(t, b, WindowSpec{Bounds: Rect{Width: 40, Height: 20}, TopLevel: true})
	p := mustCreate(t, b, WindowSpec{Parent: top, Bounds: Rect{Width: 10, Height: 10}})
	w := mustCreate(t, b, WindowSpec{Parent: p, Bounds: Rect{X: 1, Y: 1, Width: 5, Height: 5}})
	g := mustCreate(t, b, WindowSpec{Parent: w, Bounds: Rect{Width: 2, Height: 2}})
	q := mustCreate(t, b, WindowSpec{Parent: top, Bounds: Rect{X: 20, Width: 10, Height: 10}})

	if err := b.Reparent(w, q); err != nil {
		t.Fatalf("Reparent: %v", err)
	}
	pos := make(map[NativeKey]int)
	for i, k := range b.order {
		pos[k] = i
	}
	if !(pos[q] < pos[w] && pos[w] < pos[g]) {
		t.Fatalf("order %v does not list parents first", b.order)
	}
	if got := b.absLocked(w); got.X != 21 || got.Y != 1 {
		t.Fatalf("absolute bounds after reparent = %v", got)
	}

	if err := b.DestroyWindow(p); err != nil {
		t.Fatalf("DestroyWindow(p): %v", err)
	}
	if _, ok := b.windows[w]; !ok {
		t.Fatal("reparented window died with its old parent")
	}
	if err := b.ShowWindow(w); err != nil {
		t.Fatalf("ShowWindow after old parent destroyed: %v", err)
	}
	if err := b.DestroyWindow(q); err != nil {
		t.Fatalf("DestroyWindow(q): %v", err)
	}
	if _, ok := b.windows[g]; ok {
		t.Fatal("grandchild survived its new ancestor")
	}
}

func TestTermBackend_ReparentRejectsCycle(t *testing.T) {
	b := newTestTerm(t)
	a := mustCreate(t, b, WindowSpec{Bounds: Rect{Width: 10, Height: 10}})
	c := mustCreate(t, b, WindowSpec{Parent: a, Bounds: Rect{Width: 5, Height: 5}})

	if err := b.Reparent(a, c); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Reparent under own child = %v", err)
	}
	if err := b.Reparent(c, 99); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Reparent under unknown = %v", err)
	}
	if b.windows[a].parent != 0 || b.windows[c].parent != a {
		t.Fatal("failed reparent changed links")
	}
}

func TestTermBackend_ResourcesReleaseOnce(t *testing.T) {
	b := newTestTerm(t)
	key := mustCreate(t, b, WindowSpec{Bounds: Rect{Width: 3, Height: 3}})

	ctx, err := b.CreateContext(key)
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	def, err := b.CreateColormap(key, nil)
	if err != nil || !def.Default {
		t.Fatalf("CreateColormap(nil) = %+v, %v; want default", def, err)
	}
	own, err := b.CreateColormap(key, &Color{R: 10})
	if err != nil || own.Default {
		t.Fatalf("CreateColormap(color) = %+v, %v", own, err)
	}

	for _, res := range []Resource{ctx, own} {
		if err := b.ReleaseResource(res); err != nil {
			t.Fatalf("ReleaseResource(%s): %v", res.Class, err)
		}
		if err := b.ReleaseResource(res); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("second ReleaseResource(%s) = %v", res.Class, err)
		}
	}
	if err := b.ReleaseResource(def); err != nil {
		t.Fatalf("ReleaseResource(default) = %v", err)
	}
}

func TestTermBackend_RouteKeys(t *testing.T) {
	b := newTestTerm(t)
	key := mustCreate(t, b, WindowSpec{Bounds: Rect{Width: 10, Height: 5}, TopLevel: true})
	_ = b.ShowWindow(key)
	b.pending = nil

	// Not selected: dropped.
	if got := b.routeLocked(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone)); len(got) != 0 {
		t.Fatalf("unselected key routed: %#v", got)
	}
	// Close chord is always routed.
	got := b.routeLocked(tcell.NewEventKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl))
	if len(got) != 1 || !got[0].Close || got[0].Window != key {
		t.Fatalf("Ctrl+Q routed as %#v", got)
	}

	_ = b.SelectInput(key, InputKeys)
	got = b.routeLocked(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
	if len(got) != 1 || got[0].Window != key || got[0].Event == nil {
		t.Fatalf("selected key routed as %#v", got)
	}
}

func TestTermBackend_RouteMouseTransitions(t *testing.T) {
	b := newTestTerm(t)
	top := mustCreate(t, b, WindowSpec{Bounds: Rect{X: 0, Y: 0, Width: 40, Height: 20}, TopLevel: true})
	child := mustCreate(t, b, WindowSpec{Parent: top, Bounds: Rect{X: 10, Y: 5, Width: 8, Height: 4}})
	_ = b.ShowWindow(top)
	_ = b.ShowWindow(child)
	_ = b.SelectInput(child, InputButtons)

	down := b.routeLocked(tcell.NewEventMouse(12, 6, tcell.ButtonPrimary, tcell.ModNone))
	if len(down) != 1 {
		t.Fatalf("press produced %d events", len(down))
	}
	if down[0].Window != child || down[0].Button != 1 || !down[0].Pressed {
		t.Fatalf("press = %#v", down[0])
	}
	if down[0].Point != (Point{X: 2, Y: 1}) {
		t.Fatalf("press point = %v, want (2,1) relative to child", down[0].Point)
	}

	up := b.routeLocked(tcell.NewEventMouse(12, 6, tcell.ButtonNone, tcell.ModNone))
	if len(up) != 1 || up[0].Button != 1 || up[0].Pressed {
		t.Fatalf("release = %#v", up)
	}

	// Motion without transitions becomes a plain routed event.
	move := b.routeLocked(tcell.NewEventMouse(1, 1, tcell.ButtonNone, tcell.ModNone))
	if len(move) != 1 || move[0].Window != top || move[0].Button != 0 {
		t.Fatalf("motion = %#v", move)
	}
}

func TestTermBackend_CloseEndsEvents(t *testing.T) {
	b := newTestTerm(t)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := b.NextRawEvent(); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("NextRawEvent after Close = %v", err)
	}
	if _, err := b.CreateWindow(WindowSpec{Bounds: Rect{Width: 1, Height: 1}}); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("CreateWindow after Close = %v", err)
	}
}

func TestTermBackend_ScreensReportsTerminalSize(t *testing.T) {
	b := newTestTerm(t)
	screens, err := b.Screens()
	if err != nil {
		t.Fatalf("Screens: %v", err)
	}
	if len(screens) != 1 || screens[0] != (Rect{Width: 80, Height: 24}) {
		t.Fatalf("Screens = %v, want one 80x24 screen", screens)
	}
}
