package platform

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// TermBackend renders windows as cell rectangles on a tcell screen. It builds on
// every platform and serves headless hosts and terminals without a display.
type TermBackend struct {
	screen tcell.Screen

	mu        sync.Mutex
	nextKey   NativeKey
	windows   map[NativeKey]*cellWindow
	order     []NativeKey // stacking order, last is topmost
	focus     NativeKey
	buttons   tcell.ButtonMask
	nextRes   uint64
	resources map[uint64]tcell.Style
	pending   []TermEvent
	closed    bool
}

type cellWindow struct {
	parent   NativeKey
	bounds   Rect
	title    string
	bg       *Color
	topLevel bool
	visible  bool
	mask     InputMask
}

var (
	_ Backend      = (*TermBackend)(nil)
	_ ScreenLister = (*TermBackend)(nil)
)

// OpenTerm initializes screen, or the process terminal when screen is nil.
func OpenTerm(screen tcell.Screen) (*TermBackend, error) {
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("open terminal: %w", err)
		}
		screen = s
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset))
	screen.EnableMouse()
	screen.HideCursor()
	screen.Clear()

	return &TermBackend{
		screen:    screen,
		windows:   make(map[NativeKey]*cellWindow),
		resources: make(map[uint64]tcell.Style),
	}, nil
}

func (b *TermBackend) Kind() Kind { return KindTerm }

// TwoPhaseGeometry is false: geometry changes are reported once.
func (b *TermBackend) TwoPhaseGeometry() bool { return false }

func (b *TermBackend) CreateWindow(spec WindowSpec) (NativeKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrConnectionClosed
	}
	if spec.Parent != 0 {
		if _, ok := b.windows[spec.Parent]; !ok {
			return 0, fmt.Errorf("%w: parent window %d does not exist", ErrInvalidParameter, spec.Parent)
		}
	}
	if spec.Bounds.Empty() {
		return 0, fmt.Errorf("%w: empty bounds %s", ErrInvalidParameter, spec.Bounds)
	}
	b.nextKey++
	key := b.nextKey
	b.windows[key] = &cellWindow{
		parent:   spec.Parent,
		bounds:   spec.Bounds,
		title:    spec.Title,
		bg:       spec.Background,
		topLevel: spec.TopLevel,
	}
	b.order = append(b.order, key)
	return key, nil
}

// DestroyWindow removes the window and its subwindows.
func (b *TermBackend) DestroyWindow(win NativeKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.windows[win]; !ok {
		return fmt.Errorf("%w: window %d does not exist", ErrInvalidParameter, win)
	}
	doomed := map[NativeKey]bool{win: true}
	// order lists parents before their children, so one pass collects the subtree.
	for _, k := range b.order {
		if w := b.windows[k]; w != nil && doomed[w.parent] {
			doomed[k] = true
		}
	}
	kept := b.order[:0]
	for _, k := range b.order {
		if doomed[k] {
			delete(b.windows, k)
			continue
		}
		kept = append(kept, k)
	}
	b.order = kept
	if doomed[b.focus] {
		b.focus = 0
	}
	b.redrawLocked()
	return nil
}

func (b *TermBackend) ShowWindow(win NativeKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[win]
	if !ok {
		return fmt.Errorf("%w: window %d does not exist", ErrInvalidParameter, win)
	}
	w.visible = true
	if w.topLevel || b.focus == 0 {
		b.focus = win
	}
	b.redrawLocked()
	b.pending = append(b.pending, TermEvent{Window: win, Expose: true})
	return nil
}

func (b *TermBackend) SetBounds(win NativeKey, bounds Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[win]
	if !ok {
		return fmt.Errorf("%w: window %d does not exist", ErrInvalidParameter, win)
	}
	w.bounds = bounds
	b.redrawLocked()
	r := bounds
	b.pending = append(b.pending, TermEvent{Window: win, Configure: &r})
	return nil
}

func (b *TermBackend) SetText(win NativeKey, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[win]
	if !ok {
		return fmt.Errorf("%w: window %d does not exist", ErrInvalidParameter, win)
	}
	w.title = text
	b.redrawLocked()
	return nil
}

func (b *TermBackend) SelectInput(win NativeKey, mask InputMask) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[win]
	if !ok {
		return fmt.Errorf("%w: window %d does not exist", ErrInvalidParameter, win)
	}
	w.mask = mask
	return nil
}

// Reparent moves win and its subwindows to the top of the stacking order under
// parent, so order keeps listing parents before their children.
func (b *TermBackend) Reparent(win, parent NativeKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[win]
	if !ok {
		return fmt.Errorf("%w: window %d does not exist", ErrInvalidParameter, win)
	}
	if parent != 0 {
		if _, ok := b.windows[parent]; !ok {
			return fmt.Errorf("%w: parent window %d does not exist", ErrInvalidParameter, parent)
		}
	}
	for p := parent; p != 0; {
		if p == win {
			return fmt.Errorf("%w: window %d cannot be its own ancestor", ErrInvalidParameter, win)
		}
		pw, ok := b.windows[p]
		if !ok {
			break
		}
		p = pw.parent
	}
	w.parent = parent

	moved := map[NativeKey]bool{win: true}
	for _, k := range b.order {
		if cw := b.windows[k]; cw != nil && moved[cw.parent] {
			moved[k] = true
		}
	}
	kept := make([]NativeKey, 0, len(b.order))
	var tail []NativeKey
	for _, k := range b.order {
		if moved[k] {
			tail = append(tail, k)
		} else {
			kept = append(kept, k)
		}
	}
	b.order = append(kept, tail...)
	b.redrawLocked()
	return nil
}

func (b *TermBackend) CreateContext(win NativeKey) (Resource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[win]
	if !ok {
		return Resource{}, fmt.Errorf("%w: window %d does not exist", ErrInvalidParameter, win)
	}
	b.nextRes++
	b.resources[b.nextRes] = styleFor(w.bg)
	return Resource{Class: ResourceContext, Window: win, ID: b.nextRes}, nil
}

// CreateColormap registers a background style; without a color the screen's
// default style is shared.
func (b *TermBackend) CreateColormap(win NativeKey, background *Color) (Resource, error) {
	if background == nil {
		return Resource{Class: ResourceColormap, Window: win, Default: true}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextRes++
	b.resources[b.nextRes] = styleFor(background)
	return Resource{Class: ResourceColormap, Window: win, ID: b.nextRes}, nil
}

// CreateInputContext returns the shared terminal input stream.
func (b *TermBackend) CreateInputContext(win NativeKey) (Resource, error) {
	return Resource{Class: ResourceInputContext, Window: win, Default: true}, nil
}

func (b *TermBackend) ReleaseResource(res Resource) error {
	if res.Default {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.resources[res.ID]; !ok {
		return fmt.Errorf("%w: %s %d already released", ErrInvalidParameter, res.Class, res.ID)
	}
	delete(b.resources, res.ID)
	return nil
}

// NextRawEvent returns synthesized notifications first, then polls the terminal.
func (b *TermBackend) NextRawEvent() (RawEvent, error) {
	for {
		b.mu.Lock()
		if len(b.pending) > 0 {
			ev := b.pending[0]
			b.pending = b.pending[1:]
			b.mu.Unlock()
			return ev, nil
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return nil, ErrConnectionClosed
		}

		ev := b.screen.PollEvent()
		if ev == nil {
			return nil, ErrConnectionClosed
		}
		b.mu.Lock()
		b.pending = append(b.pending, b.routeLocked(ev)...)
		b.mu.Unlock()
	}
}

// Screens reports the terminal size in cells.
func (b *TermBackend) Screens() ([]Rect, error) {
	w, h := b.screen.Size()
	return []Rect{{Width: w, Height: h}}, nil
}

// Close restores the terminal; a blocked PollEvent returns nil afterwards.
func (b *TermBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.screen.Fini()
	return nil
}

// routeLocked assigns a terminal event to the cell window it concerns. Keys go
// to the focused window; Ctrl+Q on it is the close request. Mouse events go to
// the topmost window under the pointer and split into one event per button
// transition.
func (b *TermBackend) routeLocked(ev tcell.Event) []TermEvent {
	switch e := ev.(type) {
	case *tcell.EventResize:
		b.screen.Sync()
		b.redrawLocked()
		var out []TermEvent
		for _, k := range b.order {
			if b.shownLocked(k) {
				out = append(out, TermEvent{Window: k, Event: ev, Expose: true})
			}
		}
		return out

	case *tcell.EventKey:
		w, ok := b.windows[b.focus]
		if !ok {
			return nil
		}
		if e.Key() == tcell.KeyCtrlQ {
			return []TermEvent{{Window: b.focus, Event: ev, Close: true}}
		}
		if w.mask&InputKeys == 0 {
			return nil
		}
		return []TermEvent{{Window: b.focus, Event: ev}}

	case *tcell.EventMouse:
		x, y := e.Position()
		target, origin := b.hitLocked(x, y)
		prev := b.buttons
		b.buttons = e.Buttons()
		if target == 0 {
			return nil
		}
		pt := Point{X: x - origin.X, Y: y - origin.Y}
		var out []TermEvent
		if b.windows[target].mask&InputButtons != 0 {
			for _, bt := range mouseButtons {
				was, now := prev&bt.mask != 0, b.buttons&bt.mask != 0
				if was != now {
					out = append(out, TermEvent{Window: target, Event: ev, Button: bt.number, Pressed: now, Point: pt})
				}
			}
		}
		if b.buttons&tcell.ButtonPrimary != 0 && prev&tcell.ButtonPrimary == 0 {
			b.focus = target
		}
		if len(out) == 0 {
			out = append(out, TermEvent{Window: target, Event: ev, Point: pt})
		}
		return out
	}

	if b.focus == 0 {
		return nil
	}
	return []TermEvent{{Window: b.focus, Event: ev}}
}

// X11 numbering: left, middle, right.
var mouseButtons = []struct {
	mask   tcell.ButtonMask
	number int
}{
	{tcell.ButtonPrimary, 1},
	{tcell.ButtonMiddle, 2},
	{tcell.ButtonSecondary, 3},
}

func (b *TermBackend) absLocked(key NativeKey) Rect {
	w := b.windows[key]
	r := w.bounds
	for p := w.parent; p != 0; {
		pw, ok := b.windows[p]
		if !ok {
			break
		}
		r.X += pw.bounds.X
		r.Y += pw.bounds.Y
		p = pw.parent
	}
	return r
}

// shownLocked reports whether key and every ancestor are visible.
func (b *TermBackend) shownLocked(key NativeKey) bool {
	for key != 0 {
		w, ok := b.windows[key]
		if !ok || !w.visible {
			return false
		}
		key = w.parent
	}
	return true
}

func (b *TermBackend) hitLocked(x, y int) (NativeKey, Point) {
	for i := len(b.order) - 1; i >= 0; i-- {
		k := b.order[i]
		if !b.shownLocked(k) {
			continue
		}
		r := b.absLocked(k)
		if r.Contains(x, y) {
			return k, Point{X: r.X, Y: r.Y}
		}
	}
	return 0, Point{}
}

func (b *TermBackend) redrawLocked() {
	b.screen.Clear()
	for _, k := range b.order {
		if !b.shownLocked(k) {
			continue
		}
		w := b.windows[k]
		r := b.absLocked(k)
		style := styleFor(w.bg)
		for y := r.Y; y < r.Y+r.Height; y++ {
			for x := r.X; x < r.X+r.Width; x++ {
				b.screen.SetContent(x, y, ' ', nil, style)
			}
		}
		if w.topLevel {
			// Wide runes take two cells; the title is clipped to the window.
			x := r.X
			for _, ch := range w.title {
				cw := runewidth.RuneWidth(ch)
				if cw == 0 {
					continue
				}
				if x+cw > r.X+r.Width {
					break
				}
				b.screen.SetContent(x, r.Y, ch, nil, style.Reverse(true))
				x += cw
			}
		}
	}
	b.screen.Show()
}

func styleFor(c *Color) tcell.Style {
	if c == nil {
		return tcell.StyleDefault
	}
	return tcell.StyleDefault.Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}
