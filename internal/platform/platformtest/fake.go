// Package platformtest provides a scripted platform.Backend for tests.
package platformtest

import (
	"fmt"
	"sync"

	"github.com/1broseidon/pullwin/internal/platform"
)

// DeleteAtom is the WM_DELETE_WINDOW atom the fake reports.
const DeleteAtom uint32 = 301

// Window records what the fake knows about one native window.
type Window struct {
	Spec      platform.WindowSpec
	Bounds    platform.Rect
	Text      string
	Shown     bool
	Mask      platform.InputMask
	Destroyed bool
}

// Backend is an in-memory platform.Backend. Raw events are scripted with Push;
// NextRawEvent blocks until one is available or the backend is closed.
type Backend struct {
	KindValue platform.Kind
	TwoPhase  bool

	mu       sync.Mutex
	next     platform.NativeKey
	nextRes  uint64
	windows  map[platform.NativeKey]*Window
	live     map[uint64]platform.Resource
	released []platform.Resource
	fail     map[string]error
	calls    []string

	events    chan platform.RawEvent
	closed    chan struct{}
	closeOnce sync.Once
}

var (
	_ platform.Backend       = (*Backend)(nil)
	_ platform.ProtocolAtoms = (*Backend)(nil)
)

// New returns a one-phase (X11-like) fake.
func New() *Backend {
	return &Backend{
		KindValue: platform.KindX11,
		next:      0x400000,
		windows:   make(map[platform.NativeKey]*Window),
		live:      make(map[uint64]platform.Resource),
		fail:      make(map[string]error),
		events:    make(chan platform.RawEvent, 1024),
		closed:    make(chan struct{}),
	}
}

// NewTwoPhase returns a fake that reports two-phase geometry (Win32-like).
func NewTwoPhase() *Backend {
	b := New()
	b.KindValue = platform.KindWin32
	b.TwoPhase = true
	return b
}

// Push scripts raw events for NextRawEvent.
func (b *Backend) Push(evs ...platform.RawEvent) {
	for _, ev := range evs {
		b.events <- ev
	}
}

// FailNext makes the next call of op return err. op is a Backend method name.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[op] = err
}

// Window returns a snapshot of the native window state.
func (b *Backend) Window(key platform.NativeKey) (Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[key]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// LiveWindows counts native windows that were created and not destroyed.
func (b *Backend) LiveWindows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, w := range b.windows {
		if !w.Destroyed {
			n++
		}
	}
	return n
}

// LiveResources counts sub-resources that were created and not released.
func (b *Backend) LiveResources() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// Released returns the resources released so far, in order.
func (b *Backend) Released() []platform.Resource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Resource(nil), b.released...)
}

// Calls returns the method names invoked so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *Backend) Kind() platform.Kind   { return b.KindValue }
func (b *Backend) TwoPhaseGeometry() bool { return b.TwoPhase }
func (b *Backend) DeleteWindowAtom() uint32 {
	return DeleteAtom
}

func (b *Backend) CreateWindow(spec platform.WindowSpec) (platform.NativeKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enterLocked("CreateWindow"); err != nil {
		return 0, err
	}
	b.next++
	b.windows[b.next] = &Window{Spec: spec, Bounds: spec.Bounds, Text: spec.Title}
	return b.next, nil
}

func (b *Backend) DestroyWindow(win platform.NativeKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enterLocked("DestroyWindow"); err != nil {
		return err
	}
	w, err := b.windowLocked(win)
	if err != nil {
		return err
	}
	w.Destroyed = true
	return nil
}

func (b *Backend) ShowWindow(win platform.NativeKey) error {
	return b.update("ShowWindow", win, func(w *Window) { w.Shown = true })
}

func (b *Backend) SetBounds(win platform.NativeKey, r platform.Rect) error {
	return b.update("SetBounds", win, func(w *Window) { w.Bounds = r })
}

func (b *Backend) SetText(win platform.NativeKey, text string) error {
	return b.update("SetText", win, func(w *Window) { w.Text = text })
}

func (b *Backend) SelectInput(win platform.NativeKey, mask platform.InputMask) error {
	return b.update("SelectInput", win, func(w *Window) { w.Mask = mask })
}

func (b *Backend) Reparent(win, parent platform.NativeKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enterLocked("Reparent"); err != nil {
		return err
	}
	w, err := b.windowLocked(win)
	if err != nil {
		return err
	}
	if parent != 0 {
		if _, err := b.windowLocked(parent); err != nil {
			return err
		}
	}
	w.Spec.Parent = parent
	return nil
}

func (b *Backend) CreateContext(win platform.NativeKey) (platform.Resource, error) {
	return b.resource("CreateContext", platform.ResourceContext, win, false)
}

func (b *Backend) CreateColormap(win platform.NativeKey, background *platform.Color) (platform.Resource, error) {
	return b.resource("CreateColormap", platform.ResourceColormap, win, background == nil)
}

func (b *Backend) CreateInputContext(win platform.NativeKey) (platform.Resource, error) {
	return b.resource("CreateInputContext", platform.ResourceInputContext, win, false)
}

func (b *Backend) ReleaseResource(res platform.Resource) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enterLocked("ReleaseResource"); err != nil {
		return err
	}
	if res.Default {
		return fmt.Errorf("platformtest: default %s %d must not be released", res.Class, res.ID)
	}
	if _, ok := b.live[res.ID]; !ok {
		return fmt.Errorf("platformtest: %s %d released twice or never created", res.Class, res.ID)
	}
	delete(b.live, res.ID)
	b.released = append(b.released, res)
	return nil
}

func (b *Backend) NextRawEvent() (platform.RawEvent, error) {
	select {
	case <-b.closed:
		return nil, platform.ErrConnectionClosed
	default:
	}
	select {
	case ev := <-b.events:
		return ev, nil
	case <-b.closed:
		return nil, platform.ErrConnectionClosed
	}
}

func (b *Backend) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func (b *Backend) update(op string, win platform.NativeKey, fn func(*Window)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enterLocked(op); err != nil {
		return err
	}
	w, err := b.windowLocked(win)
	if err != nil {
		return err
	}
	fn(w)
	return nil
}

func (b *Backend) resource(op string, class platform.ResourceClass, win platform.NativeKey, def bool) (platform.Resource, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enterLocked(op); err != nil {
		return platform.Resource{}, err
	}
	if _, err := b.windowLocked(win); err != nil {
		return platform.Resource{}, err
	}
	b.nextRes++
	res := platform.Resource{Class: class, Window: win, ID: b.nextRes, Default: def}
	if !def {
		b.live[res.ID] = res
	}
	return res, nil
}

func (b *Backend) enterLocked(op string) error {
	b.calls = append(b.calls, op)
	if err, ok := b.fail[op]; ok {
		delete(b.fail, op)
		return err
	}
	select {
	case <-b.closed:
		return platform.ErrConnectionClosed
	default:
	}
	return nil
}

func (b *Backend) windowLocked(win platform.NativeKey) (*Window, error) {
	w, ok := b.windows[win]
	if !ok || w.Destroyed {
		return nil, fmt.Errorf("%w: window %d", platform.ErrInvalidParameter, win)
	}
	return w, nil
}
