// Package pullwin is a pull-based windowing layer over X11, Win32 and terminal
// cell backends. The application creates windows through an Instance, pulls one
// event at a time with NextEvent, and decides whether to Dispatch it.
package pullwin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/pullwin/internal/handle"
	"github.com/1broseidon/pullwin/internal/platform"
	"github.com/1broseidon/pullwin/internal/registry"
	"github.com/1broseidon/pullwin/internal/widget"
)

type (
	// Backend is the native adapter an Instance drives.
	Backend = platform.Backend
	// PlatformOptions selects and configures the adapter opened by New.
	PlatformOptions = platform.Options
	// Signal is a lifecycle notification about a window.
	Signal = widget.Signal
	// SignalKind is the closed set of lifecycle signals.
	SignalKind = widget.SignalKind
)

const (
	SignalCreated            = widget.SignalCreated
	SignalBoundsChanged      = widget.SignalBoundsChanged
	SignalDestroyWindow      = widget.SignalDestroyWindow
	SignalDestroyApplication = widget.SignalDestroyApplication
)

// Options configures an Instance.
type Options struct {
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
	// Backend is used as-is when set; otherwise Platform selects one.
	Backend  Backend
	Platform PlatformOptions
	// Observer is called with every event NextEvent returns.
	Observer func(*Event)
}

// Instance owns one connection to the windowing system together with the
// window registry, the ownership graph and the event queue. A single goroutine
// should consume events; Close may be called from anywhere.
//
// On backends bound to one OS thread (Win32), Close from another goroutine only
// wakes the pumping goroutine; the windows are torn down when NextEvent next
// runs there, or when Close is called on that thread.
type Instance struct {
	log      *slog.Logger
	backend  platform.Backend
	conn     *handle.Owner[platform.Backend]
	observer func(*Event)

	twoPhase   bool
	deleteAtom uint32

	windows *registry.Registry[platform.NativeKey, *Window]
	byID    *registry.Registry[widget.ID, *Window]
	graph   *widget.Graph
	slots   *widget.Slots

	qmu   sync.Mutex
	queue []*Event

	quit   atomic.Bool
	closed atomic.Bool

	shutdownOnce sync.Once
}

// New opens a connection and returns an Instance around it.
func New(opts Options) (*Instance, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := opts.Backend
	if b == nil {
		var err error
		b, err = platform.Open(opts.Platform)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
	}

	i := &Instance{
		log:      logger,
		backend:  b,
		conn:     handle.New("connection", b, func(b platform.Backend) error { return b.Close() }),
		observer: opts.Observer,
		twoPhase: b.TwoPhaseGeometry(),
		windows:  registry.New[platform.NativeKey, *Window](),
		byID:     registry.New[widget.ID, *Window](),
		graph:    widget.NewGraph(),
		slots:    widget.NewSlots(),
	}
	if p, ok := b.(platform.ProtocolAtoms); ok {
		i.deleteAtom = p.DeleteWindowAtom()
	}
	logger.Debug("instance opened", "backend", string(b.Kind()), "two_phase_geometry", i.twoPhase)
	return i, nil
}

// Backend reports which adapter the instance runs on.
func (i *Instance) Backend() BackendKind { return i.backend.Kind() }

// Connect registers fn for signals of kind. Handlers run in registration order
// after the instance's own handling. SignalDestroyWindow is delivered once for
// every window torn down, descendants before their ancestors, including the
// windows Close destroys.
func (i *Instance) Connect(kind SignalKind, fn func(Signal) error) {
	i.slots.Connect(kind, fn)
}

// CreateWindow creates a native window with its drawing context, colormap and
// input context. Either all of them are created or none is. Top-level windows
// are roots of the ownership graph and cannot have a parent.
func (i *Instance) CreateWindow(parent *Window, text string, bounds Rect, background *Color, topLevel bool) (*Window, error) {
	if i.closed.Load() {
		return nil, ErrInstanceClosed
	}
	if err := validateBounds(bounds); err != nil {
		return nil, err
	}
	if parent != nil {
		if topLevel {
			return nil, fmt.Errorf("create window: %w", ErrAlreadyHasIncompatibleParent)
		}
		if parent.inst != i {
			return nil, errors.New("pullwin: parent belongs to another instance")
		}
		if parent.Destroyed() {
			return nil, fmt.Errorf("create window: parent: %w", ErrWindowDestroyed)
		}
	}

	b, err := i.conn.Get()
	if err != nil {
		return nil, ErrInstanceClosed
	}

	spec := platform.WindowSpec{Title: text, Bounds: bounds, Background: background, TopLevel: topLevel}
	if parent != nil {
		spec.Parent = parent.key
	}
	key, err := b.CreateWindow(spec)
	if err != nil {
		return nil, wrapBackendError("create window", err)
	}
	native := handle.NewDependent("window", key, b.DestroyWindow, i.conn)

	var owned []*handle.Owner[platform.Resource]
	rollback := func(cause error) error {
		for j := len(owned) - 1; j >= 0; j-- {
			_ = owned[j].Release()
		}
		if err := native.Release(); err != nil {
			i.log.Warn("rollback: destroy native window", "error", err)
		}
		return cause
	}

	ctx, err := b.CreateContext(key)
	if err != nil {
		return nil, rollback(wrapBackendError("create drawing context", err))
	}
	owned = append(owned, i.resourceHandle(b, ctx))

	cmap, err := b.CreateColormap(key, background)
	if err != nil {
		return nil, rollback(wrapBackendError("create colormap", err))
	}
	owned = append(owned, i.resourceHandle(b, cmap))

	ic, err := b.CreateInputContext(key)
	if err != nil {
		return nil, rollback(wrapBackendError("create input context", err))
	}
	owned = append(owned, i.resourceHandle(b, ic))

	w := &Window{
		inst:     i,
		key:      key,
		topLevel: topLevel,
		native:   native,
		context:  owned[0],
		colormap: owned[1],
		input:    owned[2],
		bounds:   bounds,
		text:     text,
		receive:  make(map[EventKind]bool),
	}
	w.id = i.graph.Add(topLevel)
	if parent != nil {
		if err := i.graph.SetParent(w.id, parent.id); err != nil {
			i.graph.Remove(w.id)
			return nil, rollback(fmt.Errorf("create window: %w", err))
		}
	}
	i.windows.Insert(key, w)
	i.byID.Insert(w.id, w)

	i.log.Debug("window created", "id", w.id, "native", uint64(key), "top_level", topLevel, "bounds", bounds.String())
	if err := i.emit(widget.Signal{Kind: widget.SignalCreated, Source: w.id}); err != nil {
		// A window whose creation was refused by a slot is never handed out.
		if rerr := i.destroySubtree(w.id, false); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return nil, fmt.Errorf("create window: %w", err)
	}
	return w, nil
}

func (i *Instance) resourceHandle(b platform.Backend, res platform.Resource) *handle.Owner[platform.Resource] {
	if res.Default {
		return handle.Default(res.Class.String(), res, i.conn)
	}
	return handle.NewDependent(res.Class.String(), res, b.ReleaseResource, i.conn)
}

// Lookup returns the window registered under a native handle.
func (i *Instance) Lookup(native uint64) (*Window, bool) {
	return i.windows.Lookup(platform.NativeKey(native))
}

// Windows returns the live windows ordered by ID.
func (i *Instance) Windows() []*Window {
	return i.byID.Values(func(a, b *Window) bool { return a.id < b.id })
}

// Screens reports monitor work areas when the backend can list them.
func (i *Instance) Screens() ([]Rect, error) {
	sl, ok := i.backend.(platform.ScreenLister)
	if !ok {
		return nil, fmt.Errorf("%w: %s backend cannot list screens", ErrUnsupported, i.backend.Kind())
	}
	return sl.Screens()
}

// QueueEvent appends ev to the pending queue.
func (i *Instance) QueueEvent(ev *Event) {
	i.QueueEvents(ev)
}

// QueueEvents appends evs to the pending queue in order.
func (i *Instance) QueueEvents(evs ...*Event) {
	if len(evs) == 0 {
		return
	}
	i.qmu.Lock()
	defer i.qmu.Unlock()
	for _, ev := range evs {
		if ev != nil {
			i.queue = append(i.queue, ev)
		}
	}
}

func (i *Instance) popEvent() *Event {
	i.qmu.Lock()
	defer i.qmu.Unlock()
	if len(i.queue) == 0 {
		return nil
	}
	ev := i.queue[0]
	i.queue[0] = nil
	i.queue = i.queue[1:]
	return ev
}

// Pending reports the number of queued events.
func (i *Instance) Pending() int {
	i.qmu.Lock()
	defer i.qmu.Unlock()
	return len(i.queue)
}

// NextEvent returns the next queued event, blocking on the backend when the
// queue is empty. Events for windows that did not opt into their kind are
// dropped. A raw event that fails translation is reported as a
// *TranslationError after its well-formed events were queued; calling
// NextEvent again continues.
func (i *Instance) NextEvent() (*Event, error) {
	for {
		if i.closed.Load() {
			return nil, i.closedError(nil)
		}
		if ev := i.popEvent(); ev != nil {
			if i.observer != nil {
				i.observer(ev)
			}
			return ev, nil
		}

		b, err := i.conn.Get()
		if err != nil {
			return nil, i.closedError(nil)
		}
		raw, err := b.NextRawEvent()
		if err != nil {
			if errors.Is(err, platform.ErrConnectionClosed) || i.closed.Load() {
				i.closed.Store(true)
				return nil, i.closedError(err)
			}
			return nil, fmt.Errorf("next native event: %w", err)
		}

		evs, terr := i.translate(raw)
		kept := evs[:0]
		for _, ev := range evs {
			if ev.window.Receives(ev.kind) {
				kept = append(kept, ev)
			}
		}
		i.QueueEvents(kept...)
		if terr != nil {
			i.log.Warn("raw event translation failed", "error", terr)
			return nil, terr
		}
	}
}

// translate converts one raw event. Events for unknown windows are dropped.
func (i *Instance) translate(raw platform.RawEvent) ([]*Event, error) {
	w, ok := i.windows.Lookup(raw.Target())
	if !ok {
		i.log.Debug("dropping raw event for unregistered window", "native", uint64(raw.Target()), "raw", fmt.Sprintf("%T", raw))
		return nil, nil
	}

	var (
		evs []*Event
		err error
	)
	switch r := raw.(type) {
	case platform.XEvent:
		evs, err = i.translateX11(w, r)
	case platform.Win32Message:
		evs, err = i.translateWin32(w, r)
	case platform.TermEvent:
		evs, err = i.translateTerm(w, r)
	default:
		err = &TranslationError{Backend: i.backend.Kind(), Raw: fmt.Sprintf("%T", raw), Reason: "unknown raw event type"}
	}
	if i.log.Enabled(context.Background(), slog.LevelDebug) {
		for _, ev := range evs {
			i.log.Debug("translated", "event", ev.String())
		}
	}
	return evs, err
}

// Run pulls and dispatches events until an exit event is dispatched, the
// application is destroyed, or the instance closes. fn, when set, sees every
// event first; returning SkipDispatch leaves that event undispatched, any other
// error stops the loop. Translation errors are logged and skipped.
func (i *Instance) Run(fn func(*Event) error) error {
	for {
		ev, err := i.NextEvent()
		switch {
		case errors.Is(err, ErrInstanceClosed):
			return nil
		case errors.Is(err, ErrTranslation):
			continue
		case err != nil:
			return err
		}

		dispatch := true
		if fn != nil {
			if herr := fn(ev); errors.Is(herr, SkipDispatch) {
				dispatch = false
			} else if herr != nil {
				return herr
			}
		}
		if dispatch {
			if derr := ev.Dispatch(); derr != nil {
				if !errors.Is(derr, ErrWindowDestroyed) {
					return derr
				}
				i.log.Debug("event for destroyed window", "event", ev.String())
			}
		}
		if ev.IsExitEvent() || i.quit.Load() {
			return nil
		}
	}
}

// QuitRequested reports whether a DestroyApplication signal was raised.
func (i *Instance) QuitRequested() bool { return i.quit.Load() }

// emit runs the instance's own handling for sig, then the user slots.
func (i *Instance) emit(sig widget.Signal) error {
	switch sig.Kind {
	case widget.SignalDestroyWindow:
		// destroySubtree notifies the slots once per window.
		return i.destroySubtree(sig.Source, true)
	case widget.SignalDestroyApplication:
		i.quit.Store(true)
	}
	return i.slots.Emit(sig)
}

// destroySubtree tears down id and its descendants, deepest first, and removes
// them from the registry and the graph. With notify set each torn-down window
// raises its own SignalDestroyWindow.
func (i *Instance) destroySubtree(id widget.ID, notify bool) error {
	ids := append(i.graph.Descendants(id), id)
	var errs []error
	for _, cid := range ids {
		w, ok := i.byID.Remove(cid)
		if !ok {
			continue
		}
		i.windows.Remove(w.key)
		i.graph.Remove(cid)
		if did, err := w.teardown(); err != nil {
			errs = append(errs, fmt.Errorf("window %d: %w", cid, err))
		} else if did {
			i.log.Debug("window destroyed", "id", cid, "native", uint64(w.key))
		}
		if notify {
			if err := i.slots.Emit(widget.Signal{Kind: widget.SignalDestroyWindow, Source: cid}); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close destroys every window, releases their resources and closes the
// connection. A NextEvent blocked in another goroutine returns
// ErrInstanceClosed. Close is idempotent.
//
// On a thread-bound backend, Close from a goroutine other than the owner only
// marks the instance closed and wakes the owner's NextEvent, which then does
// the teardown on the owner thread.
func (i *Instance) Close() error {
	i.closed.Store(true)
	if tb, ok := i.backend.(platform.ThreadBound); ok && !tb.OnOwnerThread() {
		i.log.Debug("close requested off the owner thread")
		tb.Wake()
		return nil
	}
	return i.shutdown()
}

// closedError finishes a pending shutdown and returns ErrInstanceClosed, with
// cause attached when the backend reported one.
func (i *Instance) closedError(cause error) error {
	if err := i.shutdown(); err != nil {
		i.log.Warn("shutdown", "error", err)
	}
	if cause != nil {
		return fmt.Errorf("%w: %v", ErrInstanceClosed, cause)
	}
	return ErrInstanceClosed
}

// shutdown runs once; later calls return nil.
func (i *Instance) shutdown() error {
	var err error
	i.shutdownOnce.Do(func() { err = i.destroyAll() })
	return err
}

func (i *Instance) destroyAll() error {
	var errs []error
	for _, w := range i.Windows() {
		if _, hasParent := i.graph.Parent(w.id); hasParent {
			continue
		}
		if err := i.destroySubtree(w.id, true); err != nil {
			errs = append(errs, err)
		}
	}
	// Anything left is orphaned by a dangling parent link.
	for _, w := range i.Windows() {
		if err := i.destroySubtree(w.id, true); err != nil {
			errs = append(errs, err)
		}
	}

	i.qmu.Lock()
	i.queue = nil
	i.qmu.Unlock()

	if err := i.conn.Release(); err != nil {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	i.log.Debug("instance closed")
	return errors.Join(errs...)
}
