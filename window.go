package pullwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/pullwin/internal/handle"
	"github.com/1broseidon/pullwin/internal/platform"
	"github.com/1broseidon/pullwin/internal/widget"
)

// WidgetID is the process-unique identity of a window in the ownership graph.
type WidgetID = widget.ID

// NativeRef is a weak reference to a window's native handle.
type NativeRef = handle.Ref[platform.NativeKey]

// ResourceRef is a weak reference to a native sub-resource.
type ResourceRef = handle.Ref[platform.Resource]

// defaultEvents are delivered whether or not the window opted in.
var defaultEvents = map[EventKind]bool{
	AboutToPaint:   true,
	Paint:          true,
	TextChanging:   true,
	TextChanged:    true,
	Quit:           true,
	Close:          true,
	BoundsChanging: true,
	BoundsChanged:  true,
	MessageCarrier: true,
}

// Window is a native window together with its drawing context, colormap and
// input context. Windows are shared by pointer; every copy of the pointer
// refers to the same native objects. Destruction is explicit and idempotent.
type Window struct {
	id       widget.ID
	inst     *Instance
	key      platform.NativeKey
	topLevel bool

	native   *handle.Owner[platform.NativeKey]
	context  *handle.Owner[platform.Resource]
	colormap *handle.Owner[platform.Resource]
	input    *handle.Owner[platform.Resource]

	mu        sync.RWMutex
	bounds    Rect
	text      string
	receive   map[EventKind]bool
	oldBounds *Rect
	destroyed bool
}

// ID returns the window's widget ID.
func (w *Window) ID() widget.ID { return w.id }

// Instance returns the owning instance.
func (w *Window) Instance() *Instance { return w.inst }

// IsTopLevel reports whether the window is a top-level (root) window.
func (w *Window) IsTopLevel() bool { return w.topLevel }

// Bounds returns the last bounds the window applied.
func (w *Window) Bounds() Rect {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.bounds
}

// Text returns the window title.
func (w *Window) Text() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.text
}

// Destroyed reports whether the window has been destroyed.
func (w *Window) Destroyed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.destroyed
}

// Native returns a weak reference to the native window handle. It fails with
// ErrDangling once the window is destroyed or the instance closed.
func (w *Window) Native() NativeRef { return w.native.Ref() }

// DrawingContext returns a weak reference to the window's drawing context.
func (w *Window) DrawingContext() ResourceRef { return w.context.Ref() }

// Colormap returns a weak reference to the window's colormap.
func (w *Window) Colormap() ResourceRef { return w.colormap.Ref() }

// InputContext returns a weak reference to the window's input context.
func (w *Window) InputContext() ResourceRef { return w.input.Ref() }

// Receives reports whether events of kind reach the application for this window.
func (w *Window) Receives(kind EventKind) bool {
	if defaultEvents[kind] {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.receive[kind]
}

// ReceiveEvents replaces the set of opted-in event kinds and updates the native
// event selection to match.
func (w *Window) ReceiveEvents(kinds ...EventKind) error {
	set := make(map[EventKind]bool, len(kinds))
	var mask platform.InputMask
	for _, k := range kinds {
		set[k] = true
		switch k {
		case KeyDown, KeyUp:
			mask |= platform.InputKeys
		case MouseButtonDown, MouseButtonUp:
			mask |= platform.InputButtons
		}
	}

	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrWindowDestroyed
	}
	w.receive = set
	w.mu.Unlock()

	return w.native.With(func(key platform.NativeKey) error {
		return w.inst.backend.SelectInput(key, mask)
	})
}

// SetSize requests new bounds. The change is queued as a BoundsChanging event
// and applied to the native window when that event is dispatched.
func (w *Window) SetSize(bounds Rect) error {
	if err := validateBounds(bounds); err != nil {
		return err
	}
	if w.Destroyed() {
		return ErrWindowDestroyed
	}
	d := boundsDirective{forward: true, confirm: !w.inst.twoPhase}
	w.inst.QueueEvent(newBoundsEvent(BoundsChanging, w, w.Bounds(), bounds, d))
	return nil
}

// SetText requests a new title. The change is queued as a TextChanging event.
func (w *Window) SetText(text string) error {
	if w.Destroyed() {
		return ErrWindowDestroyed
	}
	w.inst.QueueEvent(newTextEvent(TextChanging, w, w.Text(), text))
	return nil
}

// Repaint queues an AboutToPaint event; dispatching it queues Paint.
func (w *Window) Repaint() error {
	if w.Destroyed() {
		return ErrWindowDestroyed
	}
	w.inst.QueueEvent(NewEvent(AboutToPaint, w))
	return nil
}

// Show maps the native window.
func (w *Window) Show() error {
	return w.native.With(func(key platform.NativeKey) error {
		return w.inst.backend.ShowWindow(key)
	})
}

// Parent returns the window's parent in the ownership graph.
func (w *Window) Parent() (*Window, bool) {
	pid, ok := w.inst.graph.Parent(w.id)
	if !ok {
		return nil, false
	}
	return w.inst.byID.Lookup(pid)
}

// Children returns the window's live children in insertion order.
func (w *Window) Children() []*Window {
	ids := w.inst.graph.Children(w.id)
	out := make([]*Window, 0, len(ids))
	for _, id := range ids {
		if c, ok := w.inst.byID.Lookup(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// SetParent moves the window under parent, natively and in the ownership
// graph, so the native subtree destroyed with a window always matches its
// graph descendants. Top-level windows cannot acquire a parent and cycles are
// rejected before the native system is asked.
func (w *Window) SetParent(parent *Window) error {
	if parent == nil {
		return errors.New("pullwin: nil parent")
	}
	if w.Destroyed() || parent.Destroyed() {
		return ErrWindowDestroyed
	}
	same, err := w.inst.graph.CheckParent(w.id, parent.id)
	if err != nil || same {
		return err
	}
	err = w.native.With(func(key platform.NativeKey) error {
		return w.inst.backend.Reparent(key, parent.key)
	})
	if err != nil {
		return wrapBackendError("reparent", err)
	}
	if err := w.inst.graph.SetParent(w.id, parent.id); err != nil {
		return err
	}
	w.inst.log.Debug("window reparented", "id", w.id, "parent", parent.id)
	return nil
}

// Destroy destroys the window and its descendants and releases their native
// resources. Calling it again is a no-op.
func (w *Window) Destroy() error {
	if w.Destroyed() {
		return nil
	}
	return w.inst.emit(widget.Signal{Kind: widget.SignalDestroyWindow, Source: w.id})
}

func (w *Window) setBounds(r Rect) Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	old := w.bounds
	w.bounds = r
	return old
}

func (w *Window) setText(s string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	old := w.text
	w.text = s
	return old
}

func (w *Window) storeOldBounds(r Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.oldBounds = &r
}

// takeOldBounds empties the slot.
func (w *Window) takeOldBounds() (Rect, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.oldBounds == nil {
		return Rect{}, false
	}
	r := *w.oldBounds
	w.oldBounds = nil
	return r, true
}

// handleEvent is the default handling run by Event.Dispatch.
func (w *Window) handleEvent(e *Event) error {
	if w.Destroyed() {
		return fmt.Errorf("dispatch %s: %w", e.kind, ErrWindowDestroyed)
	}
	inst := w.inst

	switch e.kind {
	case BoundsChanging:
		if e.directive.forward {
			err := w.native.With(func(key platform.NativeKey) error {
				return inst.backend.SetBounds(key, e.newBounds)
			})
			if err != nil {
				return fmt.Errorf("apply bounds: %w", err)
			}
			if inst.twoPhase {
				// The native pre-change/confirmation pair follows and updates the window.
				return nil
			}
		}
		w.setBounds(e.newBounds)
		if e.directive.confirm {
			inst.QueueEvent(newBoundsEvent(BoundsChanged, w, e.oldBounds, e.newBounds, boundsDirective{}))
		}

	case BoundsChanged:
		w.setBounds(e.newBounds)
		return inst.emit(widget.Signal{
			Kind:   widget.SignalBoundsChanged,
			Source: w.id,
			Old:    widget.Rect(e.oldBounds),
			New:    widget.Rect(e.newBounds),
		})

	case TextChanging:
		err := w.native.With(func(key platform.NativeKey) error {
			return inst.backend.SetText(key, e.newText)
		})
		if err != nil {
			return fmt.Errorf("apply text: %w", err)
		}
		old := w.setText(e.newText)
		inst.QueueEvent(newTextEvent(TextChanged, w, old, e.newText))

	case AboutToPaint:
		inst.QueueEvent(NewEvent(Paint, w))

	case Close:
		return w.Destroy()

	case Quit:
		if err := w.Destroy(); err != nil {
			return err
		}
		return inst.emit(widget.Signal{Kind: widget.SignalDestroyApplication, Source: w.id})
	}
	return nil
}

// teardown releases sub-resources before the native window. It reports whether
// this call did the work.
func (w *Window) teardown() (bool, error) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return false, nil
	}
	w.destroyed = true
	w.oldBounds = nil
	w.mu.Unlock()

	var errs []error
	for _, h := range []*handle.Owner[platform.Resource]{w.input, w.colormap, w.context} {
		if err := h.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", h.Kind(), err))
		}
	}
	if err := w.native.Release(); err != nil {
		errs = append(errs, fmt.Errorf("destroy native window: %w", err))
	}
	return true, errors.Join(errs...)
}

const maxCoord = 1<<15 - 1

// validateBounds rejects geometry no backend can represent.
func validateBounds(r Rect) error {
	switch {
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("%w: %s has no area", ErrInvalidBounds, r)
	case r.Width > maxCoord || r.Height > maxCoord:
		return fmt.Errorf("%w: %s is too large", ErrInvalidBounds, r)
	case r.X < -maxCoord || r.X > maxCoord || r.Y < -maxCoord || r.Y > maxCoord:
		return fmt.Errorf("%w: %s is out of range", ErrInvalidBounds, r)
	}
	return nil
}
