// Package handle wraps native identifiers (windows, drawing contexts, colormaps,
// input contexts, the connection itself) so that they are released exactly once and
// can never be used after release.
//
// An Owner is the single owner of a native object. A Ref is a weak observer that
// can be copied freely; every access through a Ref re-validates the owner and
// fails with ErrDangling once the owner is gone.
package handle

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDangling is returned when a handle is accessed after its owner, or an owner
// it depends on, has been released.
var ErrDangling = errors.New("handle: owner already released")

// ReleaseFunc frees the native object behind id.
type ReleaseFunc[T any] func(id T) error

// liveness is shared between an Owner and all of its Refs.
type liveness struct {
	mu    sync.RWMutex
	alive bool
	deps  []*liveness
}

// rlockChain read-locks l and its dependencies. It returns an unlock function and
// whether every link in the chain is still alive.
func (l *liveness) rlockChain() (func(), bool) {
	l.mu.RLock()
	unlocks := []func(){l.mu.RUnlock}
	ok := l.alive
	for _, d := range l.deps {
		if !ok {
			break
		}
		unlock, depOK := d.rlockChain()
		unlocks = append(unlocks, unlock)
		ok = depOK
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}, ok
}

// Owner uniquely owns one native object. Owners must not be copied; pass *Owner.
type Owner[T any] struct {
	id        T
	kind      string
	isDefault bool
	release   ReleaseFunc[T]
	state     *liveness
	once      sync.Once
	err       error
}

// New creates an owning handle. release is called at most once.
func New[T any](kind string, id T, release ReleaseFunc[T]) *Owner[T] {
	return newOwner(kind, id, release, false, nil)
}

// NewDependent creates an owning handle that becomes unusable as soon as any of
// the given references dies, even if it has not been released itself. Use it for
// objects that live under a connection.
func NewDependent[T any](kind string, id T, release ReleaseFunc[T], dependsOn ...Anchor) *Owner[T] {
	return newOwner(kind, id, release, false, anchorsOf(dependsOn))
}

// Default wraps a platform-shared object (default colormap, stock brush). It
// behaves like an Owner but Release never frees the native object.
func Default[T any](kind string, id T, dependsOn ...Anchor) *Owner[T] {
	return newOwner[T](kind, id, nil, true, anchorsOf(dependsOn))
}

func anchorsOf(anchors []Anchor) []*liveness {
	deps := make([]*liveness, 0, len(anchors))
	for _, a := range anchors {
		if a == nil {
			continue
		}
		if s := a.anchor(); s != nil {
			deps = append(deps, s)
		}
	}
	return deps
}

func newOwner[T any](kind string, id T, release ReleaseFunc[T], isDefault bool, deps []*liveness) *Owner[T] {
	return &Owner[T]{
		id:        id,
		kind:      kind,
		isDefault: isDefault,
		release:   release,
		state:     &liveness{alive: true, deps: deps},
	}
}

// Anchor is anything a dependent handle can hang off: an Owner or a Ref of any
// element type.
type Anchor interface {
	anchor() *liveness
}

func (o *Owner[T]) anchor() *liveness {
	if o == nil {
		return nil
	}
	return o.state
}

func (r Ref[T]) anchor() *liveness { return r.state }

// Kind names the native object class, used in error messages.
func (o *Owner[T]) Kind() string { return o.kind }

// IsDefault reports whether the handle wraps a platform-shared object.
func (o *Owner[T]) IsDefault() bool { return o.isDefault }

// Get returns the native identifier, or ErrDangling after release.
func (o *Owner[T]) Get() (T, error) {
	unlock, ok := o.state.rlockChain()
	defer unlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", o.kind, ErrDangling)
	}
	return o.id, nil
}

// With runs fn with the native identifier while holding the handle alive.
// Release blocks until fn returns.
func (o *Owner[T]) With(fn func(id T) error) error {
	unlock, ok := o.state.rlockChain()
	defer unlock()
	if !ok {
		return fmt.Errorf("%s: %w", o.kind, ErrDangling)
	}
	return fn(o.id)
}

// Alive reports whether the handle and everything it depends on is still usable.
func (o *Owner[T]) Alive() bool {
	unlock, ok := o.state.rlockChain()
	unlock()
	return ok
}

// Ref returns a weak reference to this owner.
func (o *Owner[T]) Ref() Ref[T] {
	return Ref[T]{id: o.id, kind: o.kind, state: o.state}
}

// Release marks the handle dead and frees the native object. It is safe to call
// more than once; only the first call frees anything. Default handles are marked
// dead but never freed. If a dependency is already dead the native object is not
// freed either, since the connection it lived under took it down.
func (o *Owner[T]) Release() error {
	o.once.Do(func() {
		deps := o.state.deps
		o.state.mu.Lock()
		o.state.alive = false
		o.state.mu.Unlock()

		if o.isDefault || o.release == nil {
			return
		}
		for _, d := range deps {
			unlock, ok := d.rlockChain()
			unlock()
			if !ok {
				return
			}
		}
		o.err = o.release(o.id)
	})
	return o.err
}

// Ref is a non-owning observer of an Owner. The zero Ref is always dangling.
type Ref[T any] struct {
	id    T
	kind  string
	state *liveness
}

// Get returns the native identifier if the owner is still alive.
func (r Ref[T]) Get() (T, error) {
	if r.state == nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", r.label(), ErrDangling)
	}
	unlock, ok := r.state.rlockChain()
	defer unlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", r.label(), ErrDangling)
	}
	return r.id, nil
}

// With runs fn while the owner is held alive.
func (r Ref[T]) With(fn func(id T) error) error {
	if r.state == nil {
		return fmt.Errorf("%s: %w", r.label(), ErrDangling)
	}
	unlock, ok := r.state.rlockChain()
	defer unlock()
	if !ok {
		return fmt.Errorf("%s: %w", r.label(), ErrDangling)
	}
	return fn(r.id)
}

// Valid reports whether the owner is still alive. The answer may be stale by the
// time the caller acts on it; use With for access.
func (r Ref[T]) Valid() bool {
	if r.state == nil {
		return false
	}
	unlock, ok := r.state.rlockChain()
	unlock()
	return ok
}

// Clone returns a copy of the reference.
func (r Ref[T]) Clone() Ref[T] { return r }

func (r Ref[T]) label() string {
	if r.kind == "" {
		return "handle"
	}
	return r.kind
}
