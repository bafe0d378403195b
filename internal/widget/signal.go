package widget

import (
	"fmt"
	"sync"
)

// SignalKind is the closed set of lifecycle signals a widget can raise.
type SignalKind int

const (
	SignalCreated SignalKind = iota
	SignalBoundsChanged
	SignalDestroyWindow
	SignalDestroyApplication
)

func (k SignalKind) String() string {
	switch k {
	case SignalCreated:
		return "Created"
	case SignalBoundsChanged:
		return "BoundsChanged"
	case SignalDestroyWindow:
		return "DestroyWindow"
	case SignalDestroyApplication:
		return "DestroyApplication"
	default:
		return fmt.Sprintf("SignalKind(%d)", int(k))
	}
}

// Rect mirrors the bounds carried by a BoundsChanged signal.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Signal is one lifecycle notification about a widget.
type Signal struct {
	Kind   SignalKind
	Source ID
	// Old and New are set for SignalBoundsChanged only.
	Old, New Rect
}

// Handler reacts to a signal. Returning an error stops the remaining handlers for
// that signal.
type Handler func(Signal) error

// Slots holds user handlers per signal kind. Handlers run in registration order.
type Slots struct {
	mu       sync.RWMutex
	handlers map[SignalKind][]Handler
}

// NewSlots creates an empty handler table.
func NewSlots() *Slots {
	return &Slots{handlers: make(map[SignalKind][]Handler)}
}

// Connect registers h for kind.
func (s *Slots) Connect(kind SignalKind, h Handler) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = append(s.handlers[kind], h)
}

// Emit runs every handler for sig.Kind. The handler list is copied before running
// so handlers may connect further handlers.
func (s *Slots) Emit(sig Signal) error {
	s.mu.RLock()
	hs := append([]Handler(nil), s.handlers[sig.Kind]...)
	s.mu.RUnlock()

	for _, h := range hs {
		if err := h(sig); err != nil {
			return fmt.Errorf("%s handler for widget %d: %w", sig.Kind, sig.Source, err)
		}
	}
	return nil
}
