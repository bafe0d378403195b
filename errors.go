package pullwin

import (
	"errors"
	"fmt"

	"github.com/1broseidon/pullwin/internal/handle"
	"github.com/1broseidon/pullwin/internal/platform"
	"github.com/1broseidon/pullwin/internal/widget"
)

var (
	// ErrConnectionFailed is returned by New when no windowing session could be opened.
	ErrConnectionFailed = errors.New("pullwin: connection to the windowing system failed")
	// ErrResourceExhausted is returned when the backend refuses to allocate a window
	// or one of its sub-resources.
	ErrResourceExhausted = errors.New("pullwin: backend resources exhausted")
	// ErrInvalidBounds is returned for empty or out-of-range window geometry.
	ErrInvalidBounds = errors.New("pullwin: invalid bounds")
	// ErrTranslation matches every *TranslationError.
	ErrTranslation = errors.New("pullwin: raw event could not be translated")
	// ErrWindowDestroyed is returned when operating on a destroyed window.
	ErrWindowDestroyed = errors.New("pullwin: window destroyed")
	// ErrEventConsumed is returned when an event is dispatched a second time.
	ErrEventConsumed = errors.New("pullwin: event already dispatched")
	// ErrInstanceClosed is returned by every Instance operation after Close.
	ErrInstanceClosed = errors.New("pullwin: instance closed")

	// ErrDangling is returned when a native handle is used after its owner was released.
	ErrDangling = handle.ErrDangling
	// ErrUnsupported is returned when the active backend lacks a capability.
	ErrUnsupported = platform.ErrUnsupported
	// ErrAlreadyHasIncompatibleParent is returned when a top-level window is given a parent.
	ErrAlreadyHasIncompatibleParent = widget.ErrAlreadyHasIncompatibleParent
	// ErrWouldCycle is returned when reparenting would make a window its own ancestor.
	ErrWouldCycle = widget.ErrWouldCycle
)

// SkipDispatch can be returned by a Run handler to leave the event undispatched.
var SkipDispatch = errors.New("pullwin: skip dispatch")

// TranslationError reports a raw event that could not be converted.
type TranslationError struct {
	Backend platform.Kind
	Raw     string // short description of the raw event
	Reason  string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("pullwin: %s event %s: %s", e.Backend, e.Raw, e.Reason)
}

// Is makes errors.Is(err, ErrTranslation) match.
func (e *TranslationError) Is(target error) bool { return target == ErrTranslation }

// wrapBackendError maps adapter sentinels onto the public taxonomy.
func wrapBackendError(op string, err error) error {
	switch {
	case errors.Is(err, platform.ErrResourceExhausted):
		return fmt.Errorf("%s: %w: %v", op, ErrResourceExhausted, err)
	case errors.Is(err, platform.ErrInvalidParameter):
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidBounds, err)
	case errors.Is(err, platform.ErrConnectionClosed):
		return fmt.Errorf("%s: %w", op, ErrInstanceClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}
