package platform

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is "native" (the build-tagged adapter) or "term". Empty means native.
	Backend string
	// Display overrides $DISPLAY for the X11 adapter.
	Display string
	// Screen is used by the terminal adapter instead of the process terminal.
	Screen tcell.Screen
}

// Open connects to the windowing system named by opts.
func Open(opts Options) (Backend, error) {
	switch opts.Backend {
	case "", "native":
		return openNative(opts)
	case "term":
		return OpenTerm(opts.Screen)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnsupported, opts.Backend)
	}
}
