//go:build !linux && !windows

package platform

import (
	"fmt"
	"runtime"
)

func openNative(Options) (Backend, error) {
	return nil, fmt.Errorf("%w: %s (use the term backend)", ErrUnsupported, runtime.GOOS)
}
