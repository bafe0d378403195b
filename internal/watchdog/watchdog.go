// Package watchdog reports a stalled event loop and registry drift.
package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/pullwin"
)

// WindowLister returns the windows the instance currently tracks.
type WindowLister func() []*pullwin.Window

// Config holds configuration for the watchdog.
type Config struct {
	// Interval is both the check period and the idle threshold.
	Interval time.Duration
	Logger   *slog.Logger
}

// Watchdog periodically checks that events keep arriving and that every tracked
// window still owns a live native handle.
type Watchdog struct {
	interval    time.Duration
	logger      *slog.Logger
	listWindows WindowLister
	now         func() time.Time

	last    atomic.Int64 // unix nanos of the last event
	mu      sync.Mutex
	stalled bool
}

// New creates a watchdog. listWindows may be nil.
func New(cfg Config, listWindows WindowLister) *Watchdog {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watchdog{
		interval:    interval,
		logger:      logger,
		listWindows: listWindows,
		now:         time.Now,
	}
	w.last.Store(w.now().UnixNano())
	return w
}

// Observe records that an event was delivered. It has the signature of
// pullwin.Options.Observer.
func (w *Watchdog) Observe(*pullwin.Event) {
	w.last.Store(w.now().UnixNano())
}

// Run starts the check loop. Blocks until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Debug("watchdog started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("watchdog stopped")
			return
		case <-ticker.C:
			w.Check()
		}
	}
}

// Check performs a single pass. It reports whether the loop is currently stalled.
func (w *Watchdog) Check() bool {
	idle := w.now().Sub(time.Unix(0, w.last.Load()))

	w.mu.Lock()
	wasStalled := w.stalled
	w.stalled = idle >= w.interval
	stalled := w.stalled
	w.mu.Unlock()

	switch {
	case stalled && !wasStalled:
		w.logger.Warn("no events delivered", "idle", idle.Round(time.Second))
	case !stalled && wasStalled:
		w.logger.Info("events resumed")
	}

	if w.listWindows != nil {
		for _, win := range w.listWindows() {
			if _, err := win.Native().Get(); err != nil {
				w.logger.Error("registered window has no native handle", "window", win.ID(), "error", err)
			}
		}
	}
	return stalled
}
