package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/1broseidon/pullwin"
	"github.com/1broseidon/pullwin/internal/runtimepath"
)

// Backend names accepted by the backend key.
const (
	BackendNative = "native"
	BackendTerm   = "term"
)

const (
	DefaultTraceMaxSizeMB = 10
	DefaultTraceMaxFiles  = 3
	DefaultWindowWidth    = 640
	DefaultWindowHeight   = 400
)

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// TraceConfig configures the delivered-event trace file.
type TraceConfig struct {
	Enabled bool `yaml:"enabled"`
	// File is the trace path (default: <runtime dir>/pullwin-trace.jsonl)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum trace file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files"`
}

// WindowConfig describes the main window opened by the CLI commands.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Background is an optional #rrggbb fill; empty uses the platform default.
	Background string `yaml:"background,omitempty"`
}

type Config struct {
	Backend string `yaml:"backend"`
	// Display overrides $DISPLAY for the X11 backend.
	Display string        `yaml:"display,omitempty"`
	Logging LoggingConfig `yaml:"logging"`
	Trace   TraceConfig   `yaml:"trace"`
	Window  WindowConfig  `yaml:"window"`
	// Receive lists the opt-in event kinds the events command subscribes to.
	// Empty means every kind.
	Receive []string `yaml:"receive,omitempty"`
	// WatchdogSeconds logs a warning when no event arrived for this long. 0 disables it.
	WatchdogSeconds int `yaml:"watchdog_seconds"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend: BackendNative,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Trace: TraceConfig{
			MaxSizeMB: DefaultTraceMaxSizeMB,
			MaxFiles:  DefaultTraceMaxFiles,
		},
		Window: WindowConfig{
			Title:  "pullwin",
			Width:  DefaultWindowWidth,
			Height: DefaultWindowHeight,
		},
	}
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendNative, BackendTerm:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: native, term")}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("format must be one of: text, json")}
	}
	if c.Trace.MaxSizeMB < 1 {
		return &ValidationError{Path: "trace.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 1")}
	}
	if c.Trace.MaxFiles < 1 {
		return &ValidationError{Path: "trace.max_files", Err: fmt.Errorf("max_files must be >= 1")}
	}
	if strings.TrimSpace(c.Window.Title) == "" {
		return &ValidationError{Path: "window.title", Err: fmt.Errorf("title is required")}
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return &ValidationError{Path: "window", Err: fmt.Errorf("width and height must be > 0")}
	}
	if c.Window.Background != "" {
		if _, err := ParseColor(c.Window.Background); err != nil {
			return &ValidationError{Path: "window.background", Err: err}
		}
	}
	for i, name := range c.Receive {
		if _, ok := pullwin.ParseEventKind(name); !ok {
			return &ValidationError{Path: "receive", Err: fmt.Errorf("entry %d: unknown event kind %q", i, name)}
		}
	}
	if c.WatchdogSeconds < 0 {
		return &ValidationError{Path: "watchdog_seconds", Err: fmt.Errorf("watchdog_seconds must be >= 0")}
	}
	return nil
}

// ReceiveKinds resolves Receive; an empty list selects every kind.
func (c *Config) ReceiveKinds() []pullwin.EventKind {
	if len(c.Receive) == 0 {
		return pullwin.AllEventKinds()
	}
	out := make([]pullwin.EventKind, 0, len(c.Receive))
	for _, name := range c.Receive {
		if k, ok := pullwin.ParseEventKind(name); ok {
			out = append(out, k)
		}
	}
	return out
}

// WatchdogInterval returns the watchdog period, or 0 when disabled.
func (c *Config) WatchdogInterval() time.Duration {
	return time.Duration(c.WatchdogSeconds) * time.Second
}

// TracePath returns the trace file, expanding ~ and falling back to the runtime
// directory.
func (c *Config) TracePath() (string, error) {
	path := strings.TrimSpace(c.Trace.File)
	if path == "" {
		return runtimepath.TracePath()
	}
	return expandHome(path)
}

// ParseColor parses #rrggbb.
func ParseColor(s string) (pullwin.Color, error) {
	var r, g, b uint8
	if len(s) != 7 || s[0] != '#' {
		return pullwin.Color{}, fmt.Errorf("color %q must look like #rrggbb", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return pullwin.Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return pullwin.Color{R: r, G: g, B: b}, nil
}
