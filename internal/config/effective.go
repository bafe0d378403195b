package config

import (
	"fmt"
	"strings"
)

// ValidationError points at the offending key and, when known, where it was set.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Backend != nil {
		cfg.Backend = strings.ToLower(strings.TrimSpace(*raw.Backend))
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if l := raw.Logging; l != nil {
		if l.Level != nil {
			cfg.Logging.Level = strings.ToLower(*l.Level)
			if cfg.Logging.Level == "warning" {
				cfg.Logging.Level = "warn"
			}
		}
		if l.Format != nil {
			cfg.Logging.Format = strings.ToLower(*l.Format)
		}
	}
	if t := raw.Trace; t != nil {
		if t.Enabled != nil {
			cfg.Trace.Enabled = *t.Enabled
		}
		if t.File != nil {
			cfg.Trace.File = *t.File
		}
		if t.MaxSizeMB != nil {
			cfg.Trace.MaxSizeMB = *t.MaxSizeMB
		}
		if t.MaxFiles != nil {
			cfg.Trace.MaxFiles = *t.MaxFiles
		}
	}
	if w := raw.Window; w != nil {
		if w.Title != nil {
			cfg.Window.Title = *w.Title
		}
		if w.Width != nil {
			cfg.Window.Width = *w.Width
		}
		if w.Height != nil {
			cfg.Window.Height = *w.Height
		}
		if w.Background != nil {
			cfg.Window.Background = strings.TrimSpace(*w.Background)
		}
	}
	if raw.Receive != nil {
		cfg.Receive = append([]string(nil), raw.Receive...)
	}
	if raw.WatchdogSeconds != nil {
		cfg.WatchdogSeconds = *raw.WatchdogSeconds
	}
	return cfg, nil
}
