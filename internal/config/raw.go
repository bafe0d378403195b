package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawLoggingConfig struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

type RawTraceConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawWindowConfig struct {
	Title      *string `yaml:"title"`
	Width      *int    `yaml:"width"`
	Height     *int    `yaml:"height"`
	Background *string `yaml:"background"`
}

// RawConfig is one file as written. Nil fields were not set and leave the value
// from earlier files or the defaults in place.
type RawConfig struct {
	Include         IncludeList       `yaml:"include"`
	Backend         *string           `yaml:"backend"`
	Display         *string           `yaml:"display"`
	Logging         *RawLoggingConfig `yaml:"logging"`
	Trace           *RawTraceConfig   `yaml:"trace"`
	Window          *RawWindowConfig  `yaml:"window"`
	Receive         []string          `yaml:"receive"`
	WatchdogSeconds *int              `yaml:"watchdog_seconds"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Backend != nil {
		out.Backend = overlay.Backend
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.Logging != nil {
		if out.Logging == nil {
			out.Logging = &RawLoggingConfig{}
		}
		merged := mergeRawLogging(*out.Logging, *overlay.Logging)
		out.Logging = &merged
	}
	if overlay.Trace != nil {
		if out.Trace == nil {
			out.Trace = &RawTraceConfig{}
		}
		merged := mergeRawTrace(*out.Trace, *overlay.Trace)
		out.Trace = &merged
	}
	if overlay.Window != nil {
		if out.Window == nil {
			out.Window = &RawWindowConfig{}
		}
		merged := mergeRawWindow(*out.Window, *overlay.Window)
		out.Window = &merged
	}
	if overlay.Receive != nil {
		out.Receive = append([]string(nil), overlay.Receive...)
	}
	if overlay.WatchdogSeconds != nil {
		out.WatchdogSeconds = overlay.WatchdogSeconds
	}
	return out
}

func mergeRawLogging(base RawLoggingConfig, overlay RawLoggingConfig) RawLoggingConfig {
	out := base
	if overlay.Level != nil {
		out.Level = overlay.Level
	}
	if overlay.Format != nil {
		out.Format = overlay.Format
	}
	return out
}

func mergeRawTrace(base RawTraceConfig, overlay RawTraceConfig) RawTraceConfig {
	out := base
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.File != nil {
		out.File = overlay.File
	}
	if overlay.MaxSizeMB != nil {
		out.MaxSizeMB = overlay.MaxSizeMB
	}
	if overlay.MaxFiles != nil {
		out.MaxFiles = overlay.MaxFiles
	}
	return out
}

func mergeRawWindow(base RawWindowConfig, overlay RawWindowConfig) RawWindowConfig {
	out := base
	if overlay.Title != nil {
		out.Title = overlay.Title
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.Background != nil {
		out.Background = overlay.Background
	}
	return out
}
