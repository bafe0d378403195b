package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	backend
//	display
//	logging.level
//	logging.format
//	trace.enabled
//	trace.file
//	trace.max_size_mb
//	trace.max_files
//	window.title
//	window.width
//	window.height
//	window.background
//	receive
//	watchdog_seconds
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	switch len(parts) {
	case 1:
		switch parts[0] {
		case "backend":
			return cfg.Backend, nil
		case "display":
			return cfg.Display, nil
		case "receive":
			return cfg.Receive, nil
		case "watchdog_seconds":
			return cfg.WatchdogSeconds, nil
		}
	case 2:
		switch parts[0] {
		case "logging":
			switch parts[1] {
			case "level":
				return cfg.Logging.Level, nil
			case "format":
				return cfg.Logging.Format, nil
			}
		case "trace":
			switch parts[1] {
			case "enabled":
				return cfg.Trace.Enabled, nil
			case "file":
				return cfg.Trace.File, nil
			case "max_size_mb":
				return cfg.Trace.MaxSizeMB, nil
			case "max_files":
				return cfg.Trace.MaxFiles, nil
			}
		case "window":
			switch parts[1] {
			case "title":
				return cfg.Window.Title, nil
			case "width":
				return cfg.Window.Width, nil
			case "height":
				return cfg.Window.Height, nil
			case "background":
				return cfg.Window.Background, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
