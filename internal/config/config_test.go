package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/pullwin"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Backend != BackendNative {
		t.Fatalf("expected native backend, got %q", cfg.Backend)
	}
	if cfg.WatchdogInterval() != 0 {
		t.Fatalf("expected watchdog disabled by default")
	}
	if got := len(cfg.ReceiveKinds()); got != len(pullwin.AllEventKinds()) {
		t.Fatalf("expected every kind by default, got %d", got)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if path != filepath.Join(home, ".config", "pullwin", "config.yaml") {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Logging.Level != "info" || len(res.Files) != 0 {
		t.Fatalf("expected defaults, got %+v files=%v", res.Config, res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Window.Width != DefaultWindowWidth {
		t.Fatalf("expected default width, got %d", res.Config.Window.Width)
	}
}

func TestLoadFromPath_AllKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"backend: term",
		"display: \":1\"",
		"logging:",
		"  level: WARNING",
		"  format: json",
		"trace:",
		"  enabled: true",
		"  file: /tmp/pullwin-test.jsonl",
		"  max_size_mb: 2",
		"  max_files: 5",
		"window:",
		"  title: demo",
		"  width: 80",
		"  height: 20",
		"  background: \"#102030\"",
		"receive: [KeyDown, MouseButtonUp]",
		"watchdog_seconds: 30",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Backend != BackendTerm || cfg.Display != ":1" {
		t.Fatalf("backend/display = %q/%q", cfg.Backend, cfg.Display)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if !cfg.Trace.Enabled || cfg.Trace.MaxSizeMB != 2 || cfg.Trace.MaxFiles != 5 {
		t.Fatalf("trace = %+v", cfg.Trace)
	}
	if p, err := cfg.TracePath(); err != nil || p != "/tmp/pullwin-test.jsonl" {
		t.Fatalf("TracePath() = %q, %v", p, err)
	}
	if cfg.Window.Title != "demo" || cfg.Window.Width != 80 || cfg.Window.Height != 20 {
		t.Fatalf("window = %+v", cfg.Window)
	}
	c, err := ParseColor(cfg.Window.Background)
	if err != nil || c != (pullwin.Color{R: 0x10, G: 0x20, B: 0x30}) {
		t.Fatalf("ParseColor = %+v, %v", c, err)
	}
	kinds := cfg.ReceiveKinds()
	if len(kinds) != 2 || kinds[0] != pullwin.KeyDown || kinds[1] != pullwin.MouseButtonUp {
		t.Fatalf("ReceiveKinds() = %v", kinds)
	}
	if cfg.WatchdogInterval().Seconds() != 30 {
		t.Fatalf("WatchdogInterval() = %v", cfg.WatchdogInterval())
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "logging:\n  level: debug\nbackend: wayland\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Path != "backend" || verr.Source.Line != 3 {
		t.Fatalf("expected backend at line 3, got %+v", verr)
	}
	if !strings.Contains(err.Error(), path+":3:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":           func(c *Config) { c.Backend = "gtk" },
		"logging.level":     func(c *Config) { c.Logging.Level = "trace" },
		"logging.format":    func(c *Config) { c.Logging.Format = "xml" },
		"trace.max_size_mb": func(c *Config) { c.Trace.MaxSizeMB = 0 },
		"trace.max_files":   func(c *Config) { c.Trace.MaxFiles = 0 },
		"window.title":      func(c *Config) { c.Window.Title = " " },
		"window":            func(c *Config) { c.Window.Height = 0 },
		"window.background": func(c *Config) { c.Window.Background = "red" },
		"receive":           func(c *Config) { c.Receive = []string{"Resize"} },
		"watchdog_seconds":  func(c *Config) { c.WatchdogSeconds = -1 },
	}
	for path, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		err := cfg.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Path != path {
			t.Errorf("%s: got %v", path, err)
		}
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(configD, "10-base.yaml"), "watchdog_seconds: 5\nwindow:\n  title: base\n")
	writeFile(t, filepath.Join(configD, "20-override.yaml"), "watchdog_seconds: 6\n")

	// Main file overrides includes.
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"include:",
		"  - config.d",
		"watchdog_seconds: 7",
		"window:",
		"  width: 100",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.WatchdogSeconds != 7 {
		t.Fatalf("expected watchdog_seconds 7, got %d", res.Config.WatchdogSeconds)
	}
	if res.Config.Window.Title != "base" || res.Config.Window.Width != 100 {
		t.Fatalf("expected nested merge, got %+v", res.Config.Window)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "include: b.yaml\n")
	writeFile(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestExplain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "trace:\n  max_files: 9\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "trace.max_files")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 9 || src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("expected 9 from file line 2, got %#v %#v", val, src)
	}

	val, src, err = Explain(res, "logging.format")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "text" || src.Kind != SourceDefault {
		t.Fatalf("expected default text, got %#v %#v", val, src)
	}

	if _, _, err := Explain(res, "trace.nope"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestTracePath_DefaultsToRuntimeDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	p, err := DefaultConfig().TracePath()
	if err != nil {
		t.Fatalf("TracePath: %v", err)
	}
	if filepath.Dir(p) != dir {
		t.Fatalf("expected trace under %s, got %s", dir, p)
	}
}

func TestTracePath_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := DefaultConfig()
	cfg.Trace.File = "~/traces/events.jsonl"
	p, err := cfg.TracePath()
	if err != nil {
		t.Fatalf("TracePath: %v", err)
	}
	if p != filepath.Join(home, "traces", "events.jsonl") {
		t.Fatalf("unexpected path %q", p)
	}
}

func TestLoadFromPath_SharedIncludeMergedOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "common.yaml"), "window:\n  title: shared\n")
	writeFile(t, filepath.Join(dir, "a.yaml"), "include: common.yaml\n")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include: [common.yaml, a.yaml]\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected each file once, got %v", res.Files)
	}
	if res.Config.Window.Title != "shared" {
		t.Fatalf("expected shared title, got %q", res.Config.Window.Title)
	}
	if src := res.Sources["window.title"]; filepath.Base(src.File) != "common.yaml" || src.Line != 2 {
		t.Fatalf("unexpected source %+v", src)
	}
}
