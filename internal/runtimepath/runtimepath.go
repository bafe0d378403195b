// Package runtimepath locates the per-user directory for pullwin's trace and
// log files.
package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	traceFile = "pullwin-trace.jsonl"
	logFile   = "pullwin.log"
)

// resolver holds the environment lookups so tests can replace them.
type resolver struct {
	getenv  func(string) string
	uid     int
	isDir   func(string) bool
	tempDir string
	mkdir   func(string, os.FileMode) error
}

func system() resolver {
	return resolver{
		getenv: os.Getenv,
		uid:    os.Getuid(),
		isDir: func(p string) bool {
			info, err := os.Stat(p)
			return err == nil && info.IsDir()
		},
		tempDir: os.TempDir(),
		mkdir:   os.MkdirAll,
	}
}

// dir picks the first usable candidate: an absolute XDG_RUNTIME_DIR, then
// /run/user/<uid>, then a private directory under the temp dir. A relative
// XDG_RUNTIME_DIR is ignored. Where there is no uid (Windows) the temp
// directory is named after the user instead.
func (r resolver) dir() (string, error) {
	if xdg := r.getenv("XDG_RUNTIME_DIR"); xdg != "" && filepath.IsAbs(xdg) {
		return xdg, nil
	}

	owner := strconv.Itoa(r.uid)
	if r.uid >= 0 {
		if run := filepath.Join("/run/user", owner); r.isDir(run) {
			return run, nil
		}
	} else if name := r.getenv("USERNAME"); name != "" {
		owner = name
	}

	fallback := filepath.Join(r.tempDir, "pullwin-runtime-"+owner)
	if err := r.mkdir(fallback, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return fallback, nil
}

func (r resolver) file(name string) (string, error) {
	d, err := r.dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name), nil
}

// Dir returns the runtime directory, creating the temp-dir fallback when
// nothing better exists.
func Dir() (string, error) { return system().dir() }

// TracePath returns the default delivered-event trace file.
func TracePath() (string, error) { return system().file(traceFile) }

// LogPath returns the diagnostics log used while the terminal backend owns the
// tty.
func LogPath() (string, error) { return system().file(logFile) }
