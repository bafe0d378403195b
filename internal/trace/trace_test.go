package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/pullwin"
	"github.com/1broseidon/pullwin/internal/platform/platformtest"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

func TestWriter_DisabledIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	w, err := NewWriter(Config{Enabled: false, FilePath: path})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Record(pullwin.NewEvent(pullwin.Paint, nil)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled writer created %s", path)
	}
	if w.Describe() != "disabled" {
		t.Fatalf("Describe() = %q", w.Describe())
	}
}

func TestWriter_RecordsPayloads(t *testing.T) {
	inst, err := pullwin.New(pullwin.Options{Backend: platformtest.New()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer inst.Close()
	win, err := inst.CreateWindow(nil, "before", pullwin.Rect{Width: 10, Height: 10}, nil, true)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	if err := win.SetText("after"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	if err := win.SetSize(pullwin.Rect{Width: 20, Height: 10}); err != nil {
		t.Fatalf("SetSize: %v", err)
	}

	path := filepath.Join(t.TempDir(), "sub", "trace.jsonl")
	w, err := NewWriter(Config{Enabled: true, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for inst.Pending() > 0 {
		ev, err := inst.NextEvent()
		if err != nil {
			t.Fatalf("NextEvent: %v", err)
		}
		if err := w.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	text := entries[0]
	if text.Kind != "TextChanging" || text.OldText == nil || *text.OldText != "before" || *text.NewText != "after" {
		t.Fatalf("text entry = %+v", text)
	}
	if text.Window != uint64(win.ID()) || text.Session != w.Session() || text.Seq != 1 {
		t.Fatalf("text entry identity = %+v", text)
	}
	bounds := entries[1]
	if bounds.Kind != "BoundsChanging" || bounds.New == nil || bounds.New.Width != 20 || bounds.Old.Width != 10 {
		t.Fatalf("bounds entry = %+v", bounds)
	}
	if !strings.Contains(w.Describe(), "1.0 MiB") {
		t.Fatalf("Describe() = %q", w.Describe())
	}
}

func TestWriter_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	w, err := NewWriter(Config{Enabled: true, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()
	w.limit = 1 // rotate before every entry after the first

	for i := 0; i < 4; i++ {
		if err := w.Record(pullwin.NewEvent(pullwin.Quit, nil)); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s: %v", p, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Fatalf("expected at most %d rotated files", 2)
	}
	cur := readEntries(t, path)
	if len(cur) != 1 || cur[0].Seq != 4 || !cur[0].Exit {
		t.Fatalf("current file = %+v", cur)
	}
}
