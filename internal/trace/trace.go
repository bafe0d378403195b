// Package trace writes delivered events to a size-rotated JSON-lines file.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/1broseidon/pullwin"
)

// Config holds configuration for the trace writer.
type Config struct {
	Enabled   bool
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Entry is one trace line.
type Entry struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session,omitempty"`
	Seq     uint64    `json:"seq,omitempty"`
	Kind    string    `json:"kind"`
	Window  uint64    `json:"window"`
	Exit    bool      `json:"exit,omitempty"`

	Key     *pullwin.KeyInfo `json:"key,omitempty"`
	Button  int              `json:"button,omitempty"`
	At      *pullwin.Point   `json:"at,omitempty"`
	Old     *pullwin.Rect    `json:"old,omitempty"`
	New     *pullwin.Rect    `json:"new,omitempty"`
	OldText *string          `json:"old_text,omitempty"`
	NewText *string          `json:"new_text,omitempty"`
	Raw     string           `json:"raw,omitempty"`
}

// Writer appends entries and rotates the file when it grows past MaxSizeMB.
type Writer struct {
	mu          sync.Mutex
	file        *os.File
	config      Config
	session     string
	seq         uint64
	currentSize int64
	limit       int64
	now         func() time.Time
}

// NewWriter opens (or creates) the trace file. A disabled config yields a Writer
// whose Record is a no-op.
func NewWriter(cfg Config) (*Writer, error) {
	w := &Writer{
		config:  cfg,
		session: uuid.NewString(),
		limit:   int64(cfg.MaxSizeMB) * 1024 * 1024,
		now:     time.Now,
	}
	if !cfg.Enabled {
		return w, nil
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create trace directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file %s: %w", cfg.FilePath, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat trace file: %w", err)
	}
	w.file = f
	w.currentSize = stat.Size()
	return w, nil
}

// Session identifies this writer's entries within a shared file.
func (w *Writer) Session() string { return w.session }

// Describe summarizes the writer for startup logs.
func (w *Writer) Describe() string {
	if w == nil || !w.config.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s (rotates at %s, keeps %d)", w.config.FilePath, humanize.IBytes(uint64(w.limit)), w.config.MaxFiles)
}

// Record appends ev. Errors are returned but leave the writer usable.
func (w *Writer) Record(ev *pullwin.Event) error {
	if w == nil || !w.config.Enabled || ev == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}

	if w.limit > 0 && w.currentSize >= w.limit {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	w.seq++
	e := NewEntry(ev)
	e.Time = w.now().UTC()
	e.Session = w.session
	e.Seq = w.seq
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode trace entry: %w", err)
	}
	line = append(line, '\n')
	n, err := w.file.Write(line)
	w.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	return nil
}

// NewEntry captures the payload of ev. Time, Session and Seq are left for the
// caller.
func NewEntry(ev *pullwin.Event) Entry {
	e := Entry{
		Kind: ev.Kind().String(),
		Exit: ev.IsExitEvent(),
	}
	if win := ev.Window(); win != nil {
		e.Window = uint64(win.ID())
	}
	if k, ok := ev.Key(); ok {
		e.Key = &k
		if p, ok := ev.Cursor(); ok {
			e.At = &p
		}
	}
	if b, p, ok := ev.Button(); ok {
		e.Button = int(b)
		e.At = &p
	}
	if old, next, ok := ev.Bounds(); ok {
		e.Old, e.New = &old, &next
	}
	if old, next, ok := ev.Text(); ok {
		e.OldText, e.NewText = &old, &next
	}
	if c, ok := ev.Carrier(); ok {
		e.Raw = string(c.Backend) + ":" + c.Name
	}
	return e
}

// Close closes the trace file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate shifts trace.jsonl -> trace.jsonl.1 -> trace.jsonl.2 ..., dropping the
// file past MaxFiles.
func (w *Writer) rotate() error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	basePath := w.config.FilePath
	for i := w.config.MaxFiles; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", basePath, i)
		if i == w.config.MaxFiles {
			os.Remove(oldPath)
			continue
		}
		os.Rename(oldPath, fmt.Sprintf("%s.%d", basePath, i+1))
	}
	if err := os.Rename(basePath, basePath+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate trace file: %w", err)
	}

	f, err := os.OpenFile(basePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open new trace file: %w", err)
	}
	w.file = f
	w.currentSize = 0
	return nil
}
