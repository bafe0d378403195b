package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/1broseidon/pullwin"
	"github.com/1broseidon/pullwin/internal/trace"
)

// eventPrinter writes one line per event, either the event's own description
// or a trace entry as JSON.
type eventPrinter struct {
	w    io.Writer
	enc  *json.Encoder
	now  func() time.Time
	seen int
}

func newEventPrinter(w io.Writer, asJSON bool) *eventPrinter {
	p := &eventPrinter{w: w, now: time.Now}
	if asJSON {
		p.enc = json.NewEncoder(w)
	}
	return p
}

func (p *eventPrinter) print(ev *pullwin.Event) error {
	p.seen++
	if p.enc == nil {
		_, err := fmt.Fprintf(p.w, "%5d %s\n", p.seen, ev.String())
		return err
	}
	e := trace.NewEntry(ev)
	e.Time = p.now().UTC()
	e.Seq = uint64(p.seen)
	return p.enc.Encode(e)
}

func runEvents(args []string) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sf := addSessionFlags(fs)
	asJSON := fs.Bool("json", false, "Print events as JSON lines")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := sf.load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	s, err := openSession(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer s.Close()

	w, err := s.inst.CreateWindow(nil, cfg.Window.Title, s.mainBounds(), s.background(), true)
	if err != nil {
		s.logger.Error("create window", "error", err)
		return 1
	}
	if err := w.ReceiveEvents(cfg.ReceiveKinds()...); err != nil {
		s.logger.Error("receive events", "error", err)
		return 1
	}
	if err := w.Show(); err != nil {
		s.logger.Error("show", "error", err)
		return 1
	}

	p := newEventPrinter(s.out, *asJSON)
	if err := s.inst.Run(p.print); err != nil {
		s.logger.Error("run", "error", err)
		return 1
	}
	s.logger.Info("events done", "count", p.seen)
	return 0
}
