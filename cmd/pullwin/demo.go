package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"unicode"

	"github.com/1broseidon/pullwin"
	"github.com/1broseidon/pullwin/internal/platform"
)

type demoAction int

const (
	actionNone demoAction = iota
	actionGrow
	actionShrink
	actionRetitle
	actionRepaint
	actionDropChild
	actionQuit
)

func keyAction(k pullwin.KeyInfo) demoAction {
	switch k.Name {
	case "Escape", "Esc":
		return actionQuit
	}
	switch unicode.ToLower(k.Rune) {
	case 'g':
		return actionGrow
	case 's':
		return actionShrink
	case 't':
		return actionRetitle
	case 'r':
		return actionRepaint
	case 'c':
		return actionDropChild
	case 'q':
		return actionQuit
	}
	return actionNone
}

// resizeBy changes width and height by step, keeping at least one unit.
func resizeBy(r pullwin.Rect, step int) pullwin.Rect {
	r.Width = max(r.Width+step, 1)
	r.Height = max(r.Height+step, 1)
	return r
}

// childBounds places a child in the middle half of its parent.
func childBounds(parent pullwin.Rect) pullwin.Rect {
	w := max(parent.Width/2, 1)
	h := max(parent.Height/2, 1)
	return pullwin.Rect{X: parent.Width / 4, Y: parent.Height / 4, Width: w, Height: h}
}

func contrast(c *pullwin.Color) *pullwin.Color {
	if c == nil {
		return &pullwin.Color{R: 0xcc, G: 0xcc, B: 0xcc}
	}
	return &pullwin.Color{R: 0xff - c.R, G: 0xff - c.G, B: 0xff - c.B}
}

func runDemo(args []string) int {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	sf := addSessionFlags(fs)
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

	step := 40
	if s.isTerm() {
		step = 2
	}

	inst := s.inst
	inst.Connect(pullwin.SignalBoundsChanged, func(sig pullwin.Signal) error {
		s.logger.Info("bounds changed", "window", sig.Source, "old", platform.Rect(sig.Old).String(), "new", platform.Rect(sig.New).String())
		return nil
	})
	inst.Connect(pullwin.SignalDestroyWindow, func(sig pullwin.Signal) error {
		s.logger.Info("window destroyed", "window", sig.Source)
		return nil
	})

	bg := s.background()
	top, err := inst.CreateWindow(nil, cfg.Window.Title, s.mainBounds(), bg, true)
	if err != nil {
		s.logger.Error("create main window", "error", err)
		return 1
	}
	child, err := inst.CreateWindow(top, "child", childBounds(top.Bounds()), contrast(bg), false)
	if err != nil {
		s.logger.Error("create child window", "error", err)
		return 1
	}
	for _, w := range []*pullwin.Window{top, child} {
		if err := w.ReceiveEvents(pullwin.KeyDown, pullwin.MouseButtonDown); err != nil {
			s.logger.Error("receive events", "window", w.ID(), "error", err)
			return 1
		}
		if err := w.Show(); err != nil {
			s.logger.Error("show", "window", w.ID(), "error", err)
			return 1
		}
	}
	log.Printf("Demo running: g/s resize, t retitle, r repaint, c close child, q quit")

	titles := 0
	err = inst.Run(func(ev *pullwin.Event) error {
		fmt.Fprintln(s.out, ev.String())

		k, ok := ev.Key()
		if !ok || ev.Kind() != pullwin.KeyDown {
			return nil
		}
		var aerr error
		switch keyAction(k) {
		case actionGrow:
			aerr = top.SetSize(resizeBy(top.Bounds(), step))
		case actionShrink:
			aerr = top.SetSize(resizeBy(top.Bounds(), -step))
		case actionRetitle:
			titles++
			aerr = top.SetText(fmt.Sprintf("%s (%d)", cfg.Window.Title, titles))
		case actionRepaint:
			aerr = top.Repaint()
		case actionDropChild:
			aerr = child.Destroy()
		case actionQuit:
			inst.QueueEvent(pullwin.NewEvent(pullwin.Quit, top))
		}
		if aerr != nil && !errors.Is(aerr, pullwin.ErrWindowDestroyed) {
			s.logger.Warn("demo action failed", "key", k.Name, "error", aerr)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("run", "error", err)
		return 1
	}
	return 0
}
