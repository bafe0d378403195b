package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/pullwin"
	"github.com/1broseidon/pullwin/internal/config"
	"github.com/1broseidon/pullwin/internal/platform"
	"github.com/1broseidon/pullwin/internal/runtimepath"
	"github.com/1broseidon/pullwin/internal/trace"
	"github.com/1broseidon/pullwin/internal/watchdog"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "demo":
		os.Exit(runDemo(os.Args[2:]))
	case "events":
		os.Exit(runEvents(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pullwin <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  demo                Open a window with a child and print every event")
	fmt.Fprintln(w, "  events              Open a window that opts into every event kind")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "  config path         Print the configuration file path")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'pullwin <command> --help' for command-specific options.")
}

// sessionFlags are shared by the commands that open windows.
type sessionFlags struct {
	path    *string
	backend *string
	display *string
	trace   *bool
}

func addSessionFlags(fs *flag.FlagSet) sessionFlags {
	return sessionFlags{
		path:    fs.String("path", "", "Config file path (default: ~/.config/pullwin/config.yaml)"),
		backend: fs.String("backend", "", "Backend: native or term (default from config)"),
		display: fs.String("display", "", "X11 display (default from config or $DISPLAY)"),
		trace:   fs.Bool("trace", false, "Write delivered events to the trace file"),
	}
}

func (f sessionFlags) load() (*config.Config, error) {
	var (
		res *config.LoadResult
		err error
	)
	if *f.path == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(*f.path)
	}
	if err != nil {
		return nil, err
	}
	cfg := res.Config
	if *f.backend != "" {
		cfg.Backend = *f.backend
	}
	if *f.display != "" {
		cfg.Display = *f.display
	}
	if *f.trace {
		cfg.Trace.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session bundles an open instance with the ambient pieces around it.
type session struct {
	cfg    *config.Config
	inst   *pullwin.Instance
	logger *slog.Logger
	trace  *trace.Writer
	out    io.Writer

	logFile *os.File
	cancel  context.CancelFunc
}

func openSession(cfg *config.Config) (*session, error) {
	s := &session{cfg: cfg, out: os.Stdout}

	// The terminal backend owns the tty, so diagnostics and event output go to a
	// file next to the trace.
	logOut := io.Writer(os.Stderr)
	if cfg.Backend == config.BackendTerm {
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, fmt.Errorf("the term backend requires an interactive terminal")
		}
		logPath, err := runtimepath.LogPath()
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		s.logFile = f
		logOut = f
		s.out = f
		log.SetOutput(f)
	}
	s.logger = newLogger(cfg.Logging, logOut)

	tracePath, err := cfg.TracePath()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.trace, err = trace.NewWriter(trace.Config{
		Enabled:   cfg.Trace.Enabled,
		FilePath:  tracePath,
		MaxSizeMB: cfg.Trace.MaxSizeMB,
		MaxFiles:  cfg.Trace.MaxFiles,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	var dog *watchdog.Watchdog
	observe := func(ev *pullwin.Event) {
		if err := s.trace.Record(ev); err != nil {
			s.logger.Warn("trace write failed", "error", err)
		}
		if dog != nil {
			dog.Observe(ev)
		}
	}

	s.inst, err = pullwin.New(pullwin.Options{
		Logger:   s.logger,
		Platform: pullwin.PlatformOptions{Backend: cfg.Backend, Display: cfg.Display},
		Observer: observe,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	log.Printf("Connected (backend: %s, trace: %s)", s.inst.Backend(), s.trace.Describe())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if cfg.WatchdogInterval() > 0 {
		dog = watchdog.New(watchdog.Config{Interval: cfg.WatchdogInterval(), Logger: s.logger}, s.inst.Windows)
		go dog.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Println("Interrupted, closing windows...")
			if err := s.inst.Close(); err != nil {
				s.logger.Error("close", "error", err)
			}
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return s, nil
}

func (s *session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.inst != nil {
		if err := s.inst.Close(); err != nil {
			s.logger.Error("close instance", "error", err)
		}
	}
	if s.trace != nil {
		s.trace.Close()
	}
	if s.logFile != nil {
		log.SetOutput(os.Stderr)
		s.logFile.Close()
	}
}

// mainBounds fits the configured window size onto the first screen, when the
// backend can report screens.
func (s *session) mainBounds() pullwin.Rect {
	r := pullwin.Rect{Width: s.cfg.Window.Width, Height: s.cfg.Window.Height}
	screens, err := s.inst.Screens()
	if err != nil || len(screens) == 0 {
		return r
	}
	scr := screens[0]
	r.X, r.Y = scr.X, scr.Y
	if r.Width > scr.Width {
		r.Width = scr.Width
	}
	if r.Height > scr.Height {
		r.Height = scr.Height
	}
	return r
}

func (s *session) background() *pullwin.Color {
	if s.cfg.Window.Background == "" {
		return nil
	}
	c, err := config.ParseColor(s.cfg.Window.Background)
	if err != nil {
		return nil
	}
	return &c
}

func (s *session) isTerm() bool { return s.inst.Backend() == platform.KindTerm }

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  pullwin config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  pullwin config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  pullwin config explain [--path PATH] <yaml.path>")
		fmt.Fprintln(os.Stderr, "  pullwin config path")
		return 2
	}

	load := func(path string) (*config.LoadResult, error) {
		if path == "" {
			return config.LoadWithSources()
		}
		return config.LoadFromPath(path)
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/pullwin/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := load(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/pullwin/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := load(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			for _, f := range res.Files {
				fmt.Printf("# loaded: %s\n", f)
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/pullwin/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := load(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	case "path":
		p, err := config.DefaultConfigPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(p)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
