package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeycumines/thief-autosplitter/internal/autosplit"
	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/driver"
	"github.com/joeycumines/thief-autosplitter/internal/process"
	"github.com/joeycumines/thief-autosplitter/internal/status"
	"github.com/joeycumines/thief-autosplitter/internal/storage"
	"github.com/joeycumines/thief-autosplitter/internal/timer"
)

// RunCommand waits for the game, attaches to it and drives a timer until
// interrupted.
type RunCommand struct {
	*BaseCommand
	config *config.Config

	// Attacher finds the game process. Defaults to the OS process attacher.
	Attacher autosplit.Attacher
	// Context bounds the run. Defaults to one cancelled by SIGINT or SIGTERM.
	Context context.Context
	// NewTicker is handed to the poll driver.
	NewTicker func(d time.Duration) (<-chan time.Time, func())

	backend       string
	livesplitAddr string
	journalDir    string
	logFile       string
	logLevel      string
	ilMode        bool
	noJournal     bool
	quiet         bool
}

// NewRunCommand creates a new run command.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Attach to the game and split automatically",
			"run [options]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "timer", "", "Timer backend: local or livesplit (overrides timer.backend)")
	fs.StringVar(&c.livesplitAddr, "livesplit-addr", "", "LiveSplit Server address (overrides timer.livesplit-addr)")
	fs.StringVar(&c.journalDir, "journal-dir", "", "Run journal directory (overrides journal.dir)")
	fs.StringVar(&c.logFile, "log-file", "", "Write JSON logs to this file (overrides log.file)")
	fs.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&c.ilMode, "il", false, "Individual level mode (overrides rules.il-mode)")
	fs.BoolVar(&c.noJournal, "no-journal", false, "Do not record runs")
	fs.BoolVar(&c.quiet, "quiet", false, "Do not print timer events")
}

// Execute runs the autosplitter until the context is done.
func (c *RunCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}

	settings, err := LoadSettings(c.config)
	if err != nil {
		return err
	}
	c.applyFlags(settings)
	if err := settings.Validate(); err != nil {
		return err
	}

	lc, err := resolveLogConfig(c.logFile, c.logLevel, c.config)
	if err != nil {
		return err
	}
	if lc.logFile != nil {
		defer lc.logFile.Close()
	}
	logger := lc.logger(stderr)

	var journal timer.Journal
	if settings.JournalEnabled {
		j, err := openJournal(settings)
		if err != nil {
			return err
		}
		defer j.Close()
		journal = j
	}

	// a is assigned below; the timer hooks only run from its ticks.
	var a *autosplit.Autosplitter
	base, closeTimer := c.newTimer(settings, func() bool {
		if settings.Rules.ILMode {
			return true
		}
		m := a.Machine()
		return m != nil && m.Cursor() >= len(m.Sequence())
	})
	defer closeTimer()

	rec := timer.NewRecorder(base, journal, logger)
	rec.Variant = func() string {
		if m := a.Machine(); m != nil {
			return m.Sequence().Name()
		}
		return ""
	}
	printer := status.NewPrinter(stdout)
	printer.Total = func() int {
		if m := a.Machine(); m != nil {
			return len(m.Sequence())
		}
		return 0
	}
	rec.Notify = func(e timer.Event) {
		logger.Info("timer event",
			slog.String("kind", e.Kind.String()),
			slog.String("run", e.RunID),
			slog.Int("split", e.Split),
			slog.Duration("game_time", e.GameTime))
		if !c.quiet {
			printer.Event(e)
		}
	}

	drv := driver.New(settings.IdleRate, nil)
	drv.NewTicker = c.NewTicker
	attacher := c.Attacher
	if attacher == nil {
		attacher = autosplit.AttacherFunc(attachProcess)
	}
	a, err = autosplit.New(autosplit.Options{
		Layout:     settings.Layout,
		Rules:      settings.Rules,
		IdleRate:   settings.IdleRate,
		ActiveRate: settings.ActiveRate,
		Logger:     logger,
	}, attacher, rec, drv)
	if err != nil {
		return err
	}
	drv.Tick = a.OnTick

	ctx := c.Context
	if ctx == nil {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	if !c.quiet {
		_, _ = fmt.Fprintf(stdout, "Waiting for %s (timer: %s). Press Ctrl+C to stop.\n", settings.Layout.Module, settings.Backend)
	}
	logger.Info("autosplitter started",
		slog.String("module", settings.Layout.Module),
		slog.String("timer", settings.Backend),
		slog.Bool("il_mode", settings.Rules.ILMode))

	err = drv.Run(ctx)
	_ = a.Close()
	rec.Abandon()
	logger.Info("autosplitter stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// applyFlags layers explicitly set flags over the configured settings.
func (c *RunCommand) applyFlags(s *Settings) {
	if c.backend != "" {
		s.Backend = c.backend
	}
	if c.livesplitAddr != "" {
		s.LiveSplitAddr = c.livesplitAddr
	}
	if c.journalDir != "" {
		s.JournalDir = c.journalDir
	}
	if c.ilMode {
		s.Rules.ILMode = true
	}
	if c.noJournal {
		s.JournalEnabled = false
	}
	if !c.quiet && c.config != nil {
		if v, ok := c.config.GetCommandOption("run", "quiet"); ok {
			c.quiet, _ = config.ParseBool(v)
		}
	}
}

// newTimer builds the configured backend. finished ends a local run when
// no fixed segment count is configured.
func (c *RunCommand) newTimer(s *Settings, finished func() bool) (timer.Timer, func()) {
	if s.Backend == BackendLiveSplit {
		ls := timer.NewLiveSplit(s.LiveSplitAddr, s.DialTimeout)
		return ls, func() { _ = ls.Close() }
	}
	local := timer.NewLocal(s.Segments)
	if s.Segments == 0 {
		local.Finished = func(int) bool { return finished() }
	}
	return local, func() {}
}

func openJournal(s *Settings) (*storage.Journal, error) {
	dir, err := s.ResolveJournalDir()
	if err != nil {
		return nil, err
	}
	j, err := storage.OpenJournal(dir)
	if errors.Is(err, storage.ErrWouldBlock) {
		return nil, fmt.Errorf("run journal %s is in use by another tsplit run (use -no-journal or -journal-dir)", dir)
	}
	if err != nil {
		return nil, err
	}
	j.MaxRuns = s.MaxRuns
	return j, nil
}

func attachProcess(module string) (autosplit.Process, error) {
	p, err := process.Attach(module)
	if err != nil {
		return nil, err
	}
	return p, nil
}
