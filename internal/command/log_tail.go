package command

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/logging"
)

// LogCommand prints the tail of the autosplitter log file, optionally
// following it across rotations.
type LogCommand struct {
	*BaseCommand
	config *config.Config
	// Context bounds -follow. Defaults to context.Background.
	Context context.Context
	// PollInterval is how often -follow checks for new data.
	PollInterval time.Duration
	follow       bool
	lines        int
	file         string
	level        string
}

// NewLogCommand creates a new log command.
func NewLogCommand(cfg *config.Config) *LogCommand {
	return &LogCommand{
		BaseCommand:  NewBaseCommand("log", "Show the autosplitter log file", "log [tail] [options]"),
		config:       cfg,
		PollInterval: 200 * time.Millisecond,
		lines:        10,
	}
}

// SetupFlags configures the flags for the log command.
func (c *LogCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.follow, "f", false, "Follow the log file (like tail -f)")
	fs.BoolVar(&c.follow, "follow", false, "Follow the log file (like tail -f)")
	fs.IntVar(&c.lines, "n", 10, "Number of lines to show from the end of the file")
	fs.StringVar(&c.file, "file", "", "Path to log file (overrides config log.file)")
	fs.StringVar(&c.level, "level", "", "Hide JSON records below this level")
}

// Execute runs the log command.
func (c *LogCommand) Execute(args []string, stdout, stderr io.Writer) error {
	// "log tail" is an alias for "log -follow".
	if len(args) > 0 && args[0] == "tail" {
		c.follow = true
		args = args[1:]
	}
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unknown subcommand: %s\n", args[0])
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}

	keep := func(string) bool { return true }
	if c.level != "" {
		min, err := logging.ParseLevel(c.level)
		if err != nil {
			return err
		}
		keep = func(line string) bool { return recordLevel(line) >= min }
	}

	logPath := c.file
	if logPath == "" {
		logPath = resolveLogPath(c.config)
	}
	if logPath == "" {
		_, _ = fmt.Fprintln(stderr, "No log file configured. Use -file or set log.file in config.")
		return errors.New("no log file configured")
	}

	f, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			_, _ = fmt.Fprintf(stderr, "Log file does not exist: %s\n", logPath)
			return fmt.Errorf("log file not found: %s", logPath)
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}

	for _, line := range lastLines(f, c.lines, keep) {
		_, _ = fmt.Fprintln(stdout, line)
	}
	if !c.follow {
		return f.Close()
	}

	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	t := &tail{path: logPath, file: f, pos: pos, keep: keep, out: stdout}
	defer t.close()
	return t.follow(ctx, c.PollInterval)
}

// resolveLogPath returns the effective log file path from env var or config.
func resolveLogPath(cfg *config.Config) string {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return config.DefaultSchema().Resolve(cfg, "log.file")
}

// recordLevel returns the level of a JSON log line. Lines that are not JSON
// records rank above every level so they are never hidden.
func recordLevel(line string) slog.Level {
	var rec struct {
		Level string `json:"level"`
	}
	if json.Unmarshal([]byte(line), &rec) != nil || rec.Level == "" {
		return slog.Level(1 << 10)
	}
	var l slog.Level
	if l.UnmarshalText([]byte(rec.Level)) != nil {
		return slog.Level(1 << 10)
	}
	return l
}

// lastLines returns up to n of the final lines of r that pass keep, using a
// ring so the whole file is never held in memory.
func lastLines(r io.Reader, n int, keep func(string) bool) []string {
	if n <= 0 {
		return nil
	}
	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := sc.Text(); keep(line) {
			ring[count%n] = line
			count++
		}
	}
	if count <= n {
		return ring[:count]
	}
	start := count % n
	return append(ring[start:], ring[:start]...)
}

// tail follows one log path. The rotating writer renames the file away and
// creates a new one, which shows up as the path being smaller than pos.
type tail struct {
	path string
	file *os.File
	rd   *bufio.Reader
	pos  int64
	keep func(string) bool
	out  io.Writer
}

func (t *tail) follow(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if info, err := os.Stat(t.path); err != nil || info.Size() < t.pos {
			// Gone or replaced. Reopen from the start once it exists again.
			if !t.reopen() {
				continue
			}
		}
		t.drain()
	}
}

func (t *tail) reopen() bool {
	f, err := os.Open(t.path)
	if err != nil {
		return false
	}
	t.close()
	t.file, t.rd, t.pos = f, nil, 0
	return true
}

// drain prints every complete line written since the last call.
func (t *tail) drain() {
	if t.file == nil {
		return
	}
	if t.rd == nil {
		t.rd = bufio.NewReader(t.file)
	}
	for {
		line, err := t.rd.ReadString('\n')
		if err != nil {
			// Partial line: rewind so it is read whole next time.
			if len(line) > 0 {
				_, _ = t.file.Seek(t.pos, io.SeekStart)
				t.rd.Reset(t.file)
			}
			return
		}
		t.pos += int64(len(line))
		if line = strings.TrimRight(line, "\r\n"); t.keep(line) {
			_, _ = fmt.Fprintln(t.out, line)
		}
	}
}

func (t *tail) close() {
	if t.file != nil {
		_ = t.file.Close()
		t.file = nil
	}
}
