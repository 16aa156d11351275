package command

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/status"
	"github.com/joeycumines/thief-autosplitter/internal/storage"
)

// RunsCommand lists and inspects recorded runs.
type RunsCommand struct {
	*BaseCommand
	config  *config.Config
	styles  status.Styles
	dir     string
	limit   int
	variant string
}

// NewRunsCommand creates a new runs command.
func NewRunsCommand(cfg *config.Config) *RunsCommand {
	return &RunsCommand{
		BaseCommand: NewBaseCommand(
			"runs",
			"List and inspect recorded runs",
			"runs [list] | runs show <id-prefix>",
		),
		config: cfg,
		styles: status.DefaultStyles(),
		limit:  -1,
	}
}

// SetupFlags configures the flags for the runs command.
func (c *RunsCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.dir, "dir", "", "Run journal directory (overrides journal.dir)")
	fs.IntVar(&c.limit, "limit", -1, "Show only the newest N runs (0 = all; default from [runs] limit)")
	fs.StringVar(&c.variant, "variant", "", "Only show runs of this mission order (standard or gold)")
}

// Execute runs the runs command.
func (c *RunsCommand) Execute(args []string, stdout, stderr io.Writer) error {
	dir, err := c.resolveDir()
	if err != nil {
		return err
	}
	runs, err := storage.ListRuns(dir)
	if err != nil {
		return fmt.Errorf("failed to read run journal: %w", err)
	}
	if c.variant != "" {
		filtered := runs[:0]
		for _, run := range runs {
			if run.Variant == c.variant {
				filtered = append(filtered, run)
			}
		}
		runs = filtered
	}

	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list":
		if len(args) > 0 {
			_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
			return fmt.Errorf("unexpected arguments")
		}
		if limit := c.resolveLimit(); limit > 0 && len(runs) > limit {
			runs = runs[len(runs)-limit:]
		}
		_, _ = fmt.Fprint(stdout, status.RunTable(runs, c.styles))
		return nil

	case "show":
		if len(args) != 1 {
			_, _ = fmt.Fprintln(stderr, "usage: runs show <id-prefix>")
			return fmt.Errorf("invalid arguments")
		}
		run, err := findRun(runs, args[0])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(stdout, status.RunDetail(run, c.styles))
		if best := storage.BestRun(runs, run.Variant); best != nil && best != run && run.Completed {
			_, _ = fmt.Fprintf(stdout, "best %s (%s)\n", status.FormatDuration(best.GameTime), formatDelta(run.GameTime-best.GameTime))
		}
		return nil
	}

	_, _ = fmt.Fprintf(stderr, "unknown subcommand: %s\n", sub)
	return fmt.Errorf("unknown subcommand: %s", sub)
}

func (c *RunsCommand) resolveDir() (string, error) {
	if c.dir != "" {
		return c.dir, nil
	}
	s, err := LoadSettings(c.config)
	if err != nil {
		return "", err
	}
	return s.ResolveJournalDir()
}

func (c *RunsCommand) resolveLimit() int {
	if c.limit >= 0 {
		return c.limit
	}
	if c.config != nil {
		if v, ok := c.config.GetCommandOption("runs", "limit"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

// findRun returns the single run whose ID starts with prefix.
func findRun(runs []*storage.Run, prefix string) (*storage.Run, error) {
	var match *storage.Run
	for _, run := range runs {
		if !strings.HasPrefix(run.ID, prefix) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
		}
		match = run
	}
	if match == nil {
		return nil, fmt.Errorf("no run matches %q", prefix)
	}
	return match, nil
}

func formatDelta(d time.Duration) string {
	if d < 0 {
		return status.FormatDuration(d)
	}
	return "+" + status.FormatDuration(d)
}
