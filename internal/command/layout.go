package command

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rivo/uniseg"

	"github.com/joeycumines/thief-autosplitter/internal/autosplit"
	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
)

// LayoutCommand prints the effective memory layout, and with -probe reads
// every field once from the running game.
type LayoutCommand struct {
	*BaseCommand
	config *config.Config
	// Attacher finds the game process for -probe. Defaults to the OS
	// process attacher.
	Attacher autosplit.Attacher
	probe    bool
}

// NewLayoutCommand creates a new layout command.
func NewLayoutCommand(cfg *config.Config) *LayoutCommand {
	return &LayoutCommand{
		BaseCommand: NewBaseCommand(
			"layout",
			"Show the memory layout and optionally probe the game",
			"layout [-probe]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the layout command.
func (c *LayoutCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.probe, "probe", false, "Attach to the running game and print the current value of every field")
}

// Execute prints the layout.
func (c *LayoutCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	s, err := LoadSettings(c.config)
	if err != nil {
		return err
	}
	layout := s.Layout

	var snap snapshot.Snapshot
	if c.probe {
		snap, err = c.read(layout)
		if err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(stdout, "module: %s\n", layout.Module)
	_, _ = fmt.Fprintf(stdout, "pointer size: %d\n", layout.PointerSize)
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	if c.probe {
		_, _ = fmt.Fprintln(w, "FIELD\tPATH\tVALUE")
	} else {
		_, _ = fmt.Fprintln(w, "FIELD\tPATH")
	}
	for _, f := range snapshot.Fields {
		if c.probe {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", f, layout.Path(f), fieldValue(snap, f))
		} else {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", f, layout.Path(f))
		}
	}
	return w.Flush()
}

func (c *LayoutCommand) read(layout snapshot.Layout) (snapshot.Snapshot, error) {
	attacher := c.Attacher
	if attacher == nil {
		attacher = autosplit.AttacherFunc(attachProcess)
	}
	proc, err := attacher.Attach(layout.Module)
	if err != nil {
		return snapshot.Snapshot{}, &autosplit.AttachError{Module: layout.Module, Err: err}
	}
	defer proc.Close()
	base, err := proc.ModuleBase(layout.Module)
	if err != nil {
		return snapshot.Snapshot{}, &autosplit.AttachError{Module: layout.Module, Err: err}
	}
	return snapshot.NewSet(layout).RefreshAll(proc, base)
}

func fieldValue(s snapshot.Snapshot, f snapshot.Field) string {
	switch f {
	case snapshot.MissionIndex:
		return fmt.Sprint(s.MissionIndex.Current)
	case snapshot.MenuState:
		return fmt.Sprint(s.MenuState.Current)
	case snapshot.IsLoading:
		return fmt.Sprint(s.IsLoading.Current)
	case snapshot.LevelTime:
		return fmt.Sprint(s.LevelTime.Current)
	case snapshot.Difficulty:
		return fmt.Sprint(s.Difficulty.Current)
	case snapshot.CutsceneName:
		return fmt.Sprintf("%q", clip(s.CutsceneName.Current, maxValueWidth))
	}
	return ""
}

// maxValueWidth caps the VALUE column; text fields hold up to 255 bytes.
const maxValueWidth = 48

// clip shortens s to at most width terminal cells without splitting a
// grapheme cluster.
func clip(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}
	var b []byte
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > width-1 {
			break
		}
		used += w
		b = append(b, g.Bytes()...)
	}
	return string(b) + "…"
}
