// Package status renders timer events and journal listings for the
// terminal.
package status

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/joeycumines/thief-autosplitter/internal/storage"
	"github.com/joeycumines/thief-autosplitter/internal/timer"
)

// FormatDuration renders d as [h:]mm:ss.cc, or m:ss.cc under an hour.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	cs := int64(d / (10 * time.Millisecond))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	cs %= 100
	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%02d.%02d", sign, h, m, s, cs)
	}
	return fmt.Sprintf("%s%d:%02d.%02d", sign, m, s, cs)
}

// Styles holds the lipgloss styles used by Printer.
type Styles struct {
	Label   lipgloss.Style
	Start   lipgloss.Style
	Split   lipgloss.Style
	Reset   lipgloss.Style
	Finish  lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
	Success lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Label:   lipgloss.NewStyle().Bold(true),
		Start:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		Split:   lipgloss.NewStyle().Foreground(lipgloss.Color("70")),
		Reset:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Finish:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("70")),
	}
}

// Printer writes one line per timer event.
type Printer struct {
	w      io.Writer
	styles Styles
	// Total returns the number of missions in the active order, for the
	// progress gauge. Nil disables the gauge.
	Total func() int
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: DefaultStyles()}
}

// Event renders e. It matches the timer.Recorder Notify signature.
func (p *Printer) Event(e timer.Event) {
	_, _ = fmt.Fprintln(p.w, p.FormatEvent(e))
}

// FormatEvent returns the line Event would print.
func (p *Printer) FormatEvent(e timer.Event) string {
	st := p.styles
	label := func(style lipgloss.Style, s string) string {
		return style.Inherit(st.Label).Render(fmt.Sprintf("%-6s", s))
	}
	switch e.Kind {
	case timer.EventStart:
		return label(st.Start, "START") + " " + st.Muted.Render(shortID(e.RunID))
	case timer.EventSplit:
		line := fmt.Sprintf("%s #%-2d %s  igt %s",
			label(st.Split, "SPLIT"), e.Split+1, FormatDuration(e.RealTime), FormatDuration(e.GameTime))
		if p.Total != nil {
			if total := p.Total(); total > 0 {
				g := NewGauge(WithProgress(e.Split+1, total))
				line += "  " + g.View() + st.Muted.Render(fmt.Sprintf(" %d/%d", e.Split+1, total))
			}
		}
		return line
	case timer.EventReset:
		return label(st.Reset, "RESET") + " " + st.Muted.Render(shortID(e.RunID))
	case timer.EventFinish:
		outcome := "abandoned"
		if e.Run != nil && e.Run.Completed {
			outcome = st.Success.Render("completed")
		}
		return fmt.Sprintf("%s %s  igt %s  %d splits  %s",
			label(st.Finish, "FINISH"), FormatDuration(e.RealTime), FormatDuration(e.GameTime), e.Split, outcome)
	default:
		return label(st.Muted, e.Kind.String())
	}
}

// RunTable renders a listing of journal runs, oldest first, marking the
// fastest completed run per variant with an asterisk.
func RunTable(runs []*storage.Run, styles Styles) string {
	if len(runs) == 0 {
		return styles.Muted.Render("no runs recorded")
	}
	best := map[string]*storage.Run{}
	for _, run := range runs {
		if _, ok := best[run.Variant]; !ok {
			best[run.Variant] = storage.BestRun(runs, run.Variant)
		}
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render(fmt.Sprintf("%-8s  %-16s  %-8s  %-10s  %-10s  %-10s  %s",
		"ID", "STARTED", "VARIANT", "STATUS", "REAL", "GAME", "SPLITS")))
	b.WriteByte('\n')
	for _, run := range runs {
		status := "reset"
		if run.Completed {
			status = "completed"
		}
		mark := " "
		if best[run.Variant] == run {
			mark = "*"
		}
		variant := run.Variant
		if variant == "" {
			variant = "-"
		}
		line := fmt.Sprintf("%-8s  %-16s  %-8s  %-10s  %-10s  %-10s  %d%s",
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			variant,
			status,
			FormatDuration(run.RealTime),
			FormatDuration(run.GameTime),
			len(run.Splits),
			mark,
		)
		if !run.Completed {
			line = styles.Muted.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// RunDetail renders the splits of a single run.
func RunDetail(run *storage.Run, styles Styles) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("run"), run.ID)
	fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("variant"), run.Variant)
	fmt.Fprintf(&b, "%s %s\n", styles.Label.Render("started"), run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s %s (igt %s)\n", styles.Label.Render("total"), FormatDuration(run.RealTime), FormatDuration(run.GameTime))
	var prev time.Duration
	for _, s := range run.Splits {
		fmt.Fprintf(&b, "  #%-2d %10s  igt %10s  segment %s\n",
			s.Index+1, FormatDuration(s.RealTime), FormatDuration(s.GameTime), FormatDuration(s.GameTime-prev))
		prev = s.GameTime
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
