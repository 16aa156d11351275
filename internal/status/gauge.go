package status

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Gauge is a one-line progress bar for splits completed out of the missions
// in the active order.
type Gauge struct {
	// Done is the number of completed splits.
	Done int
	// Total is the number of missions in the run.
	Total int
	// Width is the number of cells the bar occupies.
	Width int

	FillStyle  lipgloss.Style
	TrackStyle lipgloss.Style
	FillChar   string
	TrackChar  string
}

// GaugeOption configures NewGauge.
type GaugeOption func(*Gauge)

// NewGauge returns a gauge with the default styles.
func NewGauge(opts ...GaugeOption) Gauge {
	g := Gauge{
		Width:      20,
		FillChar:   "█",
		TrackChar:  "░",
		FillStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("70")),
		TrackStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// WithProgress sets the done and total counts.
func WithProgress(done, total int) GaugeOption {
	return func(g *Gauge) {
		g.Done = done
		g.Total = total
	}
}

// WithWidth sets the bar width in cells.
func WithWidth(w int) GaugeOption {
	return func(g *Gauge) { g.Width = w }
}

// WithGaugeChars sets the fill and track characters.
func WithGaugeChars(fill, track string) GaugeOption {
	return func(g *Gauge) {
		g.FillChar = fill
		g.TrackChar = track
	}
}

// Filled returns the number of filled cells.
func (g Gauge) Filled() int {
	if g.Width <= 0 || g.Total <= 0 {
		return 0
	}
	done := min(max(g.Done, 0), g.Total)
	return done * g.Width / g.Total
}

// View renders the bar. It is empty when Width is not positive.
func (g Gauge) View() string {
	if g.Width <= 0 {
		return ""
	}
	filled := g.Filled()
	var s strings.Builder
	if filled > 0 {
		s.WriteString(g.FillStyle.Render(strings.Repeat(g.FillChar, filled)))
	}
	if rest := g.Width - filled; rest > 0 {
		s.WriteString(g.TrackStyle.Render(strings.Repeat(g.TrackChar, rest)))
	}
	return s.String()
}
