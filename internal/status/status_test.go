package status

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/thief-autosplitter/internal/storage"
	"github.com/joeycumines/thief-autosplitter/internal/timer"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func TestFormatDuration(t *testing.T) {
	for _, tc := range []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00.00"},
		{1234 * time.Millisecond, "0:01.23"},
		{61*time.Second + 5*time.Millisecond, "1:01.00"},
		{time.Hour + 2*time.Minute + 3*time.Second + 450*time.Millisecond, "1:02:03.45"},
		{-1500 * time.Millisecond, "-0:01.50"},
	} {
		assert.Equal(t, tc.want, FormatDuration(tc.in), tc.in.String())
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge(WithProgress(3, 12), WithWidth(12), WithGaugeChars("#", "."))
	assert.Equal(t, 3, g.Filled())
	assert.Equal(t, "###.........", g.View())

	g = NewGauge(WithProgress(20, 13), WithWidth(5), WithGaugeChars("#", "."))
	assert.Equal(t, "#####", g.View(), "overflow is clamped")

	g = NewGauge(WithProgress(-1, 13), WithWidth(4), WithGaugeChars("#", "."))
	assert.Equal(t, "....", g.View())

	assert.Empty(t, NewGauge(WithWidth(0)).View())
	assert.Zero(t, NewGauge(WithProgress(1, 0)).Filled())
}

func TestPrinter_Events(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Total = func() int { return 13 }

	p.Event(timer.Event{Kind: timer.EventStart, RunID: "0123456789abcdef"})
	p.Event(timer.Event{Kind: timer.EventSplit, Split: 0, RealTime: 95 * time.Second, GameTime: 80 * time.Second})
	p.Event(timer.Event{Kind: timer.EventFinish, Split: 1, RealTime: 100 * time.Second, GameTime: 85 * time.Second,
		Run: &storage.Run{Completed: true}})
	p.Event(timer.Event{Kind: timer.EventReset, RunID: "0123456789abcdef"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "START")
	assert.Contains(t, lines[0], "01234567")
	assert.NotContains(t, lines[0], "89abcdef")
	assert.Contains(t, lines[1], "SPLIT")
	assert.Contains(t, lines[1], "1:35.00")
	assert.Contains(t, lines[1], "igt 1:20.00")
	assert.Contains(t, lines[1], "1/13")
	assert.Contains(t, lines[2], "FINISH")
	assert.Contains(t, lines[2], "completed")
	assert.Contains(t, lines[3], "RESET")
}

func TestPrinter_FinishAbandoned(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{})
	line := p.FormatEvent(timer.Event{Kind: timer.EventFinish, Run: &storage.Run{}})
	assert.Contains(t, line, "abandoned")
}

func TestRunTable(t *testing.T) {
	assert.Contains(t, RunTable(nil, DefaultStyles()), "no runs recorded")

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	slow := &storage.Run{ID: "aaaaaaaa-1", Variant: "standard", StartedAt: t0, Completed: true, GameTime: 2 * time.Hour}
	fast := &storage.Run{ID: "bbbbbbbb-2", Variant: "standard", StartedAt: t0.Add(time.Hour), Completed: true, GameTime: time.Hour}
	reset := &storage.Run{ID: "cccccccc-3", StartedAt: t0.Add(2 * time.Hour), Splits: []storage.Split{{}}}

	out := RunTable([]*storage.Run{slow, fast, reset}, DefaultStyles())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "VARIANT")
	assert.Contains(t, lines[1], "aaaaaaaa")
	assert.False(t, strings.HasSuffix(lines[1], "*"))
	assert.Contains(t, lines[2], "bbbbbbbb")
	assert.True(t, strings.HasSuffix(lines[2], "*"))
	assert.Contains(t, lines[3], "reset")
	assert.Contains(t, lines[3], " - ")
	assert.True(t, strings.HasSuffix(lines[3], "1"))
}

func TestRunDetail(t *testing.T) {
	run := &storage.Run{
		ID:       "run-1",
		Variant:  "gold",
		RealTime: 3 * time.Minute,
		GameTime: 2 * time.Minute,
		Splits: []storage.Split{
			{Index: 0, RealTime: 70 * time.Second, GameTime: 60 * time.Second},
			{Index: 1, RealTime: 3 * time.Minute, GameTime: 2 * time.Minute},
		},
	}
	out := RunDetail(run, DefaultStyles())
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "gold")
	assert.Contains(t, out, "segment 1:00.00")
	assert.Equal(t, 2, strings.Count(out, "segment 1:00.00"))
}
