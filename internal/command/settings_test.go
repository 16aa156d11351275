package command

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/memory"
	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
	"github.com/joeycumines/thief-autosplitter/internal/splitter"
)

func TestLoadSettings_Defaults(t *testing.T) {
	t.Parallel()
	s, err := LoadSettings(nil)
	require.NoError(t, err)

	assert.Equal(t, snapshot.DefaultLayout(), s.Layout)
	assert.Equal(t, splitter.DefaultRules(), s.Rules)
	assert.Equal(t, 10.0, s.IdleRate)
	assert.Equal(t, 100.0, s.ActiveRate)
	assert.Equal(t, BackendLocal, s.Backend)
	assert.Equal(t, "localhost:16834", s.LiveSplitAddr)
	assert.Equal(t, time.Second, s.DialTimeout)
	assert.Zero(t, s.Segments)
	assert.True(t, s.JournalEnabled)
	assert.Empty(t, s.JournalDir)
	assert.Zero(t, s.MaxRuns)
}

func TestLoadSettings_FromConfig(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.SetGlobalOption("game.module", "thief2.exe")
	cfg.SetGlobalOption("game.pointer-size", "8")
	cfg.SetGlobalOption("offsets.cutscene-name", "0x10, 0x20")
	cfg.SetGlobalOption("poll.active-rate", "60")
	cfg.SetGlobalOption("timer.backend", "livesplit")
	cfg.SetGlobalOption("timer.dial-timeout", "250ms")
	cfg.SetGlobalOption("rules.reset", "false")
	cfg.SetGlobalOption("rules.il-mode", "yes")
	cfg.SetGlobalOption("journal.dir", "/tmp/runs")
	cfg.SetGlobalOption("journal.max-runs", "20")

	s, err := LoadSettings(cfg)
	require.NoError(t, err)
	assert.Equal(t, "thief2.exe", s.Layout.Module)
	assert.Equal(t, 8, s.Layout.PointerSize)
	assert.Equal(t, memory.Path{0x10, 0x20}, s.Layout.Path(snapshot.CutsceneName))
	assert.Equal(t, 60.0, s.ActiveRate)
	assert.Equal(t, BackendLiveSplit, s.Backend)
	assert.Equal(t, 250*time.Millisecond, s.DialTimeout)
	assert.Equal(t, splitter.Rules{Start: true, Split: true, ILMode: true}, s.Rules)
	assert.Equal(t, 20, s.MaxRuns)

	dir, err := s.ResolveJournalDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/runs", dir)
}

func TestLoadSettings_Errors(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		key, value, want string
	}{
		{"game.pointer-size", "2", "pointer size"},
		{"game.pointer-size", "four", "game.pointer-size"},
		{"offsets.menu-state", "0x10,,0x8", "offsets.menu-state"},
		{"poll.idle-rate", "0", "poll rates must be positive"},
		{"timer.backend", "wsplit", "unknown timer backend"},
		{"timer.segments", "-1", "timer.segments"},
		{"journal.max-runs", "-3", "journal.max-runs"},
		{"rules.split", "maybe", "rules.split"},
		{"timer.dial-timeout", "soon", "timer.dial-timeout"},
	} {
		cfg := config.NewConfig()
		cfg.SetGlobalOption(tc.key, tc.value)
		_, err := LoadSettings(cfg)
		assert.ErrorContains(t, err, tc.want, "%s=%s", tc.key, tc.value)
	}
}

func TestSettings_DefaultJournalDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	s := &Settings{}
	dir, err := s.ResolveJournalDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".thief-autosplitter", "runs"), dir)
}
