package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
	"github.com/joeycumines/thief-autosplitter/internal/timer"
	"github.com/joeycumines/thief-autosplitter/internal/variant"
	"github.com/joeycumines/thief-autosplitter/internal/watcher"
)

func steady[T any](v T) watcher.Pair[T] { return watcher.Pair[T]{Old: v, Current: v} }

type snap struct {
	mission, menu, loading, levelTime, difficulty int32
	cutscene                                      string
	prevMenu                                      *int32
}

func (s snap) build() snapshot.Snapshot {
	out := snapshot.Snapshot{
		MissionIndex: steady(s.mission),
		MenuState:    steady(s.menu),
		IsLoading:    steady(s.loading),
		LevelTime:    steady(s.levelTime),
		Difficulty:   steady(s.difficulty),
		CutsceneName: steady(s.cutscene),
	}
	if s.prevMenu != nil {
		out.MenuState.Old = *s.prevMenu
	}
	return out
}

func ptr(v int32) *int32 { return &v }

func TestStep_ScenarioA_Start(t *testing.T) {
	m := NewMachine(DefaultRules())
	d := m.Step(snap{mission: 1, menu: 10, loading: 1}.build(), timer.NotRunning)
	assert.Equal(t, Start, d.Action)
	assert.Equal(t, GameTimeUnchanged, d.GameTime)
	assert.Equal(t, 0, m.Cursor())
}

func TestStep_ScenarioB_Split(t *testing.T) {
	m := NewMachine(DefaultRules())
	d := m.Step(snap{mission: 1, menu: 12, cutscene: "mission_01_success"}.build(), timer.Running)
	assert.Equal(t, Split, d.Action)
	assert.Equal(t, 1, m.Cursor())
}

func TestStep_ScenarioC_Reset(t *testing.T) {
	m := NewMachine(DefaultRules())
	m.Step(snap{mission: 1, menu: 12, cutscene: "success"}.build(), timer.Running)
	require.Equal(t, 1, m.Cursor())

	d := m.Step(snap{mission: 1, menu: 7}.build(), timer.Running)
	assert.Equal(t, Reset, d.Action)
	assert.Equal(t, 0, m.Cursor())
}

func TestStep_ResetFromEnded(t *testing.T) {
	m := NewMachine(DefaultRules())
	d := m.Step(snap{mission: 1, menu: 7}.build(), timer.Ended)
	assert.Equal(t, Reset, d.Action)
	assert.Equal(t, GameTimeUnchanged, d.GameTime)
}

func TestStep_ResetUsesStartIndexNotCursor(t *testing.T) {
	m := NewMachine(DefaultRules())
	m.Step(snap{mission: 1, menu: 12, cutscene: "success"}.build(), timer.Running)
	m.Step(snap{mission: 2, menu: 12, cutscene: "success"}.build(), timer.Running)
	require.Equal(t, 2, m.Cursor())

	// mission 3 is the current split point but not the checkpoint mission
	d := m.Step(snap{mission: 3, menu: 7}.build(), timer.Running)
	assert.Equal(t, None, d.Action)

	// non-zero difficulty moves the checkpoint to sequence[1]
	d = m.Step(snap{mission: 2, menu: 7, difficulty: 2}.build(), timer.Running)
	assert.Equal(t, Reset, d.Action)
	assert.Equal(t, 0, m.Cursor())
}

func TestStep_ScenarioD_GoldUpgrade(t *testing.T) {
	m := NewMachine(DefaultRules())
	for _, mission := range []int32{1, 2, 3, 4, 5} {
		d := m.Step(snap{mission: mission, menu: 12, cutscene: "success"}.build(), timer.Running)
		require.Equal(t, Split, d.Action)
	}
	require.Equal(t, 5, m.Cursor())

	d := m.Step(snap{mission: 15, menu: 3}.build(), timer.Running)
	assert.True(t, d.Upgraded)
	assert.True(t, m.Extended())
	assert.Equal(t, variant.Sequence{1, 2, 3, 4, 5, 15, 6, 7, 16, 9, 17, 10, 11, 12, 13, 14}, m.Sequence())
	assert.Equal(t, 5, m.Cursor())

	// the existing cursor now points at mission 15
	d = m.Step(snap{mission: 15, menu: 12, cutscene: "m15_success"}.build(), timer.Running)
	assert.False(t, d.Upgraded)
	assert.Equal(t, Split, d.Action)
	assert.Equal(t, 6, m.Cursor())
}

func TestStep_UpgradeRunsInEveryPhase(t *testing.T) {
	for _, phase := range []timer.Phase{timer.NotRunning, timer.Running, timer.Ended} {
		m := NewMachine(DefaultRules())
		d := m.Step(snap{mission: 15}.build(), phase)
		assert.True(t, d.Upgraded, phase.String())
		assert.True(t, m.Extended())
	}
}

func TestStep_ScenarioE_PauseResume(t *testing.T) {
	m := NewMachine(DefaultRules())
	d := m.Step(snap{mission: 4, menu: 3, loading: 1}.build(), timer.Running)
	assert.Equal(t, GameTimePause, d.GameTime)

	d = m.Step(snap{mission: 4, menu: 3, loading: 0}.build(), timer.Running)
	assert.Equal(t, GameTimeResume, d.GameTime)
}

func TestShouldPause(t *testing.T) {
	tests := []struct {
		name    string
		loading int32
		menu    int32
		want    bool
	}{
		{"loading", 1, 3, true},
		{"loading exempt menu", 1, 9, false},
		{"paused menu", 0, 6, true},
		{"mission complete", 0, 12, true},
		{"in game", 0, 3, false},
		{"exempt menu idle", 0, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldPause(snap{loading: tt.loading, menu: tt.menu}.build()))
		})
	}
}

func TestStep_NoPauseDecisionOutsideRunning(t *testing.T) {
	m := NewMachine(DefaultRules())
	assert.Equal(t, GameTimeUnchanged, m.Step(snap{loading: 1, menu: 3}.build(), timer.NotRunning).GameTime)
	assert.Equal(t, GameTimeUnchanged, m.Step(snap{loading: 1, menu: 3}.build(), timer.Ended).GameTime)
}

func TestStep_PrimingSkipsPracticeEntry(t *testing.T) {
	m := NewMachine(DefaultRules())
	d := m.Step(snap{mission: 1, menu: 10, loading: 1, difficulty: 2}.build(), timer.NotRunning)
	assert.Equal(t, None, d.Action)
	assert.Equal(t, 1, m.Cursor())

	d = m.Step(snap{mission: 2, menu: 10, loading: 1, difficulty: 2}.build(), timer.NotRunning)
	assert.Equal(t, Start, d.Action)
	assert.Equal(t, 1, m.Cursor())
}

func TestStep_PrimingOnlyWhileNotRunning(t *testing.T) {
	m := NewMachine(DefaultRules())
	m.Step(snap{mission: 9, difficulty: 1}.build(), timer.Running)
	assert.Equal(t, 0, m.Cursor())
}

func TestStep_StartRequiresLoading(t *testing.T) {
	m := NewMachine(DefaultRules())
	assert.Equal(t, None, m.Step(snap{mission: 1, menu: 10}.build(), timer.NotRunning).Action)
	assert.Equal(t, None, m.Step(snap{mission: 2, menu: 10, loading: 1}.build(), timer.NotRunning).Action)
}

func TestStep_SplitRequiresSuccessCutscene(t *testing.T) {
	m := NewMachine(DefaultRules())
	assert.Equal(t, None, m.Step(snap{mission: 1, menu: 12, cutscene: "mission_01_failure"}.build(), timer.Running).Action)
	assert.Equal(t, None, m.Step(snap{mission: 2, menu: 12, cutscene: "success"}.build(), timer.Running).Action)
	assert.Equal(t, 0, m.Cursor())
}

func TestStep_CursorPastEndMatchesNothing(t *testing.T) {
	m := NewMachine(DefaultRules())
	seq := m.Sequence()
	for _, mission := range seq {
		require.Equal(t, Split, m.Step(snap{mission: mission, menu: 12, cutscene: "success"}.build(), timer.Running).Action)
	}
	require.Equal(t, len(seq), m.Cursor())

	d := m.Step(snap{mission: 14, menu: 12, cutscene: "success"}.build(), timer.Running)
	assert.Equal(t, None, d.Action)
	assert.Equal(t, len(seq), m.Cursor())
}

func TestStep_DisabledRules(t *testing.T) {
	rules := DefaultRules()
	rules.Start = false
	m := NewMachine(rules)
	assert.Equal(t, None, m.Step(snap{mission: 1, menu: 10, loading: 1}.build(), timer.NotRunning).Action)

	rules = DefaultRules()
	rules.Split = false
	m = NewMachine(rules)
	assert.Equal(t, None, m.Step(snap{mission: 1, menu: 12, cutscene: "success"}.build(), timer.Running).Action)
	assert.Equal(t, 0, m.Cursor())

	rules = DefaultRules()
	rules.Reset = false
	m = NewMachine(rules)
	assert.Equal(t, None, m.Step(snap{mission: 1, menu: 7}.build(), timer.Running).Action)
}

func TestStep_ILMode(t *testing.T) {
	rules := DefaultRules()
	rules.ILMode = true
	m := NewMachine(rules)

	m.Step(snap{menu: 4}.build(), timer.NotRunning)
	// level-triggered menu 10 without a transition does nothing
	assert.Equal(t, None, m.Step(snap{menu: 10}.build(), timer.NotRunning).Action)

	d := m.Step(snap{menu: 10, prevMenu: ptr(4)}.build(), timer.NotRunning)
	assert.Equal(t, Start, d.Action)

	d = m.Step(snap{menu: 10, levelTime: 50, prevMenu: ptr(4)}.build(), timer.NotRunning)
	assert.Equal(t, None, d.Action)

	d = m.Step(snap{menu: 13, prevMenu: ptr(12)}.build(), timer.Running)
	assert.Equal(t, Split, d.Action)
	assert.Equal(t, 1, m.Cursor())

	d = m.Step(snap{menu: 13}.build(), timer.Running)
	assert.Equal(t, None, d.Action)

	d = m.Step(snap{menu: 9, prevMenu: ptr(13)}.build(), timer.Ended)
	assert.Equal(t, Reset, d.Action)
	assert.Equal(t, 0, m.Cursor())
}

func TestStep_ILModeStartScreenShowingOnFirstSample(t *testing.T) {
	rules := DefaultRules()
	rules.ILMode = true

	m := NewMachine(rules)
	assert.Equal(t, Start, m.Step(snap{menu: 10}.build(), timer.NotRunning).Action)

	// only the first sample counts as an edge
	m = NewMachine(rules)
	m.Step(snap{menu: 10, levelTime: 30}.build(), timer.NotRunning)
	assert.Equal(t, None, m.Step(snap{menu: 10}.build(), timer.NotRunning).Action)
}

func TestObserve_UpgradesWithoutStep(t *testing.T) {
	m := NewMachine(DefaultRules())
	assert.False(t, m.Observe(snap{mission: 9}.build()))
	assert.False(t, m.Extended())

	assert.True(t, m.Observe(snap{mission: 15}.build()))
	assert.True(t, m.Extended())
	assert.Equal(t, "gold", m.Sequence().Name())

	// one-way, and reported once
	assert.False(t, m.Observe(snap{mission: 15}.build()))
	d := m.Step(snap{mission: 1}.build(), timer.NotRunning)
	assert.False(t, d.Upgraded)
	assert.True(t, m.Extended())
}

func TestStep_ILModeIgnoresDifficultyPriming(t *testing.T) {
	rules := DefaultRules()
	rules.ILMode = true
	m := NewMachine(rules)
	m.Step(snap{difficulty: 3}.build(), timer.NotRunning)
	assert.Equal(t, 0, m.Cursor())
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "split", Split.String())
	assert.Equal(t, "Action(9)", Action(9).String())
}
