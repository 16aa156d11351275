// Package splitter decides, once per tick, which timer action the current
// snapshot calls for.
//
// The start, split and reset rules form a prioritized list evaluated as a
// behavior tree selector: the first rule whose conditions hold fires and the
// rest are skipped, so at most one action is emitted per tick. Pausing and
// resuming game time is decided independently on every Running tick.
package splitter

import (
	"fmt"
	"strings"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
	"github.com/joeycumines/thief-autosplitter/internal/timer"
	"github.com/joeycumines/thief-autosplitter/internal/variant"
	"github.com/joeycumines/thief-autosplitter/internal/watcher"
)

// Menu states observed in the retail build.
const (
	MenuResetCheckpoint int32 = 7
	MenuPauseExempt     int32 = 9
	MenuMissionStart    int32 = 10
	MenuMissionComplete int32 = 12
	MenuDebrief         int32 = 13
	MenuPaused          int32 = 6
)

// successMarker appears in the name of every mission-complete cutscene.
const successMarker = "success"

// Action is a timer action emitted by a Step.
type Action int

const (
	None Action = iota
	Start
	Split
	Reset
)

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case Start:
		return "start"
	case Split:
		return "split"
	case Reset:
		return "reset"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// GameTime is the pause decision of a Step.
type GameTime int

const (
	GameTimeUnchanged GameTime = iota
	GameTimePause
	GameTimeResume
)

// Decision is the outcome of one Step.
type Decision struct {
	Action   Action
	GameTime GameTime
	// Upgraded is set on the tick the run switched to the Gold order.
	Upgraded bool
}

// Rules selects which rules are active.
type Rules struct {
	Start  bool
	Split  bool
	Reset  bool
	ILMode bool
}

// DefaultRules enables the full-game start, split and reset rules.
func DefaultRules() Rules {
	return Rules{Start: true, Split: true, Reset: true}
}

// Machine is the split state machine. It owns the split cursor and the
// expected mission order of the current attachment.
type Machine struct {
	rules    Rules
	seq      variant.Sequence
	extended bool
	cursor   int

	// inputs and output of the tick being evaluated
	snap   snapshot.Snapshot
	phase  timer.Phase
	action Action

	// stepped is false until the first Step after the machine was created,
	// where Old == Current for every field.
	stepped bool

	tree bt.Node
}

// NewMachine returns a machine on the standard order with the cursor at 0.
func NewMachine(rules Rules) *Machine {
	m := &Machine{rules: rules, seq: variant.Standard()}
	if rules.ILMode {
		m.tree = bt.New(
			bt.Selector,
			rule(rules.Start, m.ilCanStart, m.fire(Start)),
			rule(rules.Split, m.ilCanSplit, m.fire(Split)),
			rule(rules.Reset, m.ilCanReset, m.fire(Reset)),
		)
	} else {
		m.tree = bt.New(
			bt.Selector,
			rule(rules.Start, m.canStart, m.fire(Start)),
			rule(rules.Split, m.canSplit, m.fire(Split)),
			rule(rules.Reset, m.canReset, m.fire(Reset)),
		)
	}
	return m
}

// Cursor returns the index of the next expected mission.
func (m *Machine) Cursor() int { return m.cursor }

// Sequence returns the active mission order.
func (m *Machine) Sequence() variant.Sequence { return m.seq }

// Extended reports whether the Gold order is active.
func (m *Machine) Extended() bool { return m.extended }

// Observe applies the Gold order upgrade for snap and reports whether it
// happened on this call. It does not depend on the timer phase, so callers
// that cannot read the phase still observe every refresh.
func (m *Machine) Observe(snap snapshot.Snapshot) bool {
	var upgraded bool
	m.seq, upgraded = variant.MaybeUpgrade(snap, m.seq, m.extended)
	if upgraded {
		m.extended = true
	}
	return upgraded
}

// Step evaluates one tick.
func (m *Machine) Step(snap snapshot.Snapshot, phase timer.Phase) Decision {
	var d Decision

	d.Upgraded = m.Observe(snap)

	if phase == timer.Running {
		if ShouldPause(snap) {
			d.GameTime = GameTimePause
		} else {
			d.GameTime = GameTimeResume
		}
	}

	// skip the practice entry when a real difficulty is selected
	if !m.rules.ILMode && phase == timer.NotRunning && snap.Difficulty.Current != 0 {
		m.cursor = 1
	}

	m.snap, m.phase, m.action = snap, phase, None
	// leaves never fail with an error
	_, _ = m.tree.Tick()
	m.stepped = true
	d.Action = m.action
	return d
}

// ShouldPause reports whether game time should be stopped for snap.
func ShouldPause(snap snapshot.Snapshot) bool {
	menu := snap.MenuState.Current
	return (snap.IsLoading.Current != 0 && menu != MenuPauseExempt) ||
		menu == MenuPaused ||
		menu == MenuMissionComplete
}

func (m *Machine) expects(i int) bool {
	want, ok := m.seq.At(i)
	return ok && m.snap.MissionIndex.Current == want
}

func (m *Machine) startIndex() int {
	if m.snap.Difficulty.Current == 0 {
		return 0
	}
	return 1
}

func (m *Machine) canStart() bool {
	return m.phase == timer.NotRunning &&
		m.expects(m.cursor) &&
		m.snap.MenuState.Current == MenuMissionStart &&
		m.snap.IsLoading.Current != 0
}

func (m *Machine) canSplit() bool {
	return m.phase == timer.Running &&
		m.snap.MenuState.Current == MenuMissionComplete &&
		m.expects(m.cursor) &&
		strings.Contains(m.snap.CutsceneName.Current, successMarker)
}

func (m *Machine) canReset() bool {
	return (m.phase == timer.Running || m.phase == timer.Ended) &&
		m.expects(m.startIndex()) &&
		m.snap.MenuState.Current == MenuResetCheckpoint
}

func (m *Machine) ilCanStart() bool {
	// the first sample has no edge, so a start screen already showing at
	// attach counts as entered
	entered := watcher.Became(m.snap.MenuState, MenuMissionStart) ||
		(!m.stepped && m.snap.MenuState.Current == MenuMissionStart)
	return m.phase == timer.NotRunning && entered && m.snap.LevelTime.Current == 0
}

func (m *Machine) ilCanSplit() bool {
	return m.phase == timer.Running && watcher.Became(m.snap.MenuState, MenuDebrief)
}

func (m *Machine) ilCanReset() bool {
	return (m.phase == timer.Running || m.phase == timer.Ended) &&
		(watcher.Became(m.snap.MenuState, MenuResetCheckpoint) || watcher.Became(m.snap.MenuState, MenuPauseExempt))
}

func (m *Machine) fire(a Action) func() {
	return func() {
		m.action = a
		switch a {
		case Split:
			m.cursor++
		case Reset:
			m.cursor = 0
		}
	}
}

// rule builds a Sequence that runs fire once cond holds. Disabled rules
// always fail so the selector moves on.
func rule(enabled bool, cond func() bool, fire func()) bt.Node {
	return bt.New(
		bt.Sequence,
		condition(func() bool { return enabled && cond() }),
		leaf(fire),
	)
}

func condition(fn func() bool) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if fn() {
			return bt.Success, nil
		}
		return bt.Failure, nil
	})
}

func leaf(fn func()) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		fn()
		return bt.Success, nil
	})
}
