// Package autosplit ties process attachment, memory snapshots and the split
// state machine into the single tick handler driven by the poll loop.
package autosplit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joeycumines/thief-autosplitter/internal/memory"
	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
	"github.com/joeycumines/thief-autosplitter/internal/splitter"
	"github.com/joeycumines/thief-autosplitter/internal/timer"
	"github.com/joeycumines/thief-autosplitter/internal/watcher"
)

// Default poll rates in Hz.
const (
	IdleRate   = 10.0
	ActiveRate = 100.0
)

// Process is an attached game process.
type Process interface {
	memory.Reader
	PID() int
	IsOpen() bool
	ModuleBase(name string) (memory.Address, error)
	Close() error
}

// Attacher discovers and opens the game process.
type Attacher interface {
	Attach(moduleName string) (Process, error)
}

// AttacherFunc adapts a function to Attacher.
type AttacherFunc func(moduleName string) (Process, error)

func (f AttacherFunc) Attach(moduleName string) (Process, error) { return f(moduleName) }

// RateSetter receives poll cadence requests. The driver applies them.
type RateSetter interface {
	SetPollRate(hz float64)
}

// AttachError reports why attaching failed.
type AttachError struct {
	Module string
	Err    error
}

func (e *AttachError) Error() string { return fmt.Sprintf("attach %s: %v", e.Module, e.Err) }

func (e *AttachError) Unwrap() error { return e.Err }

// Options is the static configuration of an Autosplitter.
type Options struct {
	Layout     snapshot.Layout
	Rules      splitter.Rules
	IdleRate   float64
	ActiveRate float64
	Logger     *slog.Logger
}

// Autosplitter is the single owned state instance. It is either unattached
// (proc == nil, no watchers, no machine) or attached with fresh state created
// at attach time; nothing survives a detach.
type Autosplitter struct {
	opts     Options
	attacher Attacher
	timer    timer.Timer
	rate     RateSetter
	logger   *slog.Logger

	proc    Process
	base    memory.Address
	set     *snapshot.Set
	machine *splitter.Machine
	// held is the last snapshot refreshed while the timer phase could not be
	// read; its Old values carry over to the next evaluated tick.
	held *snapshot.Snapshot

	// phases tracks the timer phase across ticks and attachments.
	phases watcher.Watcher[timer.Phase]
	// phaseErr is set while Phase keeps failing, to log the failure once.
	phaseErr bool
}

// New returns an unattached Autosplitter.
func New(opts Options, attacher Attacher, t timer.Timer, rate RateSetter) (*Autosplitter, error) {
	if err := opts.Layout.Validate(); err != nil {
		return nil, err
	}
	if attacher == nil || t == nil || rate == nil {
		return nil, errors.New("autosplit: attacher, timer and rate setter are required")
	}
	if opts.IdleRate <= 0 {
		opts.IdleRate = IdleRate
	}
	if opts.ActiveRate <= 0 {
		opts.ActiveRate = ActiveRate
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosplitter{
		opts:     opts,
		attacher: attacher,
		timer:    t,
		rate:     rate,
		logger:   logger,
	}, nil
}

// Attached reports whether a process is currently attached.
func (a *Autosplitter) Attached() bool { return a.proc != nil }

// Machine returns the state machine of the current attachment, or nil.
func (a *Autosplitter) Machine() *splitter.Machine { return a.machine }

// Snapshot returns the last committed snapshot, if attached and refreshed.
func (a *Autosplitter) Snapshot() (snapshot.Snapshot, bool) {
	if a.set == nil {
		return snapshot.Snapshot{}, false
	}
	return a.set.Current()
}

// OnTick runs one poll cycle: attach when unattached, otherwise check
// liveness, refresh every watcher, and apply the machine's decision.
func (a *Autosplitter) OnTick() {
	if a.proc == nil {
		if err := a.attach(); err != nil {
			a.logger.Debug("attach failed", slog.Any("error", err))
			a.rate.SetPollRate(a.opts.IdleRate)
		}
		// start using the process on the next tick
		return
	}

	if !a.proc.IsOpen() {
		a.logger.Info("game process exited, detaching", slog.Int("pid", a.proc.PID()))
		a.detach()
		return
	}

	snap, err := a.set.RefreshAll(a.proc, a.base)
	if err != nil {
		a.logger.Warn("memory refresh failed, detaching", slog.Any("error", err))
		a.detach()
		return
	}

	if a.held != nil {
		snap = snap.Since(*a.held)
		a.held = nil
	}
	if watcher.Changed(snap.MenuState) {
		a.logger.Debug("menu state changed",
			slog.Int("from", int(snap.MenuState.Old)),
			slog.Int("to", int(snap.MenuState.Current)))
	}
	if a.machine.Observe(snap) {
		a.logger.Info("gold edition mission observed, switching mission order",
			slog.Int("cursor", a.machine.Cursor()))
	}

	phases, err := a.phases.Refresh(a.timer.Phase)
	if err != nil {
		if a.phaseErr {
			a.logger.Debug("timer phase still unavailable", slog.Any("error", err))
		} else {
			a.logger.Warn("timer phase unavailable", slog.Any("error", err))
			a.phaseErr = true
		}
		// keep the baseline so edges seen meanwhile are evaluated later
		a.held = &snap
		return
	}
	phase := phases.Current
	if a.phaseErr {
		a.logger.Info("timer phase available again", slog.String("phase", phase.String()))
		a.phaseErr = false
	}
	if watcher.Changed(phases) {
		a.logger.Debug("timer phase changed",
			slog.String("from", phases.Old.String()),
			slog.String("to", phase.String()))
	}

	a.apply(a.machine.Step(snap, phase), snap)
}

func (a *Autosplitter) apply(d splitter.Decision, snap snapshot.Snapshot) {
	switch d.GameTime {
	case splitter.GameTimePause:
		a.call("pause game time", a.timer.PauseGameTime)
	case splitter.GameTimeResume:
		a.call("resume game time", a.timer.ResumeGameTime)
	}

	var fn func() error
	switch d.Action {
	case splitter.Start:
		fn = a.timer.Start
	case splitter.Split:
		fn = a.timer.Split
	case splitter.Reset:
		fn = a.timer.Reset
	default:
		return
	}
	a.logger.Info("timer action",
		slog.String("action", d.Action.String()),
		slog.Int("mission", int(snap.MissionIndex.Current)),
		slog.Int("menu", int(snap.MenuState.Current)),
		slog.Int("cursor", a.machine.Cursor()),
		slog.String("variant", a.machine.Sequence().Name()))
	a.call(d.Action.String(), fn)
}

func (a *Autosplitter) call(what string, fn func() error) {
	if err := fn(); err != nil {
		a.logger.Warn("timer call failed", slog.String("call", what), slog.Any("error", err))
	}
}

func (a *Autosplitter) attach() error {
	module := a.opts.Layout.Module
	proc, err := a.attacher.Attach(module)
	if err != nil {
		return &AttachError{Module: module, Err: err}
	}
	base, err := proc.ModuleBase(module)
	if err != nil {
		_ = proc.Close()
		return &AttachError{Module: module, Err: fmt.Errorf("module base: %w", err)}
	}

	a.proc = proc
	a.base = base
	a.set = snapshot.NewSet(a.opts.Layout)
	a.machine = splitter.NewMachine(a.opts.Rules)
	a.rate.SetPollRate(a.opts.ActiveRate)
	a.logger.Info("attached to game process",
		slog.String("module", module),
		slog.Int("pid", proc.PID()),
		slog.String("base", base.String()))
	return nil
}

// detach drops every piece of per-process state and returns to idle polling.
func (a *Autosplitter) detach() {
	if a.proc != nil {
		if err := a.proc.Close(); err != nil {
			a.logger.Debug("close process", slog.Any("error", err))
		}
	}
	a.proc = nil
	a.base = 0
	a.set = nil
	a.machine = nil
	a.held = nil
	a.rate.SetPollRate(a.opts.IdleRate)
}

// Close detaches if attached.
func (a *Autosplitter) Close() error {
	a.detach()
	return nil
}
