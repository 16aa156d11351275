package timer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeycumines/thief-autosplitter/internal/storage"
)

// EventKind identifies a Recorder event.
type EventKind int

const (
	EventStart EventKind = iota
	EventSplit
	EventReset
	EventFinish
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventSplit:
		return "split"
	case EventReset:
		return "reset"
	case EventFinish:
		return "finish"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes a change in the recorded run.
type Event struct {
	Kind     EventKind
	RunID    string
	Variant  string
	Split    int
	RealTime time.Duration
	GameTime time.Duration
	// Run is set for EventFinish.
	Run *storage.Run
}

// Journal persists finished runs.
type Journal interface {
	Save(run *storage.Run) error
}

// Recorder wraps a Timer and keeps its own account of the current run: real
// time, game time with pauses removed, and split times. Finished or abandoned
// runs are handed to Journal.
type Recorder struct {
	Timer   Timer
	Journal Journal
	// Variant names the mission order of the run, recorded at finish.
	Variant func() string
	// Notify is called synchronously for every Event.
	Notify func(Event)
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger

	mu          sync.Mutex
	run         *storage.Run
	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration
}

// NewRecorder wraps t.
func NewRecorder(t Timer, journal Journal, logger *slog.Logger) *Recorder {
	return &Recorder{Timer: t, Journal: journal, Logger: logger}
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Recorder) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Recorder) variant() string {
	if r.Variant != nil {
		return r.Variant()
	}
	return ""
}

func (r *Recorder) Start() error {
	if err := r.Timer.Start(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if r.run != nil {
		// the host was reset behind our back
		r.finishLocked(now, false)
	}
	r.run = &storage.Run{
		ID:        uuid.NewString(),
		Variant:   r.variant(),
		StartedAt: now,
	}
	r.paused, r.pausedTotal = false, 0
	r.emit(Event{Kind: EventStart, RunID: r.run.ID, Variant: r.run.Variant})
	return nil
}

func (r *Recorder) Split() error {
	if err := r.Timer.Split(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run == nil {
		return nil
	}
	now := r.now()
	s := storage.Split{
		Index:    len(r.run.Splits),
		RealTime: now.Sub(r.run.StartedAt),
		GameTime: r.gameTimeLocked(now),
	}
	r.run.Splits = append(r.run.Splits, s)
	r.emit(Event{Kind: EventSplit, RunID: r.run.ID, Variant: r.run.Variant, Split: s.Index, RealTime: s.RealTime, GameTime: s.GameTime})

	if phase, err := r.Timer.Phase(); err == nil && phase == Ended {
		r.finishLocked(now, true)
	}
	return nil
}

func (r *Recorder) Reset() error {
	if err := r.Timer.Reset(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run == nil {
		return nil
	}
	id := r.run.ID
	r.finishLocked(r.now(), false)
	r.emit(Event{Kind: EventReset, RunID: id})
	return nil
}

func (r *Recorder) PauseGameTime() error {
	if err := r.Timer.PauseGameTime(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil && !r.paused {
		r.paused, r.pausedAt = true, r.now()
	}
	return nil
}

func (r *Recorder) ResumeGameTime() error {
	if err := r.Timer.ResumeGameTime(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		r.pausedTotal += r.now().Sub(r.pausedAt)
		r.paused = false
	}
	return nil
}

// Phase passes through to the wrapped timer. A run that the host ended or
// reset on its own is closed out here.
func (r *Recorder) Phase() (Phase, error) {
	phase, err := r.Timer.Phase()
	if err != nil {
		return phase, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil && phase != Running {
		r.finishLocked(r.now(), phase == Ended)
	}
	return phase, nil
}

// Abandon journals the run in progress as incomplete without touching the
// wrapped timer. It is used on shutdown.
func (r *Recorder) Abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil {
		r.finishLocked(r.now(), false)
	}
}

// Current returns a copy of the run in progress.
func (r *Recorder) Current() (storage.Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run == nil {
		return storage.Run{}, false
	}
	run := *r.run
	run.Splits = append([]storage.Split(nil), r.run.Splits...)
	return run, true
}

func (r *Recorder) gameTimeLocked(now time.Time) time.Duration {
	paused := r.pausedTotal
	if r.paused {
		paused += now.Sub(r.pausedAt)
	}
	return now.Sub(r.run.StartedAt) - paused
}

func (r *Recorder) finishLocked(now time.Time, completed bool) {
	run := r.run
	run.EndedAt = now
	run.Completed = completed
	run.RealTime = now.Sub(run.StartedAt)
	run.GameTime = r.gameTimeLocked(now)
	if v := r.variant(); v != "" {
		run.Variant = v
	}
	r.run = nil
	r.paused, r.pausedTotal = false, 0

	if r.Journal != nil {
		if err := r.Journal.Save(run); err != nil {
			r.logger().Warn("failed to save run", slog.String("run", run.ID), slog.Any("error", err))
		}
	}
	r.emit(Event{Kind: EventFinish, RunID: run.ID, Variant: run.Variant, Split: len(run.Splits), RealTime: run.RealTime, GameTime: run.GameTime, Run: run})
}

func (r *Recorder) emit(e Event) {
	if r.Notify != nil {
		r.Notify(e)
	}
}
