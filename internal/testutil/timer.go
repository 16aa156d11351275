package testutil

import (
	"sync"

	"github.com/joeycumines/thief-autosplitter/internal/timer"
)

// FakeTimer records timer calls and follows the phase transitions of a
// simple timer: Start enters Running, Reset returns to NotRunning.
type FakeTimer struct {
	mu       sync.Mutex
	phase    timer.Phase
	calls    []string
	PhaseErr error
	CallErr  error
}

// SetPhase forces the reported phase.
func (t *FakeTimer) SetPhase(p timer.Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = p
}

// Calls returns the recorded calls in order.
func (t *FakeTimer) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// ActionCalls returns the recorded calls excluding game time pause/resume.
func (t *FakeTimer) ActionCalls() []string {
	var out []string
	for _, c := range t.Calls() {
		if c != "pause" && c != "resume" {
			out = append(out, c)
		}
	}
	return out
}

func (t *FakeTimer) record(call string, next *timer.Phase) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
	if t.CallErr != nil {
		return t.CallErr
	}
	if next != nil {
		t.phase = *next
	}
	return nil
}

func (t *FakeTimer) Start() error {
	p := timer.Running
	return t.record("start", &p)
}

func (t *FakeTimer) Split() error { return t.record("split", nil) }

func (t *FakeTimer) Reset() error {
	p := timer.NotRunning
	return t.record("reset", &p)
}

func (t *FakeTimer) PauseGameTime() error { return t.record("pause", nil) }

func (t *FakeTimer) ResumeGameTime() error { return t.record("resume", nil) }

func (t *FakeTimer) Phase() (timer.Phase, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.PhaseErr != nil {
		return 0, t.PhaseErr
	}
	return t.phase, nil
}

// RateRecorder records poll rate requests.
type RateRecorder struct {
	mu    sync.Mutex
	rates []float64
}

func (r *RateRecorder) SetPollRate(hz float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates = append(r.rates, hz)
}

// Last returns the most recent rate, or 0 if none was set.
func (r *RateRecorder) Last() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rates) == 0 {
		return 0
	}
	return r.rates[len(r.rates)-1]
}

// Rates returns every recorded rate in order.
func (r *RateRecorder) Rates() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.rates...)
}
