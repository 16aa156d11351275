package timer

import "sync"

// Local is an in-process timer. Actions that make no sense in the current
// phase are ignored, matching how host timers treat them.
type Local struct {
	// Segments is the number of splits after which the run ends. Zero means
	// the run only ends on Reset.
	Segments int
	// Finished, when set, replaces Segments. It is called after every split
	// with the split count and ends the run when it returns true.
	Finished func(splits int) bool

	mu         sync.Mutex
	phase      Phase
	splits     int
	gamePaused bool
}

// NewLocal returns a timer that ends after segments splits.
func NewLocal(segments int) *Local {
	return &Local{Segments: segments}
}

func (t *Local) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == NotRunning {
		t.phase = Running
		t.splits = 0
		t.gamePaused = false
	}
	return nil
}

func (t *Local) Split() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != Running {
		return nil
	}
	t.splits++
	switch {
	case t.Finished != nil:
		if t.Finished(t.splits) {
			t.phase = Ended
		}
	case t.Segments > 0 && t.splits >= t.Segments:
		t.phase = Ended
	}
	return nil
}

func (t *Local) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = NotRunning
	t.splits = 0
	t.gamePaused = false
	return nil
}

func (t *Local) PauseGameTime() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == Running {
		t.gamePaused = true
	}
	return nil
}

func (t *Local) ResumeGameTime() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gamePaused = false
	return nil
}

func (t *Local) Phase() (Phase, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase, nil
}

// Splits returns the number of splits in the current run.
func (t *Local) Splits() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.splits
}

// GameTimePaused reports whether game time is currently stopped.
func (t *Local) GameTimePaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gamePaused
}
