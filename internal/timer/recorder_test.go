package timer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/thief-autosplitter/internal/storage"
)

type memJournal struct {
	mu   sync.Mutex
	runs []*storage.Run
	err  error
}

func (j *memJournal) Save(run *storage.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs = append(j.runs, run)
	return j.err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)} }

func newTestRecorder(segments int) (*Recorder, *memJournal, *clock, *[]Event) {
	j := &memJournal{}
	c := newClock()
	var events []Event
	r := NewRecorder(NewLocal(segments), j, nil)
	r.Now = c.now
	r.Variant = func() string { return "standard" }
	r.Notify = func(e Event) { events = append(events, e) }
	return r, j, c, &events
}

func kinds(events []Event) []EventKind {
	var out []EventKind
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestRecorder_CompletedRun(t *testing.T) {
	r, j, c, events := newTestRecorder(2)

	require.NoError(t, r.Start())
	c.advance(10 * time.Second)
	require.NoError(t, r.PauseGameTime())
	c.advance(3 * time.Second)
	// repeated pauses do not restart the pause interval
	require.NoError(t, r.PauseGameTime())
	c.advance(2 * time.Second)
	require.NoError(t, r.ResumeGameTime())
	c.advance(5 * time.Second)
	require.NoError(t, r.Split())

	cur, ok := r.Current()
	require.True(t, ok)
	require.Len(t, cur.Splits, 1)
	assert.Equal(t, 20*time.Second, cur.Splits[0].RealTime)
	assert.Equal(t, 15*time.Second, cur.Splits[0].GameTime)

	c.advance(10 * time.Second)
	require.NoError(t, r.Split())
	assert.Equal(t, Ended, phaseOf(t, r))

	_, ok = r.Current()
	assert.False(t, ok)
	require.Len(t, j.runs, 1)
	run := j.runs[0]
	assert.True(t, run.Completed)
	assert.Equal(t, "standard", run.Variant)
	assert.Equal(t, 30*time.Second, run.RealTime)
	assert.Equal(t, 25*time.Second, run.GameTime)
	assert.Len(t, run.Splits, 2)
	assert.NotEmpty(t, run.ID)

	assert.Equal(t, []EventKind{EventStart, EventSplit, EventSplit, EventFinish}, kinds(*events))

	// reset after the run ended does not journal it twice
	require.NoError(t, r.Reset())
	assert.Len(t, j.runs, 1)
}

func TestRecorder_ResetJournalsIncompleteRun(t *testing.T) {
	r, j, c, events := newTestRecorder(0)
	require.NoError(t, r.Start())
	c.advance(time.Minute)
	require.NoError(t, r.PauseGameTime())
	c.advance(time.Minute)
	require.NoError(t, r.Reset())

	require.Len(t, j.runs, 1)
	run := j.runs[0]
	assert.False(t, run.Completed)
	assert.Equal(t, 2*time.Minute, run.RealTime)
	assert.Equal(t, time.Minute, run.GameTime)
	assert.Equal(t, []EventKind{EventStart, EventFinish, EventReset}, kinds(*events))
	assert.Equal(t, NotRunning, phaseOf(t, r))
}

func TestRecorder_ExternalResetClosesRun(t *testing.T) {
	r, j, _, _ := newTestRecorder(0)
	require.NoError(t, r.Start())
	// the host timer is reset without going through the recorder
	require.NoError(t, r.Timer.Reset())
	assert.Equal(t, NotRunning, phaseOf(t, r))
	require.Len(t, j.runs, 1)
	assert.False(t, j.runs[0].Completed)
}

func TestRecorder_SaveErrorIsNotReturned(t *testing.T) {
	r, j, _, _ := newTestRecorder(0)
	j.err = errors.New("disk full")
	require.NoError(t, r.Start())
	require.NoError(t, r.Reset())
	assert.Len(t, j.runs, 1)
}

func TestRecorder_AbandonLeavesTimerRunning(t *testing.T) {
	r, j, c, events := newTestRecorder(0)
	r.Abandon()
	assert.Empty(t, j.runs)

	require.NoError(t, r.Start())
	require.NoError(t, r.Split())
	c.advance(time.Minute)
	r.Abandon()

	require.Len(t, j.runs, 1)
	assert.False(t, j.runs[0].Completed)
	assert.Len(t, j.runs[0].Splits, 1)
	assert.Equal(t, []EventKind{EventStart, EventSplit, EventFinish}, kinds(*events))
	assert.Equal(t, Running, phaseOf(t, r.Timer))
	_, ok := r.Current()
	assert.False(t, ok)
}

type failingTimer struct{ Local }

var errHost = errors.New("host unavailable")

func (f *failingTimer) Start() error { return errHost }

func TestRecorder_InnerErrorLeavesNoRun(t *testing.T) {
	r := NewRecorder(&failingTimer{}, nil, nil)
	require.ErrorIs(t, r.Start(), errHost)
	_, ok := r.Current()
	assert.False(t, ok)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "start", EventStart.String())
	assert.Equal(t, "finish", EventFinish.String())
	assert.Equal(t, "EventKind(7)", EventKind(7).String())
}
