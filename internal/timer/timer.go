// Package timer provides the speedrun timer services the autosplitter drives:
// an in-process timer, a LiveSplit Server client, and a recording decorator
// that journals finished runs.
package timer

import "fmt"

// Phase is the externally owned state of a timer.
type Phase int

const (
	NotRunning Phase = iota
	Running
	Ended
)

func (p Phase) String() string {
	switch p {
	case NotRunning:
		return "NotRunning"
	case Running:
		return "Running"
	case Ended:
		return "Ended"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Timer is the host timer service. Implementations apply actions before the
// next Phase call observes them.
type Timer interface {
	Start() error
	Split() error
	Reset() error
	PauseGameTime() error
	ResumeGameTime() error
	Phase() (Phase, error)
}
