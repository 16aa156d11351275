// Package process finds a running game process by executable name and reads
// its memory.
package process

import (
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned by Attach when no live process matches.
	ErrNotFound = errors.New("process not found")

	// ErrModuleNotFound is returned by ModuleBase when the module is not mapped.
	ErrModuleNotFound = errors.New("module not found")

	// ErrUnsupported is returned on platforms without a memory reader.
	ErrUnsupported = errors.New("process attachment not supported on this platform")

	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("process handle closed")
)

// Attach finds a live process whose executable is name (case-insensitive)
// and opens it for reading.
func Attach(name string) (*Process, error) {
	return attach(name)
}

// PID returns the process identifier.
func (p *Process) PID() int { return p.pid }

// matchesExecutable reports whether a command or path names the executable.
// Both separators are accepted since Wine reports Windows paths.
func matchesExecutable(candidate, name string) bool {
	if candidate == "" || name == "" {
		return false
	}
	candidate = strings.ReplaceAll(candidate, `\`, "/")
	return strings.EqualFold(path.Base(candidate), name)
}
