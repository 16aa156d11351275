//go:build !linux && !windows

package process

import "github.com/joeycumines/thief-autosplitter/internal/memory"

// Process is unavailable on this platform.
type Process struct {
	pid int
}

func attach(string) (*Process, error) { return nil, ErrUnsupported }

func (p *Process) IsOpen() bool { return false }

func (p *Process) ModuleBase(string) (memory.Address, error) { return 0, ErrUnsupported }

func (p *Process) ReadAt(memory.Address, []byte) error { return ErrUnsupported }

func (p *Process) Close() error { return nil }
