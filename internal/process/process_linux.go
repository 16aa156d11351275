//go:build linux

package process

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/joeycumines/thief-autosplitter/internal/memory"
)

// procRoot is a variable so tests can point discovery at a fake tree.
var procRoot = "/proc"

// Process is an attached process. Reads use process_vm_readv, which works
// for native and Wine hosted executables alike.
type Process struct {
	pid       int
	startTime uint64

	mu     sync.Mutex
	closed bool
}

func attach(name string) (*Process, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", procRoot, err)
	}
	// comm is truncated to 15 bytes by the kernel
	comm := name
	if len(comm) > 15 {
		comm = comm[:15]
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || !entry.IsDir() {
			continue
		}
		stat, err := readStat(pid)
		if err != nil || !stat.alive() {
			continue
		}
		if !strings.EqualFold(stat.Comm, comm) {
			cmdline, err := os.ReadFile(filepath.Join(procRoot, entry.Name(), "cmdline"))
			if err != nil || !matchesExecutable(argv0(cmdline), name) {
				continue
			}
		}
		return &Process{pid: pid, startTime: stat.StartTime}, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

func readStat(pid int) (*procStat, error) {
	data, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return nil, err
	}
	return parseStat(data)
}

// IsOpen reports whether the process is still running. A recycled PID is
// detected through its start time.
func (p *Process) IsOpen() bool {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return false
	}
	stat, err := readStat(p.pid)
	if err != nil {
		return false
	}
	return stat.alive() && stat.StartTime == p.startTime
}

// ModuleBase returns the load address of module.
func (p *Process) ModuleBase(module string) (memory.Address, error) {
	f, err := os.Open(filepath.Join(procRoot, strconv.Itoa(p.pid), "maps"))
	if err != nil {
		return 0, fmt.Errorf("failed to open maps: %w", err)
	}
	defer f.Close()
	base, err := parseModuleBase(f, module)
	if err != nil {
		return 0, err
	}
	return memory.Address(base), nil
}

// ReadAt implements memory.Reader.
func (p *Process) ReadAt(addr memory.Address, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	local := []unix.Iovec{{Base: (*byte)(unsafe.Pointer(&buf[0]))}}
	local[0].SetLen(len(buf))
	remote := []unix.RemoteIovec{{Base: uintptr(addr), Len: len(buf)}}
	n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if err != nil {
		return fmt.Errorf("process_vm_readv %s: %w", addr, err)
	}
	if n != len(buf) {
		return fmt.Errorf("process_vm_readv %s: short read %d/%d: %w", addr, n, len(buf), io.ErrUnexpectedEOF)
	}
	return nil
}

// Close marks the handle unusable. There is no kernel handle to release.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
