//go:build windows

package process

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joeycumines/thief-autosplitter/internal/memory"
)

// stillActive is the exit code GetExitCodeProcess reports for a live process.
const stillActive = 259

// Process is an attached process opened for memory reads.
type Process struct {
	pid int

	mu     sync.Mutex
	handle windows.Handle
}

func attach(name string) (*Process, error) {
	h, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}
	defer windows.CloseHandle(h)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	err = windows.Process32First(h, &entry)
	for err == nil {
		exeName := windows.UTF16ToString(entry.ExeFile[:])
		if strings.EqualFold(exeName, name) {
			handle, err := windows.OpenProcess(windows.PROCESS_VM_READ|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, entry.ProcessID)
			if err != nil {
				return nil, fmt.Errorf("OpenProcess failed for pid %d: %w", entry.ProcessID, err)
			}
			return &Process{pid: int(entry.ProcessID), handle: handle}, nil
		}
		err = windows.Process32Next(h, &entry)
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return nil, fmt.Errorf("process walk failed: %w", err)
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// IsOpen reports whether the process has not exited.
func (p *Process) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return false
	}
	var code uint32
	if err := windows.GetExitCodeProcess(p.handle, &code); err != nil {
		return false
	}
	return code == stillActive
}

// ModuleBase returns the load address of module.
func (p *Process) ModuleBase(module string) (memory.Address, error) {
	h, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(p.pid))
	if err != nil {
		return 0, fmt.Errorf("module snapshot failed: %w", err)
	}
	defer windows.CloseHandle(h)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Module32First(h, &entry); err == nil; err = windows.Module32Next(h, &entry) {
		if strings.EqualFold(windows.UTF16ToString(entry.Module[:]), module) {
			return memory.Address(entry.ModBaseAddr), nil
		}
	}
	return 0, fmt.Errorf("%s: %w", module, ErrModuleNotFound)
}

// ReadAt implements memory.Reader.
func (p *Process) ReadAt(addr memory.Address, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()
	if handle == 0 {
		return ErrClosed
	}
	var n uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(len(buf)), &n); err != nil {
		return fmt.Errorf("ReadProcessMemory %s: %w", addr, err)
	}
	if int(n) != len(buf) {
		return fmt.Errorf("ReadProcessMemory %s: short read %d/%d", addr, n, len(buf))
	}
	return nil
}

// Close releases the process handle.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(p.handle)
	p.handle = 0
	return err
}
