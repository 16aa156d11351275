package testutil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joeycumines/thief-autosplitter/internal/memory"
)

// ErrUnmapped is returned by FakeMemory for reads outside any written region.
var ErrUnmapped = errors.New("address not mapped")

// FakeMemory is a sparse in-memory address space for exercising pointer-path
// reads without a live process. The zero value is ready to use.
type FakeMemory struct {
	mu      sync.Mutex
	bytes   map[memory.Address]byte
	failing map[memory.Address]error
	reads   int
}

// Write stores b at addr.
func (m *FakeMemory) Write(addr memory.Address, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bytes == nil {
		m.bytes = make(map[memory.Address]byte)
	}
	for i, v := range b {
		m.bytes[addr+memory.Address(i)] = v
	}
}

// PutInt32 stores a little-endian int32 at addr.
func (m *FakeMemory) PutInt32(addr memory.Address, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	m.Write(addr, b[:])
}

// PutPointer32 stores a 4 byte pointer at addr.
func (m *FakeMemory) PutPointer32(addr, target memory.Address) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(target))
	m.Write(addr, b[:])
}

// PutText stores s in a zero padded memory.MaxTextLen buffer at addr.
func (m *FakeMemory) PutText(addr memory.Address, s string) {
	b := make([]byte, memory.MaxTextLen)
	copy(b, s)
	m.Write(addr, b)
}

// FailAt makes every read touching addr return err. A nil err clears it.
func (m *FakeMemory) FailAt(addr memory.Address, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing == nil {
		m.failing = make(map[memory.Address]error)
	}
	if err == nil {
		delete(m.failing, addr)
		return
	}
	m.failing[addr] = err
}

// Reads returns the number of ReadAt calls served.
func (m *FakeMemory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// ReadAt implements memory.Reader.
func (m *FakeMemory) ReadAt(addr memory.Address, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	for i := range buf {
		at := addr + memory.Address(i)
		if err, ok := m.failing[at]; ok {
			return err
		}
		v, ok := m.bytes[at]
		if !ok {
			return fmt.Errorf("read %s: %w", at, ErrUnmapped)
		}
		buf[i] = v
	}
	return nil
}

// FakeProcess is a scripted attached process backed by FakeMemory.
type FakeProcess struct {
	FakeMemory
	Pid     int
	Bases   map[string]memory.Address
	BaseErr error

	mu     sync.Mutex
	closed bool
	exited bool
}

// NewFakeProcess returns an open process with one module mapped at base.
func NewFakeProcess(pid int, module string, base memory.Address) *FakeProcess {
	return &FakeProcess{
		Pid:   pid,
		Bases: map[string]memory.Address{strings.ToLower(module): base},
	}
}

// Exit marks the process as no longer running.
func (p *FakeProcess) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exited = true
}

// Closed reports whether Close was called.
func (p *FakeProcess) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *FakeProcess) PID() int { return p.Pid }

func (p *FakeProcess) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited && !p.closed
}

func (p *FakeProcess) ModuleBase(name string) (memory.Address, error) {
	if p.BaseErr != nil {
		return 0, p.BaseErr
	}
	base, ok := p.Bases[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("module %q not loaded", name)
	}
	return base, nil
}

func (p *FakeProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
