// Package memory resolves pointer paths and decodes fixed-size values read
// from a remote process address space.
package memory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidPointer is returned when an intermediate pointer in a path
	// dereferences to zero.
	ErrInvalidPointer = errors.New("invalid pointer read")

	// ErrInvalidUTF8 is returned when a text field does not decode as UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8 in text field")

	// ErrEmptyPath is returned when a pointer path has no offsets.
	ErrEmptyPath = errors.New("empty pointer path")
)

// MaxTextLen is the size of the fixed buffer used for text fields.
const MaxTextLen = 255

// Address is a virtual address in the target process.
type Address uint64

// Add returns a+off, wrapping like the target's pointer arithmetic would.
func (a Address) Add(off uint64) Address { return a + Address(off) }

func (a Address) String() string { return "0x" + strconv.FormatUint(uint64(a), 16) }

// Reader is the raw memory read primitive. Implementations must fill buf
// completely or return an error.
type Reader interface {
	ReadAt(addr Address, buf []byte) error
}

// Path is a pointer-chase route: every offset except the last is added to the
// current address and dereferenced; the last offset locates the value.
type Path []uint64

// ParsePath parses a comma separated offset list, e.g. "0x3D8808" or
// "0x5C, 0x10". Offsets accept any base understood by strconv.ParseUint.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyPath
	}
	parts := strings.Split(s, ",")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		off, err := strconv.ParseUint(part, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q: %w", part, err)
		}
		path = append(path, off)
	}
	return path, nil
}

// String formats the path in the form accepted by ParsePath.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, off := range p {
		parts[i] = "0x" + strings.ToUpper(strconv.FormatUint(off, 16))
	}
	return strings.Join(parts, ",")
}

// Resolve follows the path from base and returns the address of the value.
func Resolve(r Reader, base Address, path Path, ptrSize int) (Address, error) {
	if len(path) == 0 {
		return 0, ErrEmptyPath
	}
	if ptrSize != 4 && ptrSize != 8 {
		return 0, fmt.Errorf("unsupported pointer size %d", ptrSize)
	}
	addr := base
	var ptr [8]byte
	for _, off := range path[:len(path)-1] {
		at := addr.Add(off)
		if err := r.ReadAt(at, ptr[:ptrSize]); err != nil {
			return 0, fmt.Errorf("dereference %s: %w", at, err)
		}
		if ptrSize == 4 {
			addr = Address(binary.LittleEndian.Uint32(ptr[:4]))
		} else {
			addr = Address(binary.LittleEndian.Uint64(ptr[:8]))
		}
		if addr == 0 {
			return 0, fmt.Errorf("dereference %s: %w", at, ErrInvalidPointer)
		}
	}
	return addr.Add(path[len(path)-1]), nil
}

// ReadPointerPath resolves path from base and fills buf at the final address.
func ReadPointerPath(r Reader, base Address, path Path, ptrSize int, buf []byte) error {
	addr, err := Resolve(r, base, path, ptrSize)
	if err != nil {
		return err
	}
	if err := r.ReadAt(addr, buf); err != nil {
		return fmt.Errorf("read %d bytes at %s: %w", len(buf), addr, err)
	}
	return nil
}

// ReadInt32 reads a little-endian int32 through path.
func ReadInt32(r Reader, base Address, path Path, ptrSize int) (int32, error) {
	var b [4]byte
	if err := ReadPointerPath(r, base, path, ptrSize, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b[:])), nil
}

// ReadFixedString reads a MaxTextLen byte buffer through path and decodes it
// as a NUL terminated UTF-8 string.
func ReadFixedString(r Reader, base Address, path Path, ptrSize int) (string, error) {
	var b [MaxTextLen]byte
	if err := ReadPointerPath(r, base, path, ptrSize, b[:]); err != nil {
		return "", err
	}
	return DecodeText(b[:])
}

// DecodeText cuts buf at the first NUL byte and validates the remainder.
func DecodeText(buf []byte) (string, error) {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}
