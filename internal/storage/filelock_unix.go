//go:build !windows

package storage

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// acquireFileLock takes an exclusive, non-blocking flock on path, creating it
// if needed.
var acquireFileLock = func(path string) (*os.File, error) {
	lockFile, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lockFile.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	return lockFile, nil
}

// releaseFileLock unlocks and closes lockFile. The lock file itself is left
// in place; removing it would let a second process lock a fresh inode while
// a third still holds the old one.
func releaseFileLock(lockFile *os.File) error {
	if lockFile == nil {
		return nil
	}
	err1 := unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
	err2 := lockFile.Close()
	return errors.Join(err1, err2)
}
