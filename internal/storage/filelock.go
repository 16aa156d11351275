package storage

import "errors"

// ErrWouldBlock is returned when the journal lock is held by another process.
var ErrWouldBlock = errors.New("file lock would block")
