package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// RotatingFileWriter is an io.WriteCloser with size-based rotation. When a
// write would push the file past the size limit, the file is shifted to
// <path>.1, older backups move up by one, and at most maxFiles backups are
// kept. Safe for concurrent use.
type RotatingFileWriter struct {
	mu           sync.Mutex
	path         string
	maxSizeBytes int64
	maxFiles     int
	currentSize  int64
	file         *os.File
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)

// NewRotatingFileWriter opens path for appending. maxSizeMB is clamped to at
// least 1 and maxFiles to at least 0 (no backups, the file is truncated on
// rotation).
func NewRotatingFileWriter(path string, maxSizeMB, maxFiles int) (*RotatingFileWriter, error) {
	return newRotatingFileWriter(path, int64(max(maxSizeMB, 1))*1024*1024, max(maxFiles, 0))
}

func newRotatingFileWriter(path string, maxSizeBytes int64, maxFiles int) (*RotatingFileWriter, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("logging: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("logging: stat %s: %w", path, err)
	}
	return &RotatingFileWriter{
		path:         path,
		maxSizeBytes: maxSizeBytes,
		maxFiles:     maxFiles,
		currentSize:  info.Size(),
		file:         f,
	}, nil
}

// Write never splits p across files. A write larger than the limit goes to
// a fresh file on its own.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.currentSize > 0 && w.currentSize+int64(len(p)) > w.maxSizeBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("logging: rotate: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate must be called with w.mu held.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	backups := w.listBackups()
	// highest first, so nothing is overwritten
	sort.Sort(sort.Reverse(sort.IntSlice(backups)))
	for _, n := range backups {
		if n+1 > w.maxFiles {
			_ = os.Remove(w.backupPath(n))
		} else {
			_ = os.Rename(w.backupPath(n), w.backupPath(n+1))
		}
	}
	if w.maxFiles > 0 {
		_ = os.Rename(w.path, w.backupPath(1))
	} else {
		_ = os.Remove(w.path)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.currentSize = 0
	return nil
}

func (w *RotatingFileWriter) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

func (w *RotatingFileWriter) listBackups() []int {
	prefix := filepath.Base(w.path) + "."
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	var nums []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(name[len(prefix):])
		if err != nil || n < 1 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
