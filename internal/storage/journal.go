// Package storage persists finished speedrun attempts as one JSON file per
// run in a journal directory owned by a single tsplit process at a time.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	runFileSuffix = ".run.json"
	lockFileName  = "journal.lock"
)

// Split is one recorded split, timed from the start of the run.
type Split struct {
	Index    int           `json:"index"`
	RealTime time.Duration `json:"realTime"`
	GameTime time.Duration `json:"gameTime"`
}

// Run is a finished attempt. Completed is false for runs that were reset
// before the timer ended.
type Run struct {
	ID        string        `json:"id"`
	Variant   string        `json:"variant,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
	Completed bool          `json:"completed"`
	RealTime  time.Duration `json:"realTime"`
	GameTime  time.Duration `json:"gameTime"`
	Splits    []Split       `json:"splits"`
}

// DefaultDir returns ~/.thief-autosplitter/runs.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".thief-autosplitter", "runs"), nil
}

// Journal is an open, locked journal directory.
type Journal struct {
	dir string
	// MaxRuns, when positive, is the number of newest runs kept after each
	// Save.
	MaxRuns int

	mu       sync.Mutex
	lockFile *os.File
}

// OpenJournal creates dir if needed and takes its lock. It fails with an
// error wrapping ErrWouldBlock when another process holds the journal.
func OpenJournal(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	lockFile, err := acquireFileLock(filepath.Join(dir, lockFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire journal lock: %w", err)
	}
	return &Journal{dir: dir, lockFile: lockFile}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string { return j.dir }

// RunFilePath returns the file a run with id is stored in.
func RunFilePath(dir, id string) string {
	return filepath.Join(dir, id+runFileSuffix)
}

// Save writes run atomically, then applies MaxRuns.
func (j *Journal) Save(run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	if strings.ContainsAny(run.ID, `/\`) {
		return fmt.Errorf("invalid run ID %q", run.ID)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lockFile == nil {
		return errors.New("journal is closed")
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := AtomicWriteFile(RunFilePath(j.dir, run.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write run: %w", err)
	}
	if j.MaxRuns > 0 {
		if _, err := prune(j.dir, j.MaxRuns); err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
	}
	return nil
}

// Close releases the journal lock. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lockFile == nil {
		return nil
	}
	err := releaseFileLock(j.lockFile)
	j.lockFile = nil
	return err
}

// LoadRun reads a single run by ID.
func LoadRun(dir, id string) (*Run, error) {
	data, err := os.ReadFile(RunFilePath(dir, id))
	if err != nil {
		return nil, err
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns reads every run in dir, oldest first. It does not need the lock,
// since run files are only ever replaced atomically. A missing directory is
// an empty journal; unreadable files are skipped.
func ListRuns(dir string) ([]*Run, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Run{}, nil
		}
		return nil, err
	}

	runs := make([]*Run, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, runFileSuffix) {
			continue
		}
		run, err := LoadRun(dir, strings.TrimSuffix(name, runFileSuffix))
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	sort.SliceStable(runs, func(i, k int) bool {
		return runs[i].StartedAt.Before(runs[k].StartedAt)
	})
	return runs, nil
}

// prune removes all but the newest keep runs and returns the removed IDs.
func prune(dir string, keep int) ([]string, error) {
	runs, err := ListRuns(dir)
	if err != nil {
		return nil, err
	}
	if len(runs) <= keep {
		return nil, nil
	}
	var removed []string
	var errs []error
	for _, run := range runs[:len(runs)-keep] {
		if err := os.Remove(RunFilePath(dir, run.ID)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, run.ID)
	}
	return removed, errors.Join(errs...)
}

// BestRun returns the completed run with the lowest game time for variant,
// or nil. An empty variant matches any run.
func BestRun(runs []*Run, variant string) *Run {
	var best *Run
	for _, run := range runs {
		if !run.Completed || (variant != "" && run.Variant != variant) {
			continue
		}
		if best == nil || run.GameTime < best.GameTime {
			best = run
		}
	}
	return best
}
