package process

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// procStat contains the fields of /proc/[pid]/stat the package relies on.
type procStat struct {
	PID       int
	Comm      string
	State     byte
	StartTime uint64
}

// parseStat parses the contents of /proc/[pid]/stat.
func parseStat(data []byte) (*procStat, error) {
	// comm may contain spaces and parentheses, so anchor on the last ')'
	lastParen := bytes.LastIndexByte(data, ')')
	if lastParen == -1 || lastParen < 2 {
		return nil, fmt.Errorf("malformed stat: missing closing paren")
	}
	firstSpace := bytes.IndexByte(data, ' ')
	if firstSpace == -1 || firstSpace >= lastParen || data[firstSpace+1] != '(' {
		return nil, fmt.Errorf("malformed stat: expected '('")
	}

	pid, err := strconv.Atoi(string(data[:firstSpace]))
	if err != nil {
		return nil, fmt.Errorf("malformed stat: pid: %w", err)
	}
	if len(data) <= lastParen+2 {
		return nil, fmt.Errorf("stat truncated for pid %d", pid)
	}

	// 0=state ... 19=starttime
	fields := strings.Fields(string(data[lastParen+2:]))
	if len(fields) < 20 || len(fields[0]) == 0 {
		return nil, fmt.Errorf("stat too short for pid %d", pid)
	}
	startTime, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse starttime: %w", err)
	}

	return &procStat{
		PID:       pid,
		Comm:      string(data[firstSpace+2 : lastParen]),
		State:     fields[0][0],
		StartTime: startTime,
	}, nil
}

// alive reports whether a stat state letter belongs to a running process.
func (s *procStat) alive() bool { return s.State != 'Z' && s.State != 'X' }

// argv0 returns the first NUL separated element of /proc/[pid]/cmdline.
func argv0(cmdline []byte) string {
	if i := bytes.IndexByte(cmdline, 0); i >= 0 {
		cmdline = cmdline[:i]
	}
	return string(cmdline)
}

// parseModuleBase returns the lowest start address of a mapping whose file
// is module, from the contents of /proc/[pid]/maps.
func parseModuleBase(r io.Reader, module string) (uint64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	found := false
	var base uint64
	for scanner.Scan() {
		// start-end perms offset dev inode pathname
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		pathname := strings.Join(fields[5:], " ")
		if !matchesExecutable(pathname, module) {
			continue
		}
		dash := strings.IndexByte(fields[0], '-')
		if dash <= 0 {
			continue
		}
		start, err := strconv.ParseUint(fields[0][:dash], 16, 64)
		if err != nil {
			continue
		}
		if !found || start < base {
			base, found = start, true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading maps: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", module, ErrModuleNotFound)
	}
	return base, nil
}
