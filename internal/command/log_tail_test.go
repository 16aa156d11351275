package command

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for the follow goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func writeLog(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func appendLog(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestLogCommand_TailLines(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "tsplit.log")
	var lines []string
	for i := 1; i <= 20; i++ {
		lines = append(lines, fmt.Sprintf(`{"level":"INFO","msg":"line-%d"}`, i))
	}
	writeLog(t, logPath, lines...)

	cmd := NewLogCommand(config.NewConfig())
	cmd.file = logPath
	cmd.lines = 5

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))
	assert.Equal(t, strings.Join(lines[15:], "\n")+"\n", stdout.String())
}

func TestLogCommand_LevelFilter(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "tsplit.log")
	writeLog(t, logPath,
		`{"level":"DEBUG","msg":"tick"}`,
		`{"level":"INFO","msg":"attached"}`,
		`{"level":"WARN","msg":"timer phase"}`,
		`plain text line`,
		`{"level":"ERROR","msg":"refresh failed"}`,
	)

	cmd := NewLogCommand(config.NewConfig())
	cmd.file = logPath
	cmd.level = "warn"

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))
	out := stdout.String()
	assert.NotContains(t, out, "tick")
	assert.NotContains(t, out, "attached")
	assert.Contains(t, out, "timer phase")
	assert.Contains(t, out, "plain text line")
	assert.Contains(t, out, "refresh failed")

	cmd.level = "loud"
	assert.Error(t, cmd.Execute(nil, &stdout, &stderr))
}

func TestLogCommand_Errors(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer

	err := NewLogCommand(config.NewConfig()).Execute([]string{"grep"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown subcommand")

	err = NewLogCommand(config.NewConfig()).Execute(nil, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log file configured")

	cmd := NewLogCommand(nil)
	cmd.file = filepath.Join(t.TempDir(), "missing.log")
	err = cmd.Execute(nil, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file not found")
}

func TestLogCommand_ConfigFallback(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "config.log")
	writeLog(t, logPath, "configured")

	cfg := config.NewConfig()
	cfg.SetGlobalOption("log.file", logPath)
	cmd := NewLogCommand(cfg)

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))
	assert.Equal(t, "configured\n", stdout.String())
}

func TestLogCommand_FollowAcrossRotation(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "follow.log")
	writeLog(t, logPath, "before")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := NewLogCommand(config.NewConfig())
	cmd.Context = ctx
	cmd.PollInterval = 10 * time.Millisecond
	cmd.file = logPath

	var stdout, stderr syncBuffer
	done := make(chan error, 1)
	go func() { done <- cmd.Execute([]string{"tail"}, &stdout, &stderr) }()

	contains := func(s string) func() bool {
		return func() bool { return strings.Contains(stdout.String(), s) }
	}
	require.NoError(t, testutil.Poll(ctx, contains("before"), 5*time.Second, 5*time.Millisecond))

	appendLog(t, logPath, "appended\n")
	require.NoError(t, testutil.Poll(ctx, contains("appended"), 5*time.Second, 5*time.Millisecond))

	// The rotating writer renames the file away and starts a new one.
	require.NoError(t, os.Rename(logPath, logPath+".1"))
	writeLog(t, logPath, "new")
	require.NoError(t, testutil.Poll(ctx, contains("new"), 5*time.Second, 5*time.Millisecond))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, strings.Count(stdout.String(), "before"))
}

func TestLastLines(t *testing.T) {
	t.Parallel()
	all := func(string) bool { return true }
	for _, tc := range []struct {
		input string
		n     int
		want  []string
	}{
		{"", 3, nil},
		{"a\nb\n", 0, nil},
		{"a\nb\n", 5, []string{"a", "b"}},
		{"a\nb\nc\n", 3, []string{"a", "b", "c"}},
		{"a\nb\nc\nd\ne\n", 2, []string{"d", "e"}},
		{"a\nb\nc\nd\ne\n", 3, []string{"c", "d", "e"}},
		{"no newline", 1, []string{"no newline"}},
	} {
		got := lastLines(strings.NewReader(tc.input), tc.n, all)
		if len(tc.want) == 0 {
			assert.Empty(t, got, "%q n=%d", tc.input, tc.n)
			continue
		}
		assert.Equal(t, tc.want, got, "%q n=%d", tc.input, tc.n)
	}
}

func TestRecordLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.LevelDebug, recordLevel(`{"level":"DEBUG"}`))
	assert.Equal(t, slog.LevelWarn, recordLevel(`{"level":"WARN","msg":"x"}`))
	assert.Greater(t, recordLevel("not json"), slog.LevelError)
	assert.Greater(t, recordLevel(`{"msg":"no level"}`), slog.LevelError)
}

func TestResolveLogPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", resolveLogPath(config.NewConfig()))
	cfg := config.NewConfig()
	cfg.SetGlobalOption("log.file", "/var/log/tsplit.log")
	assert.Equal(t, "/var/log/tsplit.log", resolveLogPath(cfg))
}
