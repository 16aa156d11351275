package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rivo/uniseg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/thief-autosplitter/internal/autosplit"
	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/snapshot"
	"github.com/joeycumines/thief-autosplitter/internal/testutil"
)

func TestLayoutCommand_PrintsEffectiveLayout(t *testing.T) {
	t.Parallel()
	cfg := config.NewConfig()
	cfg.SetGlobalOption("offsets.difficulty", "0x100,0x8")

	var stdout, stderr bytes.Buffer
	require.NoError(t, NewLayoutCommand(cfg).Execute(nil, &stdout, &stderr))
	out := stdout.String()
	assert.Contains(t, out, "module: THIEF.EXE")
	assert.Contains(t, out, "pointer size: 4")
	assert.Regexp(t, `menu_state\s+0x3D8808`, out)
	assert.Regexp(t, `difficulty\s+0x100,0x8`, out)
	assert.NotContains(t, out, "VALUE")
}

func TestLayoutCommand_Probe(t *testing.T) {
	t.Parallel()
	proc := testutil.NewFakeProcess(7, snapshot.DefaultModule, gameBase)
	putState(proc, gameState{mission: 4, menu: 12, difficulty: 2, cutscene: "cs04_success"})

	cmd := NewLayoutCommand(config.NewConfig())
	cmd.Attacher = autosplit.AttacherFunc(func(string) (autosplit.Process, error) { return proc, nil })
	cmd.probe = true

	var stdout, stderr bytes.Buffer
	require.NoError(t, cmd.Execute(nil, &stdout, &stderr))
	out := stdout.String()
	assert.Contains(t, out, "VALUE")
	assert.Regexp(t, `mission_index\s+0x3D87F8\s+4`, out)
	assert.Regexp(t, `difficulty\s+0x3D880C\s+2`, out)
	assert.Contains(t, out, `"cs04_success"`)
	assert.True(t, proc.Closed())
}

func TestLayoutCommand_ProbeErrors(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer

	cmd := NewLayoutCommand(config.NewConfig())
	cmd.probe = true
	cmd.Attacher = autosplit.AttacherFunc(func(string) (autosplit.Process, error) {
		return nil, errors.New("not running")
	})
	err := cmd.Execute(nil, &stdout, &stderr)
	var attachErr *autosplit.AttachError
	require.ErrorAs(t, err, &attachErr)
	assert.Equal(t, "THIEF.EXE", attachErr.Module)

	// a process with nothing mapped fails on the first field
	empty := testutil.NewFakeProcess(8, snapshot.DefaultModule, gameBase)
	cmd.Attacher = autosplit.AttacherFunc(func(string) (autosplit.Process, error) { return empty, nil })
	err = cmd.Execute(nil, &stdout, &stderr)
	var fieldErr *snapshot.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, snapshot.MissionIndex, fieldErr.Field)
	assert.True(t, empty.Closed())

	assert.Error(t, NewLayoutCommand(config.NewConfig()).Execute([]string{"x"}, &stdout, &stderr))
	assert.True(t, strings.Contains(stderr.String(), "unexpected arguments"))
}

func TestClip(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "cs04_success", clip("cs04_success", 48))
	assert.Equal(t, "abc…", clip("abcdefgh", 4))
	// wide runes count two cells and are never split
	assert.Equal(t, "日本…", clip("日本語テキスト", 6))
	// combining marks stay with their base
	assert.Equal(t, "e\u0301e\u0301…", clip("e\u0301e\u0301e\u0301e\u0301", 3))
	assert.Equal(t, maxValueWidth, uniseg.StringWidth(clip(strings.Repeat("x", 255), maxValueWidth)))
}
