package snapshot

import (
	"fmt"

	"github.com/joeycumines/thief-autosplitter/internal/memory"
)

// Field identifies one watched memory field.
type Field int

const (
	MissionIndex Field = iota
	MenuState
	IsLoading
	LevelTime
	Difficulty
	CutsceneName

	numFields
)

// Fields lists every field in refresh order.
var Fields = [numFields]Field{MissionIndex, MenuState, IsLoading, LevelTime, Difficulty, CutsceneName}

var fieldNames = [numFields]string{
	MissionIndex: "mission_index",
	MenuState:    "menu_state",
	IsLoading:    "is_loading",
	LevelTime:    "level_time",
	Difficulty:   "difficulty",
	CutsceneName: "cutscene_name",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Layout is the static memory layout of one game build. Paths are relative
// to the base address of Module.
type Layout struct {
	Module      string
	PointerSize int
	Paths       [numFields]memory.Path
}

// DefaultModule is the executable of the retail game.
const DefaultModule = "THIEF.EXE"

// DefaultLayout returns the layout of the retail THIEF.EXE build.
func DefaultLayout() Layout {
	var l Layout
	l.Module = DefaultModule
	l.PointerSize = 4
	l.Paths[MissionIndex] = memory.Path{0x3D87F8}
	l.Paths[MenuState] = memory.Path{0x3D8808}
	l.Paths[IsLoading] = memory.Path{0x3D89B0}
	l.Paths[LevelTime] = memory.Path{0x4C6234}
	l.Paths[Difficulty] = memory.Path{0x3D880C}
	l.Paths[CutsceneName] = memory.Path{0x4C1A60}
	return l
}

// Path returns the configured path for f.
func (l Layout) Path(f Field) memory.Path { return l.Paths[f] }

// Validate reports the first problem that would make every refresh fail.
func (l Layout) Validate() error {
	if l.Module == "" {
		return fmt.Errorf("layout: empty module name")
	}
	if l.PointerSize != 4 && l.PointerSize != 8 {
		return fmt.Errorf("layout: pointer size must be 4 or 8, got %d", l.PointerSize)
	}
	for _, f := range Fields {
		if len(l.Paths[f]) == 0 {
			return fmt.Errorf("layout: %s: %w", f, memory.ErrEmptyPath)
		}
	}
	return nil
}
