// Package snapshot refreshes the fixed set of watched game fields once per
// tick and exposes the result as an immutable Snapshot.
package snapshot

import (
	"fmt"

	"github.com/joeycumines/thief-autosplitter/internal/memory"
	"github.com/joeycumines/thief-autosplitter/internal/watcher"
)

// FieldError reports which field failed during a refresh.
type FieldError struct {
	Field Field
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("refresh %s: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// Snapshot is the (old, current) view of every field for one tick.
type Snapshot struct {
	MissionIndex watcher.Pair[int32]
	MenuState    watcher.Pair[int32]
	IsLoading    watcher.Pair[int32]
	LevelTime    watcher.Pair[int32]
	Difficulty   watcher.Pair[int32]
	CutsceneName watcher.Pair[string]
}

// Since returns s with every Old taken from prev, so edges are measured from
// prev's baseline. Used when ticks were sampled but not evaluated.
func (s Snapshot) Since(prev Snapshot) Snapshot {
	s.MissionIndex.Old = prev.MissionIndex.Old
	s.MenuState.Old = prev.MenuState.Old
	s.IsLoading.Old = prev.IsLoading.Old
	s.LevelTime.Old = prev.LevelTime.Old
	s.Difficulty.Old = prev.Difficulty.Old
	s.CutsceneName.Old = prev.CutsceneName.Old
	return s
}

// Set owns one watcher per field. All watchers share the base address given
// to RefreshAll and are committed together or not at all.
type Set struct {
	layout Layout

	missionIndex watcher.Watcher[int32]
	menuState    watcher.Watcher[int32]
	isLoading    watcher.Watcher[int32]
	levelTime    watcher.Watcher[int32]
	difficulty   watcher.Watcher[int32]
	cutsceneName watcher.Watcher[string]
}

// NewSet returns a Set without history.
func NewSet(layout Layout) *Set {
	return &Set{layout: layout}
}

// RefreshAll reads every field in Fields order and stops at the first
// failure, returning a *FieldError. Watchers are only updated once all reads
// succeeded, so a failed refresh leaves every pair as it was.
func (s *Set) RefreshAll(r memory.Reader, base memory.Address) (Snapshot, error) {
	var ints [CutsceneName]int32
	for _, f := range Fields[:CutsceneName] {
		v, err := memory.ReadInt32(r, base, s.layout.Path(f), s.layout.PointerSize)
		if err != nil {
			return Snapshot{}, &FieldError{Field: f, Err: err}
		}
		ints[f] = v
	}
	name, err := memory.ReadFixedString(r, base, s.layout.Path(CutsceneName), s.layout.PointerSize)
	if err != nil {
		return Snapshot{}, &FieldError{Field: CutsceneName, Err: err}
	}

	return Snapshot{
		MissionIndex: s.missionIndex.Update(ints[MissionIndex]),
		MenuState:    s.menuState.Update(ints[MenuState]),
		IsLoading:    s.isLoading.Update(ints[IsLoading]),
		LevelTime:    s.levelTime.Update(ints[LevelTime]),
		Difficulty:   s.difficulty.Update(ints[Difficulty]),
		CutsceneName: s.cutsceneName.Update(name),
	}, nil
}

// Current returns the last committed snapshot, and false before the first
// successful refresh.
func (s *Set) Current() (Snapshot, bool) {
	mission, ok := s.missionIndex.Pair()
	if !ok {
		return Snapshot{}, false
	}
	menu, _ := s.menuState.Pair()
	loading, _ := s.isLoading.Pair()
	levelTime, _ := s.levelTime.Pair()
	difficulty, _ := s.difficulty.Pair()
	cutscene, _ := s.cutsceneName.Pair()
	return Snapshot{
		MissionIndex: mission,
		MenuState:    menu,
		IsLoading:    loading,
		LevelTime:    levelTime,
		Difficulty:   difficulty,
		CutsceneName: cutscene,
	}, true
}

// Reset drops the history of every watcher.
func (s *Set) Reset() {
	s.missionIndex.Reset()
	s.menuState.Reset()
	s.isLoading.Reset()
	s.levelTime.Reset()
	s.difficulty.Reset()
	s.cutsceneName.Reset()
}
