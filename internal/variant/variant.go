// Package variant holds the known mission orders and detects when a run is
// on the extended (Gold) edition.
package variant

import "github.com/joeycumines/thief-autosplitter/internal/snapshot"

// GoldMarker is the first mission index that only exists in the extended
// edition.
const GoldMarker int32 = 15

// Sequence is the expected mission-index order of a run.
type Sequence []int32

var (
	standard = Sequence{1, 2, 3, 4, 5, 6, 7, 9, 10, 11, 12, 13, 14}
	extended = Sequence{1, 2, 3, 4, 5, 15, 6, 7, 16, 9, 17, 10, 11, 12, 13, 14}
)

// Standard returns the base game order.
func Standard() Sequence { return append(Sequence(nil), standard...) }

// Extended returns the Gold edition order.
func Extended() Sequence { return append(Sequence(nil), extended...) }

// At returns the mission index at i, and false when i is out of range.
func (s Sequence) At(i int) (int32, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i], true
}

// Name returns "gold" for the extended order and "standard" otherwise.
func (s Sequence) Name() string {
	if len(s) == len(extended) {
		return "gold"
	}
	return "standard"
}

// MaybeUpgrade switches to the extended order the first time the Gold marker
// mission is observed. It is a no-op once extended is true.
func MaybeUpgrade(snap snapshot.Snapshot, current Sequence, isExtended bool) (Sequence, bool) {
	if isExtended || snap.MissionIndex.Current != GoldMarker {
		return current, false
	}
	return Extended(), true
}
