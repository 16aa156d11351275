// Package watcher tracks the last two observed samples of a remote value.
package watcher

// Pair is the (old, current) sample pair of a watcher.
type Pair[T any] struct {
	Old     T
	Current T
}

// Changed reports whether the value moved between the two samples.
func Changed[T comparable](p Pair[T]) bool { return p.Old != p.Current }

// Became reports whether the value transitioned to v on the latest sample.
func Became[T comparable](p Pair[T], v T) bool { return p.Old != v && p.Current == v }

// Watcher holds an optional sample pair. A watcher without history has no
// pair; the first update establishes Old == Current.
type Watcher[T any] struct {
	pair  Pair[T]
	valid bool
}

// Pair returns the current pair, and false if nothing was observed yet.
func (w *Watcher[T]) Pair() (Pair[T], bool) { return w.pair, w.valid }

// Update records v as the newest sample and returns the rotated pair.
func (w *Watcher[T]) Update(v T) Pair[T] {
	if !w.valid {
		w.pair = Pair[T]{Old: v, Current: v}
		w.valid = true
		return w.pair
	}
	w.pair = Pair[T]{Old: w.pair.Current, Current: v}
	return w.pair
}

// Refresh calls read and, only on success, records the value. On failure the
// pair is left untouched.
func (w *Watcher[T]) Refresh(read func() (T, error)) (Pair[T], error) {
	v, err := read()
	if err != nil {
		return w.pair, err
	}
	return w.Update(v), nil
}

// Reset drops all history.
func (w *Watcher[T]) Reset() {
	var zero Pair[T]
	w.pair = zero
	w.valid = false
}
