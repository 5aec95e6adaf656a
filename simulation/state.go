package simulation

// Versioned keeps the three copies of component state that the convergence
// protocol needs: the working copy, the last committed copy, and the copy that
// produced the last self-consistent outputs. T must be a plain value record so
// that assignment duplicates it; states holding pointers or slices would alias
// and break the rollback guarantee.
//
// After a timestep is finalised, Current == previous == processed.
type Versioned[T any] struct {
	Current   T
	previous  T
	processed T
}

func NewVersioned[T any](initial T) Versioned[T] {
	return Versioned[T]{
		Current:   initial,
		previous:  initial,
		processed: initial,
	}
}

// Commit stores the working copy as the committed state. Called at timestep end.
func (v *Versioned[T]) Commit() {
	v.previous = v.Current
}

// Rollback discards the working copy and restores the committed state. Called
// before every iteration pass.
func (v *Versioned[T]) Rollback() {
	v.Current = v.previous
}

// MarkProcessed remembers the working copy as the state that the component's
// current outputs were computed from. Components call this at the end of every
// non-forced Simulate.
func (v *Versioned[T]) MarkProcessed() {
	v.processed = v.Current
}

// RestoreProcessed snaps the working copy back to the last processed state.
// Components call this when the engine forces convergence, so their outputs
// line up with a state that actually produced them.
func (v *Versioned[T]) RestoreProcessed() {
	v.Current = v.processed
}
