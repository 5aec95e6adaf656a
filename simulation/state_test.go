package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type counterState struct {
	Count int
}

func TestVersionedCommitRollback(test *testing.T) {
	v := NewVersioned(counterState{Count: 1})

	v.Current.Count = 5
	v.Rollback()
	assert.Equal(test, 1, v.Current.Count, "rollback must discard the working copy")

	v.Current.Count = 5
	v.Commit()
	v.Current.Count = 9
	v.Rollback()
	assert.Equal(test, 5, v.Current.Count, "rollback must restore the committed copy")
}

func TestVersionedProcessedSnapshot(test *testing.T) {
	v := NewVersioned(counterState{Count: 1})

	v.Current.Count = 3
	v.MarkProcessed()
	v.Current.Count = 7
	v.RestoreProcessed()
	assert.Equal(test, 3, v.Current.Count)

	// A later rollback still restores the committed state, not the processed one.
	v.Rollback()
	assert.Equal(test, 1, v.Current.Count)
}

func TestVersionedCopiesDoNotAlias(test *testing.T) {
	v := NewVersioned(counterState{Count: 1})
	v.Commit()
	v.Current.Count = 2
	assert.Equal(test, 2, v.Current.Count)
	v.Rollback()
	assert.Equal(test, 1, v.Current.Count, "mutating the working copy must not leak into the committed copy")
}
