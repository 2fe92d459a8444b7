// AngelaMos | 2026
// writer_test.go

package batch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/orderhub/internal/store"
)

func intents(n int) []store.WriteIntent {
	out := make([]store.WriteIntent, 0, n)
	for i := 0; i < n; i++ {
		ref := store.Ref{Collection: "items", ID: fmt.Sprintf("item-%04d", i)}
		out = append(out, store.SetIntent(ref, store.Document{"n": i}))
	}
	return out
}

func TestCommitEmptyIsNoop(t *testing.T) {
	mem := store.NewMemStore()
	w := NewWriter(mem, 400, nil)

	n, err := w.Commit(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, mem.CommitCount())
}

func TestCommitSingleChunk(t *testing.T) {
	mem := store.NewMemStore()
	w := NewWriter(mem, 400, nil)

	n, err := w.Commit(context.Background(), intents(400))
	require.NoError(t, err)
	assert.Equal(t, 400, n)
	assert.Equal(t, 1, mem.CommitCount())
}

func TestCommitSplitsAtChunkBoundary(t *testing.T) {
	mem := store.NewMemStore()
	w := NewWriter(mem, 400, nil)

	n, err := w.Commit(context.Background(), intents(401))
	require.NoError(t, err)
	assert.Equal(t, 401, n)
	assert.Equal(t, 2, mem.CommitCount())
}

func TestCommitNineHundredIntents(t *testing.T) {
	mem := store.NewMemStore()
	w := NewWriter(mem, 400, nil)

	n, err := w.Commit(context.Background(), intents(900))
	require.NoError(t, err)
	assert.Equal(t, 900, n)
	assert.Equal(t, 3, mem.CommitCount())
	assert.Equal(t, 900, mem.WriteCount())
}

func TestCommitReportsCommittedOnMidSequenceFailure(t *testing.T) {
	mem := store.NewMemStore()
	mem.FailCommit = func(seq int) error {
		if seq == 2 {
			return errors.New("connection reset")
		}
		return nil
	}
	w := NewWriter(mem, 400, nil)

	n, err := w.Commit(context.Background(), intents(900))
	require.Error(t, err)
	assert.Equal(t, 400, n)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 400, writeErr.Committed)

	// The first chunk stays committed; the failed chunk wrote nothing.
	assert.Equal(t, 400, mem.WriteCount())
}

func TestCommitFirstChunkFailureCommitsNothing(t *testing.T) {
	mem := store.NewMemStore()
	mem.FailCommit = func(seq int) error {
		return errors.New("unavailable")
	}
	w := NewWriter(mem, 400, nil)

	n, err := w.Commit(context.Background(), intents(10))
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Zero(t, mem.WriteCount())
}

func TestNewWriterClampsInvalidChunkSize(t *testing.T) {
	mem := store.NewMemStore()

	for _, size := range []int{0, -1, store.MaxBatchOps + 1} {
		w := NewWriter(mem, size, nil)
		assert.Equal(t, DefaultChunkSize, w.chunkSize, "size %d", size)
	}
}

func TestCommitMixedSetAndDelete(t *testing.T) {
	mem := store.NewMemStore()
	ref := store.Ref{Collection: "items", ID: "victim"}
	require.NoError(t, mem.Set(context.Background(), ref, store.Document{"x": 1}))

	w := NewWriter(mem, 400, nil)
	ops := []store.WriteIntent{
		store.SetIntent(store.Ref{Collection: "items", ID: "kept"}, store.Document{"x": 2}),
		store.DeleteIntent(ref),
	}

	n, err := w.Commit(context.Background(), ops)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = mem.Get(context.Background(), ref)
	require.Error(t, err)
}
