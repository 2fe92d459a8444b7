// AngelaMos | 2026
// store.go

package store

import (
	"context"
)

// MaxBatchOps is the document store's hard ceiling on queued operations
// per transactional commit. Callers wanting headroom should chunk below it.
const MaxBatchOps = 500

// Ref addresses a single document. Collection is a slash path, e.g.
// "tenants/lincoln-high/principals".
type Ref struct {
	Collection string
	ID         string
}

type Document map[string]any

// Store is the document store collaborator. Implementations return
// core.ErrNotFound from Get when the document does not exist.
type Store interface {
	Get(ctx context.Context, ref Ref) (Document, error)
	Set(ctx context.Context, ref Ref, doc Document) error
	Delete(ctx context.Context, ref Ref) error
	List(ctx context.Context, collection string) (map[string]Document, error)
	Batch() Batch
}

// Batch queues writes for a single atomic commit. A batch is single-use:
// after Commit it must not be reused.
type Batch interface {
	Set(ref Ref, doc Document)
	Delete(ref Ref)
	Len() int
	Commit(ctx context.Context) error
}

// WriteIntent is one queued mutation. A nil Doc deletes the document.
type WriteIntent struct {
	Ref Ref
	Doc Document
}

func SetIntent(ref Ref, doc Document) WriteIntent {
	return WriteIntent{Ref: ref, Doc: doc}
}

func DeleteIntent(ref Ref) WriteIntent {
	return WriteIntent{Ref: ref}
}

func (i WriteIntent) Apply(b Batch) {
	if i.Doc == nil {
		b.Delete(i.Ref)
		return
	}
	b.Set(i.Ref, i.Doc)
}
