// AngelaMos | 2026
// memory.go

package store

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/angelamos/orderhub/internal/core"
)

// MemStore is an in-memory Store used by tests and local development.
// Batches apply atomically under the store lock; FailCommit lets tests
// force a failure on the nth batch commit (1-based).
type MemStore struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	commitSeq   int
	writeCount  int

	FailCommit func(commitSeq int) error
}

func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string]map[string]Document)}
}

func (s *MemStore) Get(ctx context.Context, ref Ref) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[ref.Collection][ref.ID]
	if !ok {
		return nil, fmt.Errorf("get document %s/%s: %w", ref.Collection, ref.ID, core.ErrNotFound)
	}
	return maps.Clone(doc), nil
}

func (s *MemStore) Set(ctx context.Context, ref Ref, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(ref, doc)
	return nil
}

func (s *MemStore) Delete(ctx context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[ref.Collection], ref.ID)
	s.writeCount++
	return nil
}

func (s *MemStore) List(
	ctx context.Context,
	collection string,
) (map[string]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make(map[string]Document, len(s.collections[collection]))
	for id, doc := range s.collections[collection] {
		docs[id] = maps.Clone(doc)
	}
	return docs, nil
}

func (s *MemStore) Batch() Batch {
	return &memBatch{store: s}
}

// WriteCount reports how many mutations have been applied, batched or not.
func (s *MemStore) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCount
}

// CommitCount reports how many batch commits were attempted.
func (s *MemStore) CommitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitSeq
}

func (s *MemStore) setLocked(ref Ref, doc Document) {
	collection, ok := s.collections[ref.Collection]
	if !ok {
		collection = make(map[string]Document)
		s.collections[ref.Collection] = collection
	}
	collection[ref.ID] = maps.Clone(doc)
	s.writeCount++
}

type memBatch struct {
	store *MemStore
	ops   []batchOp
}

func (b *memBatch) Set(ref Ref, doc Document) {
	b.ops = append(b.ops, batchOp{ref: ref, doc: maps.Clone(doc)})
}

func (b *memBatch) Delete(ref Ref) {
	b.ops = append(b.ops, batchOp{ref: ref, delete: true})
}

func (b *memBatch) Len() int {
	return len(b.ops)
}

func (b *memBatch) Commit(ctx context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return fmt.Errorf(
			"batch has %d operations, maximum is %d: %w",
			len(b.ops), MaxBatchOps, core.ErrInvalidInput,
		)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	b.store.commitSeq++
	if b.store.FailCommit != nil {
		if err := b.store.FailCommit(b.store.commitSeq); err != nil {
			return err
		}
	}

	for _, op := range b.ops {
		if op.delete {
			delete(b.store.collections[op.ref.Collection], op.ref.ID)
			b.store.writeCount++
			continue
		}
		b.store.setLocked(op.ref, op.doc)
	}
	return nil
}
