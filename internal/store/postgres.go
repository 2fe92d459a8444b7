// AngelaMos | 2026
// postgres.go

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/angelamos/orderhub/internal/core"
)

// PostgresStore keeps documents in a single JSONB table keyed by
// (collection, id). Batches commit inside one database transaction.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, ref Ref) (Document, error) {
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var raw []byte
	err := s.db.GetContext(ctx, &raw, query, ref.Collection, ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get document %s/%s: %w", ref.Collection, ref.ID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s/%s: %w", ref.Collection, ref.ID, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", ref.Collection, ref.ID, err)
	}

	return doc, nil
}

func (s *PostgresStore) Set(ctx context.Context, ref Ref, doc Document) error {
	return setDocument(ctx, s.db, ref, doc)
}

func (s *PostgresStore) Delete(ctx context.Context, ref Ref) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	if _, err := s.db.ExecContext(ctx, query, ref.Collection, ref.ID); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", ref.Collection, ref.ID, err)
	}
	return nil
}

func (s *PostgresStore) List(
	ctx context.Context,
	collection string,
) (map[string]Document, error) {
	query := `SELECT id, data FROM documents WHERE collection = $1`

	rows, err := s.db.QueryxContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	docs := make(map[string]Document)
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("list collection %s: %w", collection, err)
		}

		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		docs[id] = doc
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}

	return docs, nil
}

func (s *PostgresStore) Batch() Batch {
	return &postgresBatch{db: s.db}
}

type batchOp struct {
	ref    Ref
	doc    Document
	delete bool
}

type postgresBatch struct {
	db  *sqlx.DB
	ops []batchOp
}

func (b *postgresBatch) Set(ref Ref, doc Document) {
	b.ops = append(b.ops, batchOp{ref: ref, doc: doc})
}

func (b *postgresBatch) Delete(ref Ref) {
	b.ops = append(b.ops, batchOp{ref: ref, delete: true})
}

func (b *postgresBatch) Len() int {
	return len(b.ops)
}

func (b *postgresBatch) Commit(ctx context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return fmt.Errorf(
			"batch has %d operations, maximum is %d: %w",
			len(b.ops), MaxBatchOps, core.ErrInvalidInput,
		)
	}

	return core.InTx(ctx, b.db, func(tx *sqlx.Tx) error {
		for _, op := range b.ops {
			if op.delete {
				query := `DELETE FROM documents WHERE collection = $1 AND id = $2`
				if _, err := tx.ExecContext(ctx, query, op.ref.Collection, op.ref.ID); err != nil {
					return fmt.Errorf("batch delete %s/%s: %w", op.ref.Collection, op.ref.ID, err)
				}
				continue
			}
			if err := setDocument(ctx, tx, op.ref, op.doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func setDocument(
	ctx context.Context,
	db sqlx.ExtContext,
	ref Ref,
	doc Document,
) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", ref.Collection, ref.ID, err)
	}

	query := `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	if _, err := db.ExecContext(ctx, query, ref.Collection, ref.ID, raw); err != nil {
		return fmt.Errorf("set document %s/%s: %w", ref.Collection, ref.ID, err)
	}
	return nil
}
