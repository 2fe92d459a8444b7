// AngelaMos | 2026
// writer.go

package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/angelamos/orderhub/internal/store"
)

// DefaultChunkSize leaves headroom under the store's 500-op commit ceiling.
const DefaultChunkSize = 400

// WriteError reports a failed chunk commit. Committed counts only intents
// in fully-committed prior chunks; the failed chunk contributes nothing.
// Prior chunks are independent transactions and are not rolled back.
type WriteError struct {
	Committed int
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf(
		"batch write failed after %d committed intents: %v",
		e.Committed, e.Err,
	)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Writer commits arbitrary write-intent sequences against the document
// store in bounded-size transactional chunks.
type Writer struct {
	store     store.Store
	chunkSize int
	logger    *slog.Logger
}

func NewWriter(st store.Store, chunkSize int, logger *slog.Logger) *Writer {
	if chunkSize <= 0 || chunkSize > store.MaxBatchOps {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{store: st, chunkSize: chunkSize, logger: logger}
}

// Commit applies the intents in order, one transactional batch per chunk.
// Chunks commit strictly sequentially; chunk n+1 is not opened until chunk
// n has resolved. On success the returned count equals len(intents).
func (w *Writer) Commit(
	ctx context.Context,
	intents []store.WriteIntent,
) (int, error) {
	committed := 0

	for start := 0; start < len(intents); start += w.chunkSize {
		end := min(start+w.chunkSize, len(intents))

		b := w.store.Batch()
		for _, intent := range intents[start:end] {
			intent.Apply(b)
		}

		if err := b.Commit(ctx); err != nil {
			w.logger.Error("batch chunk commit failed",
				"committed", committed,
				"chunk_size", end-start,
				"error", err,
			)
			return committed, &WriteError{Committed: committed, Err: err}
		}

		committed = end
		if end < len(intents) {
			w.logger.Debug("intermediate batch chunk committed",
				"committed", committed,
				"total", len(intents),
			)
		}
	}

	return committed, nil
}
