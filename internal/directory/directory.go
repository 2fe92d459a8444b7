// AngelaMos | 2026
// directory.go

package directory

import (
	"context"
)

// LookupBatchSize is the provider's ceiling on emails per lookup call.
const LookupBatchSize = 100

type Account struct {
	ID    string `db:"id"`
	Email string `db:"email"`
}

// LookupResult partitions a batch email lookup.
type LookupResult struct {
	Found    map[string]string // email -> account id
	NotFound []string
}

// DeleteResult reports a batch delete; failures are per-id.
type DeleteResult struct {
	Deleted []string
	Failed  map[string]error
}

// Provider is the identity provider collaborator. Create hashes the
// password before storage; LookupByEmails must accept any number of
// emails and chunk internally at LookupBatchSize.
type Provider interface {
	Create(ctx context.Context, email, password string) (string, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	LookupByEmail(ctx context.Context, email string) (*Account, error)
	LookupByEmails(ctx context.Context, emails []string) (*LookupResult, error)
	DeleteMany(ctx context.Context, ids []string) (*DeleteResult, error)
	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, id, password string) error
	GetPasswordHash(ctx context.Context, email string) (id, hash string, err error)
	List(ctx context.Context, limit int) ([]Account, error)
}

func chunkStrings(items []string, size int) [][]string {
	if size <= 0 {
		size = LookupBatchSize
	}
	var chunks [][]string
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
