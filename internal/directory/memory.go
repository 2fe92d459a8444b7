// AngelaMos | 2026
// memory.go

package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/angelamos/orderhub/internal/core"
)

// MemProvider is an in-memory Provider for tests. FailCreate lets tests
// force per-email creation failures.
type MemProvider struct {
	mu        sync.Mutex
	byEmail   map[string]string // email -> id
	byID      map[string]memAccount
	passwords map[string]string // id -> plaintext password

	FailCreate func(email string) error
}

type memAccount struct {
	id    string
	email string
}

func NewMemProvider() *MemProvider {
	return &MemProvider{
		byEmail:   make(map[string]string),
		byID:      make(map[string]memAccount),
		passwords: make(map[string]string),
	}
}

// Seed registers an account with a fixed id, bypassing failure injection.
func (p *MemProvider) Seed(id, email string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email = NormalizeEmail(email)
	p.byEmail[email] = id
	p.byID[id] = memAccount{id: id, email: email}
}

// Password returns the last password set for an account id.
func (p *MemProvider) Password(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passwords[id]
}

func (p *MemProvider) Create(
	ctx context.Context,
	email, password string,
) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email = NormalizeEmail(email)
	if p.FailCreate != nil {
		if err := p.FailCreate(email); err != nil {
			return "", err
		}
	}

	if _, ok := p.byEmail[email]; ok {
		return "", fmt.Errorf("create account: %w", core.ErrDuplicateKey)
	}

	id := uuid.New().String()
	p.byEmail[email] = id
	p.byID[id] = memAccount{id: id, email: email}
	p.passwords[id] = password
	return id, nil
}

func (p *MemProvider) GetByID(
	ctx context.Context,
	id string,
) (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	return &Account{ID: account.id, Email: account.email}, nil
}

func (p *MemProvider) LookupByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("lookup account: %w", core.ErrNotFound)
	}
	return &Account{ID: id, Email: NormalizeEmail(email)}, nil
}

func (p *MemProvider) LookupByEmails(
	ctx context.Context,
	emails []string,
) (*LookupResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := &LookupResult{Found: make(map[string]string)}
	for _, email := range emails {
		email = NormalizeEmail(email)
		if id, ok := p.byEmail[email]; ok {
			result.Found[email] = id
		} else {
			result.NotFound = append(result.NotFound, email)
		}
	}
	return result, nil
}

func (p *MemProvider) DeleteMany(
	ctx context.Context,
	ids []string,
) (*DeleteResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := &DeleteResult{Failed: make(map[string]error)}
	for _, id := range ids {
		account, ok := p.byID[id]
		if !ok {
			result.Failed[id] = core.ErrNotFound
			continue
		}
		delete(p.byID, id)
		delete(p.byEmail, account.email)
		delete(p.passwords, id)
		result.Deleted = append(result.Deleted, id)
	}
	return result, nil
}

func (p *MemProvider) UpdateEmail(ctx context.Context, id, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("update email: %w", core.ErrNotFound)
	}

	email = NormalizeEmail(email)
	if existing, ok := p.byEmail[email]; ok && existing != id {
		return fmt.Errorf("update email: %w", core.ErrDuplicateKey)
	}

	delete(p.byEmail, account.email)
	account.email = email
	p.byID[id] = account
	p.byEmail[email] = id
	return nil
}

func (p *MemProvider) UpdatePassword(
	ctx context.Context,
	id, password string,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byID[id]; !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	p.passwords[id] = password
	return nil
}

func (p *MemProvider) GetPasswordHash(
	ctx context.Context,
	email string,
) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.byEmail[NormalizeEmail(email)]
	if !ok {
		return "", "", fmt.Errorf("get password hash: %w", core.ErrNotFound)
	}

	hash, err := core.HashPassword(p.passwords[id])
	if err != nil {
		return "", "", err
	}
	return id, hash, nil
}

func (p *MemProvider) List(ctx context.Context, limit int) ([]Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	accounts := make([]Account, 0, len(p.byID))
	for _, account := range p.byID {
		accounts = append(accounts, Account{ID: account.id, Email: account.email})
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Email < accounts[j].Email
	})

	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

var _ Provider = (*MemProvider)(nil)
