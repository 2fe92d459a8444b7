// AngelaMos | 2026
// repository.go

package tenant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelamos/orderhub/internal/store"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Tenant, error)
	Set(ctx context.Context, tenant *Tenant) error
}

type repository struct {
	store store.Store
}

func NewRepository(st store.Store) Repository {
	return &repository{store: st}
}

func (r *repository) Get(ctx context.Context, id string) (*Tenant, error) {
	doc, err := r.store.Get(ctx, store.Ref{Collection: Collection, ID: id})
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	tenant, err := fromDocument(id, doc)
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return tenant, nil
}

func (r *repository) Set(ctx context.Context, tenant *Tenant) error {
	doc, err := toDocument(tenant)
	if err != nil {
		return fmt.Errorf("set tenant: %w", err)
	}

	ref := store.Ref{Collection: Collection, ID: tenant.ID}
	if err := r.store.Set(ctx, ref, doc); err != nil {
		return fmt.Errorf("set tenant: %w", err)
	}
	return nil
}

func fromDocument(id string, doc store.Document) (*Tenant, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode tenant document: %w", err)
	}

	tenant := &Tenant{ID: id}
	if err := json.Unmarshal(raw, tenant); err != nil {
		return nil, fmt.Errorf("decode tenant document: %w", err)
	}
	return tenant, nil
}

func toDocument(tenant *Tenant) (store.Document, error) {
	raw, err := json.Marshal(tenant)
	if err != nil {
		return nil, fmt.Errorf("encode tenant: %w", err)
	}

	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode tenant: %w", err)
	}
	return doc, nil
}
