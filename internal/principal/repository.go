// AngelaMos | 2026
// repository.go

package principal

import (
	"context"
	"fmt"

	"github.com/angelamos/orderhub/internal/store"
)

type Repository interface {
	GetProfile(ctx context.Context, tenantID, id string) (store.Document, error)
	ListProfiles(ctx context.Context, tenantID string) (map[string]store.Document, error)
	GetMembership(ctx context.Context, id string) (*Membership, error)
}

type repository struct {
	store store.Store
}

func NewRepository(st store.Store) Repository {
	return &repository{store: st}
}

func (r *repository) GetProfile(
	ctx context.Context,
	tenantID, id string,
) (store.Document, error) {
	ref := store.Ref{Collection: ProfileCollection(tenantID), ID: id}
	doc, err := r.store.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return doc, nil
}

func (r *repository) ListProfiles(
	ctx context.Context,
	tenantID string,
) (map[string]store.Document, error) {
	docs, err := r.store.List(ctx, ProfileCollection(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return docs, nil
}

func (r *repository) GetMembership(
	ctx context.Context,
	id string,
) (*Membership, error) {
	ref := store.Ref{Collection: MembershipCollection, ID: id}
	doc, err := r.store.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}

	membership := &Membership{}
	if raw, ok := doc["tenants"].([]any); ok {
		for _, entry := range raw {
			if tenantID, ok := entry.(string); ok {
				membership.Tenants = append(membership.Tenants, tenantID)
			}
		}
	}
	return membership, nil
}

// ProfileIntent queues a full overwrite of a principal's profile document.
func ProfileIntent(tenantID, id string, doc store.Document) store.WriteIntent {
	return store.SetIntent(
		store.Ref{Collection: ProfileCollection(tenantID), ID: id}, doc)
}

func DeleteProfileIntent(tenantID, id string) store.WriteIntent {
	return store.DeleteIntent(
		store.Ref{Collection: ProfileCollection(tenantID), ID: id})
}

func MembershipIntent(id string, tenants []string) store.WriteIntent {
	entries := make([]any, 0, len(tenants))
	for _, t := range tenants {
		entries = append(entries, t)
	}
	return store.SetIntent(
		store.Ref{Collection: MembershipCollection, ID: id},
		store.Document{"tenants": entries},
	)
}

func DeleteMembershipIntent(id string) store.WriteIntent {
	return store.DeleteIntent(
		store.Ref{Collection: MembershipCollection, ID: id})
}
