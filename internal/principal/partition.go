// AngelaMos | 2026
// partition.go

package principal

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/policy"
)

// Partition is a stable split of a target list: every input id lands in
// exactly one of the two lists.
type Partition struct {
	Editable   []string
	Uneditable []string
}

// Partitioner computes which targets an actor may affect for a requested
// action set, enforcing tenant isolation.
type Partitioner struct {
	repo   Repository
	matrix policy.Matrix
}

func NewPartitioner(repo Repository, matrix policy.Matrix) *Partitioner {
	return &Partitioner{repo: repo, matrix: matrix}
}

// Partition resolves each target's tenant membership and stored tier, then
// splits targets into editable and uneditable for the given actions. A
// target outside the tenant aborts the whole call with core.ErrCrossTenant:
// that is a mis-scoped or malicious caller, not a skippable item.
//
// The actor may always edit themself but never self-delete, so the actor's
// own id is editable iff DELETE is not among the requested actions.
func (p *Partitioner) Partition(
	ctx context.Context,
	actor Actor,
	tenantID string,
	targets []string,
	actions ...policy.Action,
) (*Partition, error) {
	partition := &Partition{}
	if len(targets) == 0 {
		// No membership or tier reads for an empty target set.
		return partition, nil
	}

	for _, id := range targets {
		membership, err := p.repo.GetMembership(ctx, id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, fmt.Errorf("target %s: %w", id, core.ErrCrossTenant)
			}
			return nil, fmt.Errorf("resolve membership for %s: %w", id, err)
		}
		if !membership.BelongsTo(tenantID) {
			return nil, fmt.Errorf("target %s: %w", id, core.ErrCrossTenant)
		}

		if id == actor.ID {
			if containsAction(actions, policy.ActionDelete) {
				partition.Uneditable = append(partition.Uneditable, id)
			} else {
				partition.Editable = append(partition.Editable, id)
			}
			continue
		}

		doc, err := p.repo.GetProfile(ctx, tenantID, id)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("resolve tier for %s: %w", id, err)
		}
		targetTier := policy.TierUser
		if doc != nil {
			targetTier = tierFromDocument(doc)
		}

		if p.allowsAll(actor.Tier, actions, targetTier) {
			partition.Editable = append(partition.Editable, id)
		} else {
			partition.Uneditable = append(partition.Uneditable, id)
		}
	}

	return partition, nil
}

func (p *Partitioner) allowsAll(
	actor policy.Tier,
	actions []policy.Action,
	target policy.Tier,
) bool {
	for _, action := range actions {
		if !p.matrix.Allows(actor, action, target) {
			return false
		}
	}
	return true
}

func containsAction(actions []policy.Action, want policy.Action) bool {
	for _, action := range actions {
		if action == want {
			return true
		}
	}
	return false
}
