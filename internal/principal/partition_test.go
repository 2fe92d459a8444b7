// AngelaMos | 2026
// partition_test.go

package principal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/policy"
	"github.com/angelamos/orderhub/internal/store"
)

const testTenant = "lincoln-high"

func seedPrincipal(
	t *testing.T,
	mem *store.MemStore,
	id string,
	tier policy.Tier,
	tenants ...string,
) {
	t.Helper()
	ctx := context.Background()

	entries := make([]any, 0, len(tenants))
	for _, tenantID := range tenants {
		entries = append(entries, tenantID)
	}
	require.NoError(t, mem.Set(ctx,
		store.Ref{Collection: MembershipCollection, ID: id},
		store.Document{"tenants": entries},
	))

	for _, tenantID := range tenants {
		require.NoError(t, mem.Set(ctx,
			store.Ref{Collection: ProfileCollection(tenantID), ID: id},
			store.Document{tierField: tier.String()},
		))
	}
}

func TestPartitionIsStable(t *testing.T) {
	mem := store.NewMemStore()
	seedPrincipal(t, mem, "admin-1", policy.TierAdmin, testTenant)
	seedPrincipal(t, mem, "user-1", policy.TierUser, testTenant)
	seedPrincipal(t, mem, "owner-1", policy.TierOwner, testTenant)
	seedPrincipal(t, mem, "user-2", policy.TierUser, testTenant)

	p := NewPartitioner(NewRepository(mem), policy.Default())
	actor := Actor{ID: "admin-1", Tier: policy.TierAdmin, TenantID: testTenant}

	got, err := p.Partition(context.Background(), actor, testTenant,
		[]string{"user-1", "owner-1", "user-2"}, policy.ActionEdit)
	require.NoError(t, err)

	assert.Equal(t, []string{"user-1", "user-2"}, got.Editable)
	assert.Equal(t, []string{"owner-1"}, got.Uneditable)
}

func TestPartitionSelfEditableButNotDeletable(t *testing.T) {
	mem := store.NewMemStore()
	seedPrincipal(t, mem, "admin-1", policy.TierAdmin, testTenant)

	p := NewPartitioner(NewRepository(mem), policy.Default())
	actor := Actor{ID: "admin-1", Tier: policy.TierAdmin, TenantID: testTenant}
	ctx := context.Background()

	got, err := p.Partition(ctx, actor, testTenant,
		[]string{"admin-1"}, policy.ActionEdit)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin-1"}, got.Editable)

	got, err = p.Partition(ctx, actor, testTenant,
		[]string{"admin-1"}, policy.ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin-1"}, got.Uneditable)

	got, err = p.Partition(ctx, actor, testTenant,
		[]string{"admin-1"}, policy.ActionEdit, policy.ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin-1"}, got.Uneditable)
}

func TestPartitionCrossTenantAbortsWholeCall(t *testing.T) {
	mem := store.NewMemStore()
	seedPrincipal(t, mem, "user-1", policy.TierUser, testTenant)
	seedPrincipal(t, mem, "outsider", policy.TierUser, "other-school")

	p := NewPartitioner(NewRepository(mem), policy.Default())
	actor := Actor{ID: "admin-1", Tier: policy.TierAdmin, TenantID: testTenant}

	_, err := p.Partition(context.Background(), actor, testTenant,
		[]string{"user-1", "outsider"}, policy.ActionEdit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCrossTenant))
}

func TestPartitionMissingMembershipIsCrossTenant(t *testing.T) {
	mem := store.NewMemStore()

	p := NewPartitioner(NewRepository(mem), policy.Default())
	actor := Actor{ID: "admin-1", Tier: policy.TierAdmin, TenantID: testTenant}

	_, err := p.Partition(context.Background(), actor, testTenant,
		[]string{"ghost"}, policy.ActionEdit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCrossTenant))
}

func TestPartitionMissingProfileDefaultsToUserTier(t *testing.T) {
	mem := store.NewMemStore()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx,
		store.Ref{Collection: MembershipCollection, ID: "no-profile"},
		store.Document{"tenants": []any{testTenant}},
	))

	p := NewPartitioner(NewRepository(mem), policy.Default())
	actor := Actor{ID: "admin-1", Tier: policy.TierAdmin, TenantID: testTenant}

	got, err := p.Partition(ctx, actor, testTenant,
		[]string{"no-profile"}, policy.ActionEdit)
	require.NoError(t, err)
	assert.Equal(t, []string{"no-profile"}, got.Editable)
}

func TestPartitionEmptyTargetsReadsNothing(t *testing.T) {
	mem := store.NewMemStore()

	p := NewPartitioner(NewRepository(mem), policy.Default())
	actor := Actor{ID: "admin-1", Tier: policy.TierAdmin, TenantID: testTenant}

	got, err := p.Partition(context.Background(), actor, testTenant,
		nil, policy.ActionEdit)
	require.NoError(t, err)
	assert.Empty(t, got.Editable)
	assert.Empty(t, got.Uneditable)
}

func TestPartitionMultiActionRequiresAll(t *testing.T) {
	mem := store.NewMemStore()
	// An owner can edit admins but the matrix also gates delete at ADMIN,
	// so the combined set still admits them. A USER actor fails both.
	seedPrincipal(t, mem, "admin-2", policy.TierAdmin, testTenant)
	seedPrincipal(t, mem, "owner-2", policy.TierOwner, testTenant)

	p := NewPartitioner(NewRepository(mem), policy.Default())
	actor := Actor{ID: "owner-1", Tier: policy.TierOwner, TenantID: testTenant}

	got, err := p.Partition(context.Background(), actor, testTenant,
		[]string{"admin-2", "owner-2"},
		policy.ActionEdit, policy.ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin-2"}, got.Editable)
	assert.Equal(t, []string{"owner-2"}, got.Uneditable)
}
