// AngelaMos | 2026
// service_test.go

package principal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/orderhub/internal/batch"
	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/directory"
	"github.com/angelamos/orderhub/internal/policy"
	"github.com/angelamos/orderhub/internal/store"
	"github.com/angelamos/orderhub/internal/tenant"
)

type serviceFixture struct {
	store    *store.MemStore
	provider *directory.MemProvider
	service  *Service
	repo     Repository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	mem := store.NewMemStore()
	provider := directory.NewMemProvider()
	repo := NewRepository(mem)
	tenants := tenant.NewRepository(mem)
	matrix := policy.Default()

	require.NoError(t, tenants.Set(context.Background(), &tenant.Tenant{
		ID:   testTenant,
		Name: "Lincoln High",
		DefaultPrincipal: tenant.DefaultPrincipal{
			Password: "changeme123",
		},
	}))

	service := NewService(ServiceConfig{
		Tenants:     tenants,
		Repo:        repo,
		Provider:    provider,
		Partitioner: NewPartitioner(repo, matrix),
		Writer:      batch.NewWriter(mem, 400, nil),
	})

	return &serviceFixture{
		store:    mem,
		provider: provider,
		service:  service,
		repo:     repo,
	}
}

func (f *serviceFixture) seed(
	t *testing.T,
	id, email string,
	tier policy.Tier,
	tenants ...string,
) {
	t.Helper()
	f.provider.Seed(id, email)
	seedPrincipal(t, f.store, id, tier, tenants...)
}

func TestDeleteRemovesAccountAndDocuments(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	ctx := context.Background()

	outcome, err := f.service.Delete(ctx, adminActor(), testTenant,
		[]string{"user-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, outcome.Deleted)
	assert.Empty(t, outcome.Skipped)
	assert.Empty(t, outcome.Failed)

	_, err = f.provider.GetByID(ctx, "user-1")
	require.Error(t, err)

	_, err = f.repo.GetProfile(ctx, testTenant, "user-1")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = f.repo.GetMembership(ctx, "user-1")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestDeleteSkipsOutOfAuthorityTargets(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	f.seed(t, "admin-2", "admin2@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	outcome, err := f.service.Delete(ctx, adminActor(), testTenant,
		[]string{"user-1", "admin-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, outcome.Deleted)
	assert.Equal(t, []string{"admin-2"}, outcome.Skipped)

	_, err = f.provider.GetByID(ctx, "admin-2")
	assert.NoError(t, err)
}

func TestDeleteNeverDeletesSelf(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	outcome, err := f.service.Delete(ctx, adminActor(), testTenant,
		[]string{"actor-admin"})
	require.NoError(t, err)
	assert.Empty(t, outcome.Deleted)
	assert.Equal(t, []string{"actor-admin"}, outcome.Skipped)
}

func TestDeleteCrossTenantAborts(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "outsider", "out@example.com", policy.TierUser, "other-school")
	ctx := context.Background()

	_, err := f.service.Delete(ctx, adminActor(), testTenant,
		[]string{"outsider"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCrossTenant))

	_, err = f.provider.GetByID(ctx, "outsider")
	assert.NoError(t, err)
}

func TestDeleteReportsCleanupFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	ctx := context.Background()

	baselineCommits := f.store.CommitCount()
	f.store.FailCommit = func(seq int) error {
		if seq > baselineCommits {
			return errors.New("store down")
		}
		return nil
	}

	outcome, err := f.service.Delete(ctx, adminActor(), testTenant,
		[]string{"user-1"})
	require.NoError(t, err)

	// The directory delete is durable and must stay on the record even
	// though the document cleanup never committed.
	assert.Equal(t, []string{"user-1"}, outcome.Deleted)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "0 committed")

	_, err = f.provider.GetByID(ctx, "user-1")
	require.Error(t, err)

	_, err = f.repo.GetProfile(ctx, testTenant, "user-1")
	assert.NoError(t, err)
}

func TestSetEmailOnEditableTarget(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "old@example.com", policy.TierUser, testTenant)
	ctx := context.Background()

	err := f.service.SetEmail(ctx, adminActor(), testTenant,
		"user-1", "new@example.com")
	require.NoError(t, err)

	account, err := f.provider.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", account.Email)
}

func TestSetEmailForbiddenOnPeer(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "admin-2", "admin2@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	err := f.service.SetEmail(ctx, adminActor(), testTenant,
		"admin-2", "new@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrForbidden))
}

func TestResetPasswordsUsesTenantDefault(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	f.seed(t, "admin-2", "admin2@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	outcome, err := f.service.ResetPasswords(ctx, adminActor(), testTenant,
		[]string{"user-1", "admin-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, outcome.Success)

	// Out-of-authority targets are reported as failed, not silently
	// dropped from the outcome.
	assert.Contains(t, outcome.Failed, "admin-2")

	assert.Equal(t, "changeme123", f.provider.Password("user-1"))
}

func TestListReturnsOnlyTenantMembers(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	f.seed(t, "outsider", "out@example.com", policy.TierUser, "other-school")
	ctx := context.Background()

	principals, err := f.service.List(ctx, adminActor(), testTenant)
	require.NoError(t, err)
	require.Len(t, principals, 2)

	ids := []string{principals[0].ID, principals[1].ID}
	assert.ElementsMatch(t, []string{"actor-admin", "user-1"}, ids)
}

func TestCheckIsAdmin(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	ctx := context.Background()

	isAdmin, err := f.service.CheckIsAdmin(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = f.service.CheckIsAdmin(ctx, "user1@example.com")
	require.NoError(t, err)
	assert.False(t, isAdmin)

	// Unknown emails answer false, not an error.
	isAdmin, err = f.service.CheckIsAdmin(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestCheckIsAdminScansAllMemberships(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	// Member of two tenants, with the admin profile in the second one.
	f.provider.Seed("roving-admin", "roving@example.com")
	require.NoError(t, f.store.Set(ctx,
		store.Ref{Collection: MembershipCollection, ID: "roving-admin"},
		store.Document{"tenants": []any{"other-school", testTenant}},
	))
	require.NoError(t, f.store.Set(ctx,
		store.Ref{Collection: ProfileCollection(testTenant), ID: "roving-admin"},
		store.Document{tierField: "ADMIN"},
	))

	isAdmin, err := f.service.CheckIsAdmin(ctx, "roving@example.com")
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestResolveFindsProfileInLaterTenant(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.provider.Seed("roving-admin", "roving@example.com")
	require.NoError(t, f.store.Set(ctx,
		store.Ref{Collection: MembershipCollection, ID: "roving-admin"},
		store.Document{"tenants": []any{"other-school", testTenant}},
	))
	require.NoError(t, f.store.Set(ctx,
		store.Ref{Collection: ProfileCollection(testTenant), ID: "roving-admin"},
		store.Document{tierField: "ADMIN"},
	))

	tier, tenantID, err := f.service.Resolve(ctx, "roving-admin")
	require.NoError(t, err)
	assert.Equal(t, policy.TierAdmin, tier)
	assert.Equal(t, testTenant, tenantID)
}

func TestResolve(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.provider.Seed("orphan", "orphan@example.com")
	ctx := context.Background()

	tier, tenantID, err := f.service.Resolve(ctx, "actor-admin")
	require.NoError(t, err)
	assert.Equal(t, policy.TierAdmin, tier)
	assert.Equal(t, testTenant, tenantID)

	tier, tenantID, err = f.service.Resolve(ctx, "orphan")
	require.NoError(t, err)
	assert.Equal(t, policy.TierUser, tier)
	assert.Empty(t, tenantID)
}

func TestDeleteFailedSignup(t *testing.T) {
	f := newServiceFixture(t)
	f.provider.Seed("orphan", "orphan@example.com")
	ctx := context.Background()

	require.NoError(t, f.service.DeleteFailedSignup(ctx, "orphan", "orphan"))

	_, err := f.provider.GetByID(ctx, "orphan")
	require.Error(t, err)
}

func TestDeleteFailedSignupRejectsOtherCallers(t *testing.T) {
	f := newServiceFixture(t)
	f.provider.Seed("orphan", "orphan@example.com")

	err := f.service.DeleteFailedSignup(context.Background(), "someone-else", "orphan")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrForbidden))
}

func TestDeleteFailedSignupRejectsMemberAccounts(t *testing.T) {
	f := newServiceFixture(t)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	ctx := context.Background()

	err := f.service.DeleteFailedSignup(ctx, "user-1", "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	_, err = f.provider.GetByID(ctx, "user-1")
	assert.NoError(t, err)
}
