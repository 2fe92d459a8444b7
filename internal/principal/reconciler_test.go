// AngelaMos | 2026
// reconciler_test.go

package principal

import (
	"context"
	"errors"
	"fmt"
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

type importFixture struct {
	store      *store.MemStore
	provider   *directory.MemProvider
	reconciler *Reconciler
	repo       Repository
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()

	mem := store.NewMemStore()
	provider := directory.NewMemProvider()
	repo := NewRepository(mem)
	tenants := tenant.NewRepository(mem)
	matrix := policy.Default()

	require.NoError(t, tenants.Set(context.Background(), &tenant.Tenant{
		ID:   testTenant,
		Name: "Lincoln High",
		Code: "LHS",
		DefaultPrincipal: tenant.DefaultPrincipal{
			Password: "changeme123",
			Profile:  map[string]any{"grade": "9"},
		},
		FieldSchema: []tenant.FieldSpec{
			{Key: "firstName", Title: "First Name", Input: tenant.InputText},
			{
				Key:     "grade",
				Title:   "Grade",
				Input:   tenant.InputPicker,
				Options: []string{"9", "10", "11", "12"},
			},
		},
	}))

	reconciler := NewReconciler(ReconcilerConfig{
		Tenants:           tenants,
		Repo:              repo,
		Provider:          provider,
		Partitioner:       NewPartitioner(repo, matrix),
		Matrix:            matrix,
		Writer:            batch.NewWriter(mem, 400, nil),
		CreateConcurrency: 4,
	})

	return &importFixture{
		store:      mem,
		provider:   provider,
		reconciler: reconciler,
		repo:       repo,
	}
}

func (f *importFixture) seed(
	t *testing.T,
	id, email string,
	tier policy.Tier,
	tenants ...string,
) {
	t.Helper()
	f.provider.Seed(id, email)
	seedPrincipal(t, f.store, id, tier, tenants...)
}

func adminActor() Actor {
	return Actor{ID: "actor-admin", Tier: policy.TierAdmin, TenantID: testTenant}
}

func ownerActor() Actor {
	return Actor{ID: "actor-owner", Tier: policy.TierOwner, TenantID: testTenant}
}

func TestImportRejectsNonAdminActor(t *testing.T) {
	f := newImportFixture(t)
	actor := Actor{ID: "u1", Tier: policy.TierUser, TenantID: testTenant}

	_, err := f.reconciler.Import(context.Background(), actor, testTenant,
		map[string]map[string]string{"a@example.com": {}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrForbidden))
}

func TestImportRejectsForeignTenantActor(t *testing.T) {
	f := newImportFixture(t)
	actor := Actor{ID: "a1", Tier: policy.TierAdmin, TenantID: "other-school"}

	_, err := f.reconciler.Import(context.Background(), actor, testTenant,
		map[string]map[string]string{"a@example.com": {}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrForbidden))
}

func TestImportCreatesUnknownAccounts(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	result, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"new@example.com": {"firstName": "Ada", "grade": "10"},
		})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Created, 1)

	id := result.Created["new@example.com"]
	require.NotEmpty(t, id)

	membership, err := f.repo.GetMembership(ctx, id)
	require.NoError(t, err)
	assert.True(t, membership.BelongsTo(testTenant))

	profile, err := f.repo.GetProfile(ctx, testTenant, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile["firstName"])
	assert.Equal(t, "10", profile["grade"])
	assert.Equal(t, "USER", profile[tierField])

	assert.Equal(t, "changeme123", f.provider.Password(id))
}

func TestImportClampsCreatedTierToActorAuthority(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	result, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"boss@example.com": {"accountType": "OWNER"},
		})
	require.NoError(t, err)

	id := result.Created["boss@example.com"]
	profile, err := f.repo.GetProfile(ctx, testTenant, id)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", profile[tierField])
}

func TestImportUpdatesEditableAndSkipsPeers(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	f.seed(t, "admin-2", "admin2@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	result, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"user1@example.com":  {"firstName": "Updated"},
			"admin2@example.com": {"firstName": "Nope"},
		})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"user1@example.com": "user-1"}, result.Updated)

	profile, err := f.repo.GetProfile(ctx, testTenant, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated", profile["firstName"])

	// Out-of-authority peers keep their document untouched.
	peer, err := f.repo.GetProfile(ctx, testTenant, "admin-2")
	require.NoError(t, err)
	assert.NotContains(t, peer, "firstName")
}

func TestImportMergePreservesExistingFields(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	ctx := context.Background()

	require.NoError(t, f.store.Set(ctx,
		store.Ref{Collection: ProfileCollection(testTenant), ID: "user-1"},
		store.Document{tierField: "USER", "firstName": "Ada", "grade": "9"},
	))

	_, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"user1@example.com": {"grade": "10"},
		})
	require.NoError(t, err)

	profile, err := f.repo.GetProfile(ctx, testTenant, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile["firstName"])
	assert.Equal(t, "10", profile["grade"])
}

func TestImportTierTransitionRequiresDeleteAuthority(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "user-1", "user1@example.com", policy.TierUser, testTenant)
	ctx := context.Background()

	// ADMIN holds DELETE over USER, so promoting a USER to ADMIN works.
	_, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"user1@example.com": {"accountType": "ADMIN"},
		})
	require.NoError(t, err)

	profile, err := f.repo.GetProfile(ctx, testTenant, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", profile[tierField])
}

func TestImportOwnerDemotesAdmin(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-owner", "owner@example.com", policy.TierOwner, testTenant)
	f.seed(t, "admin-2", "admin2@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	_, err := f.reconciler.Import(ctx, ownerActor(), testTenant,
		map[string]map[string]string{
			"admin2@example.com": {"accountType": "USER"},
		})
	require.NoError(t, err)

	profile, err := f.repo.GetProfile(ctx, testTenant, "admin-2")
	require.NoError(t, err)
	assert.Equal(t, "USER", profile[tierField])
}

func TestImportFreezesActorOwnTier(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-owner", "owner@example.com", policy.TierOwner, testTenant)
	ctx := context.Background()

	_, err := f.reconciler.Import(ctx, ownerActor(), testTenant,
		map[string]map[string]string{
			"owner@example.com": {"accountType": "USER", "firstName": "Me"},
		})
	require.NoError(t, err)

	profile, err := f.repo.GetProfile(ctx, testTenant, "actor-owner")
	require.NoError(t, err)
	assert.Equal(t, "OWNER", profile[tierField])
	assert.Equal(t, "Me", profile["firstName"])
}

func TestImportCrossTenantEmailAbortsBeforeAnyWrite(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.seed(t, "outsider", "outsider@example.com", policy.TierUser, "other-school")
	ctx := context.Background()

	baseline := f.store.WriteCount()

	_, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"new@example.com":      {"firstName": "Ada"},
			"outsider@example.com": {"firstName": "Eve"},
		})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCrossTenant))

	assert.Equal(t, baseline, f.store.WriteCount())
	_, err = f.provider.LookupByEmail(ctx, "new@example.com")
	assert.Error(t, err, "no account may be created on an aborted import")
}

func TestImportCollectsPerEmailCreationFailures(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	f.provider.FailCreate = func(email string) error {
		if email == "bad@example.com" {
			return fmt.Errorf("quota exceeded")
		}
		return nil
	}
	ctx := context.Background()

	result, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"good@example.com": {"firstName": "Ada"},
			"bad@example.com":  {"firstName": "Eve"},
		})
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad@example.com", result.Errors[0].Email)
	assert.Len(t, result.Created, 1)
	assert.Contains(t, result.Created, "good@example.com")
}

func TestImportNormalizesRowEmails(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	ctx := context.Background()

	result, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			" New@Example.COM ": {"firstName": "Ada"},
		})
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	id := result.Created["new@example.com"]
	require.NotEmpty(t, id)

	profile, err := f.repo.GetProfile(ctx, testTenant, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile["firstName"])
}

func TestImportBatchFailureReportedInResult(t *testing.T) {
	f := newImportFixture(t)
	f.seed(t, "actor-admin", "admin@example.com", policy.TierAdmin, testTenant)
	failAll := errors.New("store down")
	ctx := context.Background()

	baselineCommits := f.store.CommitCount()
	f.store.FailCommit = func(seq int) error {
		if seq > baselineCommits {
			return failAll
		}
		return nil
	}

	result, err := f.reconciler.Import(ctx, adminActor(), testTenant,
		map[string]map[string]string{
			"new@example.com": {"firstName": "Ada"},
		})
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "0 committed")
}
