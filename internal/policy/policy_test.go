// AngelaMos | 2026
// policy_test.go

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatrixValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestUserTierHasNoAuthority(t *testing.T) {
	m := Default()

	for _, action := range Actions() {
		for _, target := range Tiers() {
			assert.False(t, m.Allows(TierUser, action, target),
				"USER must not %s %s", action, target)
		}
	}
}

func TestAdminAuthority(t *testing.T) {
	m := Default()

	assert.True(t, m.Allows(TierAdmin, ActionCreate, TierUser))
	assert.True(t, m.Allows(TierAdmin, ActionCreate, TierAdmin))
	assert.False(t, m.Allows(TierAdmin, ActionCreate, TierOwner))

	assert.True(t, m.Allows(TierAdmin, ActionEdit, TierUser))
	assert.False(t, m.Allows(TierAdmin, ActionEdit, TierAdmin))
	assert.False(t, m.Allows(TierAdmin, ActionEdit, TierOwner))

	assert.True(t, m.Allows(TierAdmin, ActionDelete, TierUser))
	assert.False(t, m.Allows(TierAdmin, ActionDelete, TierAdmin))
}

func TestOwnerAuthority(t *testing.T) {
	m := Default()

	for _, target := range Tiers() {
		assert.True(t, m.Allows(TierOwner, ActionCreate, target))
	}

	assert.True(t, m.Allows(TierOwner, ActionEdit, TierUser))
	assert.True(t, m.Allows(TierOwner, ActionEdit, TierAdmin))
	assert.False(t, m.Allows(TierOwner, ActionEdit, TierOwner))

	assert.True(t, m.Allows(TierOwner, ActionDelete, TierAdmin))
	assert.False(t, m.Allows(TierOwner, ActionDelete, TierOwner))
}

func TestMaxCreatableTier(t *testing.T) {
	m := Default()

	assert.Equal(t, TierUser, m.MaxCreatableTier(TierUser))
	assert.Equal(t, TierAdmin, m.MaxCreatableTier(TierAdmin))
	assert.Equal(t, TierOwner, m.MaxCreatableTier(TierOwner))
}

func TestValidateRejectsUserAuthority(t *testing.T) {
	m := Matrix{thresholds: map[Tier]map[Action]int{
		TierUser:  {ActionEdit: 1},
		TierAdmin: {ActionEdit: 1},
		TierOwner: {ActionEdit: 2},
	}}

	require.Error(t, m.Validate())
}

func TestValidateRejectsDecreasingThresholds(t *testing.T) {
	m := Matrix{thresholds: map[Tier]map[Action]int{
		TierUser:  {ActionDelete: 0},
		TierAdmin: {ActionDelete: 2},
		TierOwner: {ActionDelete: 1},
	}}

	require.Error(t, m.Validate())
}

func TestParseTier(t *testing.T) {
	for raw, want := range map[string]Tier{
		"USER":   TierUser,
		"admin":  TierAdmin,
		" Owner ": TierOwner,
	} {
		tier, err := ParseTier(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, tier)
	}

	_, err := ParseTier("SUPERUSER")
	require.Error(t, err)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "USER", TierUser.String())
	assert.Equal(t, "ADMIN", TierAdmin.String())
	assert.Equal(t, "OWNER", TierOwner.String())
}
