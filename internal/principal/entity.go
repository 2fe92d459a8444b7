// AngelaMos | 2026
// entity.go

package principal

import (
	"github.com/angelamos/orderhub/internal/policy"
	"github.com/angelamos/orderhub/internal/store"
)

// MembershipCollection maps a principal id to the tenants it belongs to.
// Memberships are global, not tenant-scoped, so lookups by id work before
// the tenant is known.
const MembershipCollection = "memberships"

func ProfileCollection(tenantID string) string {
	return "tenants/" + tenantID + "/principals"
}

// Principal is an authenticated account. Identity (id, email) is owned by
// the directory; tier and profile live in the tenant's document store.
type Principal struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Tier     policy.Tier    `json:"-"`
	TenantID string         `json:"tenantId"`
	Profile  map[string]any `json:"profile,omitempty"`
}

// Membership is the set of tenants a principal belongs to. Stored as a
// list so cross-tenant checks are set-membership everywhere, even though
// current writers only ever record one tenant.
type Membership struct {
	Tenants []string
}

func (m *Membership) BelongsTo(tenantID string) bool {
	for _, t := range m.Tenants {
		if t == tenantID {
			return true
		}
	}
	return false
}

// Actor is the caller identity an operation runs as.
type Actor struct {
	ID       string
	Tier     policy.Tier
	TenantID string
}

// tierField is the profile document key holding the stored account tier.
const tierField = "accountType"

func tierFromDocument(doc store.Document) policy.Tier {
	raw, ok := doc[tierField].(string)
	if !ok {
		return policy.TierUser
	}
	tier, err := policy.ParseTier(raw)
	if err != nil {
		return policy.TierUser
	}
	return tier
}
