// AngelaMos | 2026
// policy.go

package policy

import (
	"fmt"
	"strings"
)

// Tier is an account's authority level. Tiers are totally ordered; the
// integer priority is what the permission matrix compares against.
type Tier int

const (
	TierUser Tier = iota + 1
	TierAdmin
	TierOwner
)

func (t Tier) Priority() int {
	return int(t)
}

func (t Tier) String() string {
	switch t {
	case TierUser:
		return "USER"
	case TierAdmin:
		return "ADMIN"
	case TierOwner:
		return "OWNER"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

func (t Tier) IsAdmin() bool {
	return t >= TierAdmin
}

// ParseTier normalizes case before matching, so imported CSV values like
// "admin" or "Owner" resolve.
func ParseTier(s string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return TierUser, nil
	case "ADMIN":
		return TierAdmin, nil
	case "OWNER":
		return TierOwner, nil
	default:
		return 0, fmt.Errorf("unknown account tier %q", s)
	}
}

func Tiers() []Tier {
	return []Tier{TierUser, TierAdmin, TierOwner}
}

type Action int

const (
	ActionCreate Action = iota + 1
	ActionEdit
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "CREATE"
	case ActionEdit:
		return "EDIT"
	case ActionDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

func Actions() []Action {
	return []Action{ActionCreate, ActionEdit, ActionDelete}
}

// Matrix maps (actor tier, action) to the highest target-tier priority the
// actor may affect with that action. Zero means the action is never allowed.
type Matrix struct {
	thresholds map[Tier]map[Action]int
}

// Default returns the production matrix: admins manage users and create up
// to admins, owners manage everyone below themselves and create owners.
func Default() Matrix {
	return Matrix{thresholds: map[Tier]map[Action]int{
		TierUser: {
			ActionCreate: 0,
			ActionEdit:   0,
			ActionDelete: 0,
		},
		TierAdmin: {
			ActionCreate: TierAdmin.Priority(),
			ActionEdit:   TierUser.Priority(),
			ActionDelete: TierUser.Priority(),
		},
		TierOwner: {
			ActionCreate: TierOwner.Priority(),
			ActionEdit:   TierAdmin.Priority(),
			ActionDelete: TierAdmin.Priority(),
		},
	}}
}

func (m Matrix) Threshold(actor Tier, action Action) int {
	row, ok := m.thresholds[actor]
	if !ok {
		return 0
	}
	return row[action]
}

// Allows reports whether actor may apply action to a target of the given
// tier. Self-targeting rules live in the partitioner, not here.
func (m Matrix) Allows(actor Tier, action Action, target Tier) bool {
	return m.Threshold(actor, action) >= target.Priority()
}

// MaxCreatableTier is the clamp applied to imported tier values: the
// highest tier the actor is authorized to create, at least USER.
func (m Matrix) MaxCreatableTier(actor Tier) Tier {
	maxTier := TierUser
	for _, t := range Tiers() {
		if m.Allows(actor, ActionCreate, t) && t > maxTier {
			maxTier = t
		}
	}
	return maxTier
}

// Validate enforces the matrix invariants: the USER row is all zero and
// every threshold is non-decreasing in actor tier.
func (m Matrix) Validate() error {
	for _, action := range Actions() {
		if m.Threshold(TierUser, action) != 0 {
			return fmt.Errorf(
				"policy: USER threshold for %s must be 0, got %d",
				action, m.Threshold(TierUser, action),
			)
		}

		prev := 0
		for _, tier := range Tiers() {
			threshold := m.Threshold(tier, action)
			if threshold < prev {
				return fmt.Errorf(
					"policy: %s threshold decreases at tier %s (%d < %d)",
					action, tier, threshold, prev,
				)
			}
			prev = threshold
		}
	}
	return nil
}
