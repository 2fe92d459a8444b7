// AngelaMos | 2026
// schema.go

package tenant

import (
	"fmt"
	"slices"

	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/policy"
)

// TierField is the reserved row key carrying the requested account tier.
const TierField = "accountType"

// ValidatedRow is an import row after schema validation. Tier is zero when
// the row did not request one.
type ValidatedRow struct {
	Tier   policy.Tier
	Fields map[string]any
}

// ValidateRows checks raw import rows against the tenant's field schema.
// An unrecognized tier string fails the whole call. Fields without a
// matching schema entry, and picker values outside the field's options, are
// dropped from the row without failing the call. Ragged CSV exports are
// the norm for this import path; a usable partial row beats a rejected
// file.
func (t *Tenant) ValidateRows(
	rows map[string]map[string]string,
) (map[string]ValidatedRow, error) {
	validated := make(map[string]ValidatedRow, len(rows))

	for email, fields := range rows {
		row := ValidatedRow{Fields: make(map[string]any)}

		for key, value := range fields {
			if key == TierField {
				tier, err := policy.ParseTier(value)
				if err != nil {
					return nil, fmt.Errorf(
						"row %s: %v: %w", email, err, core.ErrInvalidInput)
				}
				row.Tier = tier
				continue
			}

			spec, ok := t.Field(key)
			if !ok {
				continue
			}
			if spec.Input == InputPicker && !slices.Contains(spec.Options, value) {
				continue
			}
			row.Fields[key] = value
		}

		validated[email] = row
	}

	return validated, nil
}
