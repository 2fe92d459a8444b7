// AngelaMos | 2026
// schema_test.go

package tenant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/policy"
)

func schemaTenant() *Tenant {
	return &Tenant{
		ID:   "lincoln-high",
		Name: "Lincoln High",
		FieldSchema: []FieldSpec{
			{Key: "firstName", Title: "First Name", Input: InputText},
			{Key: "lastName", Title: "Last Name", Input: InputText},
			{
				Key:     "grade",
				Title:   "Grade",
				Input:   InputPicker,
				Options: []string{"9", "10", "11", "12"},
			},
		},
	}
}

func TestValidateRowsKeepsSchemaFields(t *testing.T) {
	rows := map[string]map[string]string{
		"kid@example.com": {
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"grade":     "11",
		},
	}

	validated, err := schemaTenant().ValidateRows(rows)
	require.NoError(t, err)
	require.Len(t, validated, 1)

	row := validated["kid@example.com"]
	assert.Equal(t, map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"grade":     "11",
	}, row.Fields)
	assert.Zero(t, row.Tier)
}

func TestValidateRowsDropsUnknownFields(t *testing.T) {
	rows := map[string]map[string]string{
		"kid@example.com": {
			"firstName": "Ada",
			"homeroom":  "B12",
		},
	}

	validated, err := schemaTenant().ValidateRows(rows)
	require.NoError(t, err)

	row := validated["kid@example.com"]
	assert.Equal(t, map[string]any{"firstName": "Ada"}, row.Fields)
}

func TestValidateRowsDropsInvalidPickerValues(t *testing.T) {
	rows := map[string]map[string]string{
		"kid@example.com": {"grade": "13"},
	}

	validated, err := schemaTenant().ValidateRows(rows)
	require.NoError(t, err)

	row := validated["kid@example.com"]
	assert.Empty(t, row.Fields)
}

func TestValidateRowsParsesTier(t *testing.T) {
	rows := map[string]map[string]string{
		"teacher@example.com": {"accountType": "admin"},
	}

	validated, err := schemaTenant().ValidateRows(rows)
	require.NoError(t, err)

	row := validated["teacher@example.com"]
	assert.Equal(t, policy.TierAdmin, row.Tier)
	assert.NotContains(t, row.Fields, "accountType")
}

func TestValidateRowsRejectsUnknownTier(t *testing.T) {
	rows := map[string]map[string]string{
		"a@example.com": {"firstName": "Ada"},
		"b@example.com": {"accountType": "SUPERUSER"},
	}

	_, err := schemaTenant().ValidateRows(rows)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}
