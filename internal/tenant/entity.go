// AngelaMos | 2026
// entity.go

package tenant

const Collection = "tenants"

// Tenant is one isolated customer organization. The document also carries
// the dynamic field schema that import rows are validated against and the
// defaults applied to newly created principals.
type Tenant struct {
	ID               string           `json:"-"`
	Name             string           `json:"name"`
	Code             string           `json:"code"`
	DefaultPrincipal DefaultPrincipal `json:"defaultUser"`
	FieldSchema      []FieldSpec      `json:"userFields"`
}

type DefaultPrincipal struct {
	Password string         `json:"password"`
	Profile  map[string]any `json:"profile,omitempty"`
}

type InputType string

const (
	InputText   InputType = "TEXT"
	InputPicker InputType = "PICKER"
)

type FieldSpec struct {
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Input    InputType `json:"inputType"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required"`
	Mutable  bool      `json:"mutable"`
}

func (t *Tenant) Field(key string) (FieldSpec, bool) {
	for _, spec := range t.FieldSchema {
		if spec.Key == key {
			return spec, true
		}
	}
	return FieldSpec{}, false
}
