// AngelaMos | 2026
// dto.go

package principal

type ImportRequest struct {
	// Rows maps each email to its raw field values from the uploaded sheet.
	Rows map[string]map[string]string `json:"rows" validate:"required,min=1,dive,keys,email,endkeys,required"`
}

type DeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type ResetPasswordsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type SetEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type DeleteFailedSignupRequest struct {
	ID string `json:"id" validate:"required"`
}

type PrincipalResponse struct {
	ID      string         `json:"id"`
	Email   string         `json:"email"`
	Tier    string         `json:"accountType"`
	Profile map[string]any `json:"profile,omitempty"`
}

type PrincipalListResponse struct {
	Principals []PrincipalResponse `json:"principals"`
}

func ToPrincipalResponse(p Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:      p.ID,
		Email:   p.Email,
		Tier:    p.Tier.String(),
		Profile: p.Profile,
	}
}

func ToPrincipalListResponse(principals []Principal) PrincipalListResponse {
	responses := make([]PrincipalResponse, 0, len(principals))
	for _, p := range principals {
		responses = append(responses, ToPrincipalResponse(p))
	}
	return PrincipalListResponse{Principals: responses}
}
