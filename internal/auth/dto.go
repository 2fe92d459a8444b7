// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CheckAdminRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type CheckAdminResponse struct {
	IsAdmin bool `json:"isAdmin"`
}

type DeleteFailedSignupRequest struct {
	ID string `json:"id" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type PrincipalInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Tier     string `json:"accountType"`
	TenantID string `json:"tenantId,omitempty"`
}

type AuthResponse struct {
	Principal PrincipalInfo `json:"principal"`
	Tokens    TokenResponse `json:"tokens"`
}
