// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/directory"
	"github.com/angelamos/orderhub/internal/middleware"
	"github.com/angelamos/orderhub/internal/policy"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	refreshKeyPrefix   = "refresh:"
	blacklistKeyPrefix = "blacklist:"
)

// PrincipalResolver maps an authenticated account onto its tier and
// tenant, and answers the pre-login admin probe.
type PrincipalResolver interface {
	Resolve(ctx context.Context, id string) (policy.Tier, string, error)
	CheckIsAdmin(ctx context.Context, email string) (bool, error)
	DeleteFailedSignup(ctx context.Context, callerID, id string) error
}

// Service issues and revokes tokens. Refresh sessions are opaque tokens
// stored hash-keyed in Redis with the refresh TTL; losing Redis logs
// everyone out, which is an acceptable failure mode for an admin tool.
type Service struct {
	provider   directory.Provider
	principals PrincipalResolver
	jwt        *JWTManager
	redis      *redis.Client
}

func NewService(
	provider directory.Provider,
	principals PrincipalResolver,
	jwtManager *JWTManager,
	redisClient *redis.Client,
) *Service {
	return &Service{
		provider:   provider,
		principals: principals,
		jwt:        jwtManager,
		redis:      redisClient,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*AuthResponse, error) {
	id, hash, err := s.provider.GetPasswordHash(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(req.Password, &hash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.provider.UpdatePassword(ctx, id, req.Password)
	}

	return s.createAuthResponse(ctx, id, req.Email)
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
) (*AuthResponse, error) {
	key := refreshKeyPrefix + core.HashToken(refreshToken)

	// GetDel rotates atomically; a replayed token finds nothing.
	principalID, err := s.redis.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("load refresh session: %w", err)
	}

	return s.createAuthResponse(ctx, principalID, "")
}

func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if refreshToken != "" {
		key := refreshKeyPrefix + core.HashToken(refreshToken)
		owner, err := s.redis.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("load refresh session: %w", err)
		}
		if err == nil {
			if owner != claims.PrincipalID {
				return fmt.Errorf("logout: %w", core.ErrForbidden)
			}
			if err := s.redis.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("revoke refresh session: %w", err)
			}
		}
	}

	return s.revokeAccessToken(ctx, claims.JTI, claims.ExpiresAt)
}

// VerifyAccessToken layers the Redis blacklist over signature checks so
// logged-out tokens die before their natural expiry.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	exists, err := s.redis.Exists(ctx, blacklistKeyPrefix+claims.JTI).Result()
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) revokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, blacklistKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (s *Service) CheckIsAdmin(ctx context.Context, email string) (bool, error) {
	return s.principals.CheckIsAdmin(ctx, email)
}

func (s *Service) DeleteFailedSignup(ctx context.Context, callerID, id string) error {
	return s.principals.DeleteFailedSignup(ctx, callerID, id)
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	principalID, email string,
) (*AuthResponse, error) {
	if email == "" {
		account, err := s.provider.GetByID(ctx, principalID)
		if err != nil {
			return nil, fmt.Errorf("load account: %w", err)
		}
		email = account.Email
	}

	tier, tenantID, err := s.principals.Resolve(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("resolve principal: %w", err)
	}

	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		PrincipalID: principalID,
		Tier:        tier,
		TenantID:    tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshToken, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	key := refreshKeyPrefix + core.HashToken(refreshToken)
	if err := s.redis.Set(
		ctx, key, principalID, s.jwt.RefreshTokenTTL()).Err(); err != nil {
		return nil, fmt.Errorf("store refresh session: %w", err)
	}

	ttl := s.jwt.AccessTokenTTL()
	return &AuthResponse{
		Principal: PrincipalInfo{
			ID:       principalID,
			Email:    email,
			Tier:     tier.String(),
			TenantID: tenantID,
		},
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl / time.Second),
			ExpiresAt:    time.Now().Add(ttl),
		},
	}, nil
}
