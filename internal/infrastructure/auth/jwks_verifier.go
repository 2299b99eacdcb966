package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"

	"dealroom/internal/domain/service"
	"dealroom/pkg/logger"
)

// JWKSVerifier verifies RS256/ES256 tokens against a remote key set that is
// refreshed in the background.
type JWKSVerifier struct {
	jwks *keyfunc.JWKS
}

var _ service.TokenVerifier = (*JWKSVerifier)(nil)

func NewJWKSVerifier(jwksURL string) (*JWKSVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("JWKS refresh failed for %s: %v", jwksURL, err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}

	return &JWKSVerifier{jwks: jwks}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) (*service.Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "ES256"}))
	if err != nil {
		return nil, err
	}

	return claims.identity()
}

func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}
