package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"dealroom/internal/domain/service"
)

// HMACVerifier verifies and issues HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

var _ service.TokenVerifier = (*HMACVerifier)(nil)

func NewHMACVerifier(secret string, expiry time.Duration) *HMACVerifier {
	return &HMACVerifier{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (v *HMACVerifier) Verify(ctx context.Context, token string) (*service.Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	return claims.identity()
}

// Issue signs a token for userID. Used by the development token endpoint.
func (v *HMACVerifier) Issue(userID string, elevated bool) (string, time.Time, error) {
	now := v.now()
	expiresAt := now.Add(v.expiry)

	claims := &Claims{
		UID:   userID,
		Admin: elevated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}
