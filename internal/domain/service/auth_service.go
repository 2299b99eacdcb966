package service

import "context"

// Identity is what a verified credential says about its bearer.
type Identity struct {
	UserID   string
	Elevated bool
}

// TokenVerifier checks a credential's signature and expiry.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
