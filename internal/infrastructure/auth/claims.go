package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"

	"dealroom/internal/domain/service"
)

var (
	ErrMissingToken   = errors.New("auth: missing token")
	ErrMissingSubject = errors.New("auth: token has no subject")
	ErrMissingExpiry  = errors.New("auth: token has no expiry")
)

// Claims accepts either "uid" or the registered "sub" as the user id.
type Claims struct {
	UID   string `json:"uid,omitempty"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) identity() (*service.Identity, error) {
	if c.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}

	userID := c.UID
	if userID == "" {
		userID = c.Subject
	}
	if userID == "" {
		return nil, ErrMissingSubject
	}

	return &service.Identity{UserID: userID, Elevated: c.Admin}, nil
}
