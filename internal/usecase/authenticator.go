package usecase

import (
	"context"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	"dealroom/internal/domain/service"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
)

// Authenticator turns a bearer credential into a Principal.
type Authenticator struct {
	verifier service.TokenVerifier
	userRepo repository.UserRepository
}

func NewAuthenticator(verifier service.TokenVerifier, userRepo repository.UserRepository) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		userRepo: userRepo,
	}
}

func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*entity.Principal, error) {
	if credential == "" {
		return nil, errors.Unauthorized("Authentication required", nil)
	}

	identity, err := a.verifier.Verify(ctx, credential)
	if err != nil {
		logger.Debug("Token verification failed: %v", err)
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}

	user, err := a.userRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.Unauthorized("User not found", err)
		}
		return nil, errors.Wrap(err, "Failed to load user")
	}

	role := user.Role
	if identity.Elevated {
		role = entity.RoleAdmin
	}

	return &entity.Principal{
		ID:   user.ID,
		Name: user.Name,
		Role: role,
	}, nil
}
