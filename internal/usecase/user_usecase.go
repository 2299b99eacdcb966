package usecase

import (
	"context"

	"dealroom/internal/domain/entity"
	"dealroom/internal/domain/repository"
	"dealroom/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

type RegisterInput struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Register creates the user, or returns the existing one with the same id.
func (uc *UserUseCase) Register(ctx context.Context, input RegisterInput) (*entity.User, error) {
	if input.ID == "" {
		return nil, errors.BadRequest("User id is required", nil)
	}
	if !entity.ValidRole(input.Role) {
		return nil, errors.BadRequest("Role must be buyer, seller or admin", nil)
	}

	existing, err := uc.userRepo.GetByID(ctx, input.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	user := &entity.User{
		ID:    input.ID,
		Name:  input.Name,
		Email: input.Email,
		Role:  input.Role,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *UserUseCase) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}
