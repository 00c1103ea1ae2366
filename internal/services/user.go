package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/spinnernet/backend/internal/domain"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/repos"
	"github.com/spinnernet/backend/internal/requestdata"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	userID := requestdata.UserID(ctx)
	if userID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	return us.userRepo.GetByID(ctx, nil, userID)
}
