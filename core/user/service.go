package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mwalimu/kazi/core"
)

var (
	// errors
	ErrNotFound = errors.New("user not found")
)

type (
	// Repository gives read access to the identity records this subsystem
	// trusts but does not manage. CreateUser exists for seeding and fixtures.
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		GetUserByUsername(ctx context.Context, username string, exec ...core.DBExecutor) (User, error)
		QueryUsersByType(ctx context.Context, userType string, exec ...core.DBExecutor) ([]User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nu User) (User, error) {
	now := time.Now().UTC()
	nu.ID = uuid.New().String()
	nu.IsActive = true
	nu.CreatedAt = now
	nu.UpdatedAt = now
	return svc.repo.CreateUser(ctx, nu)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) QueryByType(ctx context.Context, userType string) ([]User, error) {
	return svc.repo.QueryUsersByType(ctx, userType)
}
