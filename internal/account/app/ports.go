package app

import (
	"context"

	"ModelMapper/internal/account/domain"
)

type UserRepo interface {
	GetByUID(ctx context.Context, uid uint64) (*domain.User, error)
	Save(ctx context.Context, u *domain.User) error
}

type GroupRepo interface {
	GetByUID(ctx context.Context, uid uint64) (*domain.UserGroup, error)
}
