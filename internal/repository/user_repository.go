package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByLoginToken(ctx context.Context, token string) (model.User, error)

	// rotate the one-time login token; empty token clears it
	UpdateLoginToken(ctx context.Context, userID int64, token string, expires *time.Time) error

	Update(ctx context.Context, user *model.User) error
}
