package repository

import (
	"context"
	"time"

	"cardkey-service/internal/domain/model"
)

type AdminRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Admin) error
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.Admin, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Admin, error)
	UpdatePassword(ctx context.Context, tx Tx, id, passwordHash string) error
	TouchLogin(ctx context.Context, tx Tx, id string, at time.Time) error
	Count(ctx context.Context, tx Tx) (int, error)
}
