package repository

import (
	"context"

	"cardkey-service/internal/domain/model"
)

type SettingRepository interface {
	Get(ctx context.Context, tx Tx, name string) (*model.Setting, error)
	All(ctx context.Context, tx Tx) ([]*model.Setting, error)
	Upsert(ctx context.Context, tx Tx, name, value string) error
	// InsertMissing adds the given settings without touching existing ones.
	InsertMissing(ctx context.Context, tx Tx, values map[string]string) error
	Delete(ctx context.Context, tx Tx, name string) error
}
