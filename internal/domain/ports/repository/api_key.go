package repository

import (
	"context"
	"time"

	"cardkey-service/internal/domain/model"
)

type APIKeyRepository interface {
	Create(ctx context.Context, tx Tx, k *model.APIKey) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.APIKey, error)
	FindByKey(ctx context.Context, tx Tx, key string) (*model.APIKey, error)
	ExistsByName(ctx context.Context, tx Tx, name string) (bool, error)
	List(ctx context.Context, tx Tx, f model.APIKeyFilter) ([]*model.APIKey, error)
	Count(ctx context.Context, tx Tx, f model.APIKeyFilter) (int64, error)

	SetStatus(ctx context.Context, tx Tx, id string, status model.APIKeyStatus) error
	Delete(ctx context.Context, tx Tx, id string) error
	// Rotate replaces the secret and resets usage counters.
	Rotate(ctx context.Context, tx Tx, id, newKey string) error
	// RecordUse increments use_count and stamps last_use_time.
	RecordUse(ctx context.Context, tx Tx, id string, at time.Time) (int64, error)

	Stats(ctx context.Context, tx Tx, recentSince time.Time) (model.APIKeyCounts, error)
}
