//go:build !integration

package postgres

import (
	"context"
	"time"

	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
	red "cardkey-service/internal/infra/redis"
)

// mockInnerSettingRepo mocks the database repository that the setting decorator wraps.
type mockInnerSettingRepo struct {
	GetFunc           func(ctx context.Context, tx repository.Tx, name string) (*model.Setting, error)
	AllFunc           func(ctx context.Context, tx repository.Tx) ([]*model.Setting, error)
	UpsertFunc        func(ctx context.Context, tx repository.Tx, name, value string) error
	InsertMissingFunc func(ctx context.Context, tx repository.Tx, values map[string]string) error
	DeleteFunc        func(ctx context.Context, tx repository.Tx, name string) error
}

func (m *mockInnerSettingRepo) Get(ctx context.Context, tx repository.Tx, name string) (*model.Setting, error) {
	return m.GetFunc(ctx, tx, name)
}
func (m *mockInnerSettingRepo) All(ctx context.Context, tx repository.Tx) ([]*model.Setting, error) {
	return m.AllFunc(ctx, tx)
}
func (m *mockInnerSettingRepo) Upsert(ctx context.Context, tx repository.Tx, name, value string) error {
	return m.UpsertFunc(ctx, tx, name, value)
}
func (m *mockInnerSettingRepo) InsertMissing(ctx context.Context, tx repository.Tx, values map[string]string) error {
	return m.InsertMissingFunc(ctx, tx, values)
}
func (m *mockInnerSettingRepo) Delete(ctx context.Context, tx repository.Tx, name string) error {
	return m.DeleteFunc(ctx, tx, name)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
