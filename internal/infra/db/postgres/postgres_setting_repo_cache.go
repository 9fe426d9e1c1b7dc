package postgres

import (
	"context"
	"encoding/json"
	"time"

	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
	"cardkey-service/internal/infra/metrics"
	red "cardkey-service/internal/infra/redis"
)

var _ repository.SettingRepository = (*settingRepoCacheDecorator)(nil)

const settingsAllKey = "settings:all"

func settingKey(name string) string { return "setting:" + name }

// settingRepoCacheDecorator caches setting reads in Redis. The gateway reads
// api_enabled on every verification call, so this sits on the hot path.
// Cache failures fall through to the inner repository.
type settingRepoCacheDecorator struct {
	inner repository.SettingRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewSettingRepoCacheDecorator(inner repository.SettingRepository, cache red.RedisClient, ttl time.Duration) repository.SettingRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &settingRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *settingRepoCacheDecorator) Get(ctx context.Context, tx repository.Tx, name string) (*model.Setting, error) {
	key := settingKey(name)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var s model.Setting
		if json.Unmarshal([]byte(val), &s) == nil {
			metrics.IncCacheRequest("setting", "hit")
			return &s, nil
		}
	}

	metrics.IncCacheRequest("setting", "miss")
	s, err := d.inner.Get(ctx, tx, name)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(s); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return s, nil
}

func (d *settingRepoCacheDecorator) All(ctx context.Context, tx repository.Tx) ([]*model.Setting, error) {
	if val, err := d.cache.Get(ctx, settingsAllKey); err == nil {
		var all []*model.Setting
		if json.Unmarshal([]byte(val), &all) == nil {
			metrics.IncCacheRequest("setting_list", "hit")
			return all, nil
		}
	}

	metrics.IncCacheRequest("setting_list", "miss")
	all, err := d.inner.All(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		if b, err := json.Marshal(all); err == nil {
			_ = d.cache.Set(ctx, settingsAllKey, b, d.ttl)
		}
	}
	return all, nil
}

func (d *settingRepoCacheDecorator) invalidate(ctx context.Context, names ...string) {
	keys := []string{settingsAllKey}
	for _, n := range names {
		keys = append(keys, settingKey(n))
	}
	_ = d.cache.Del(ctx, keys...)
}

func (d *settingRepoCacheDecorator) Upsert(ctx context.Context, tx repository.Tx, name, value string) error {
	if err := d.inner.Upsert(ctx, tx, name, value); err != nil {
		return err
	}
	d.invalidate(ctx, name)
	return nil
}

func (d *settingRepoCacheDecorator) InsertMissing(ctx context.Context, tx repository.Tx, values map[string]string) error {
	if err := d.inner.InsertMissing(ctx, tx, values); err != nil {
		return err
	}
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	d.invalidate(ctx, names...)
	return nil
}

func (d *settingRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, name string) error {
	if err := d.inner.Delete(ctx, tx, name); err != nil {
		return err
	}
	d.invalidate(ctx, name)
	return nil
}
