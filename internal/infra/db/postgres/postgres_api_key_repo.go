package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
)

var _ repository.APIKeyRepository = (*apiKeyRepo)(nil)

const apiKeyColumns = `id, key_name, api_key, status, use_count, last_use_time, create_time, description`

type apiKeyRepo struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepo(pool *pgxpool.Pool) *apiKeyRepo {
	return &apiKeyRepo{pool: pool}
}

func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var (
		k      model.APIKey
		status int16
	)
	if err := row.Scan(&k.ID, &k.Name, &k.Key, &status, &k.UseCount, &k.LastUseTime, &k.CreateTime, &k.Description); err != nil {
		return nil, err
	}
	k.Status = model.APIKeyStatus(status)
	return &k, nil
}

func (r *apiKeyRepo) Create(ctx context.Context, tx repository.Tx, k *model.APIKey) error {
	const q = `
INSERT INTO api_keys (id, key_name, api_key, status, use_count, last_use_time, create_time, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		k.ID, k.Name, k.Key, int16(k.Status), k.UseCount, k.LastUseTime, k.CreateTime, k.Description,
	)
	return mapErr(err, domain.ErrNotFound)
}

func (r *apiKeyRepo) find(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.APIKey, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE `+where+`;`, arg)
	if err != nil {
		return nil, err
	}
	k, err := scanAPIKey(row)
	if err != nil {
		return nil, mapErr(err, domain.ErrAPIKeyNotFound)
	}
	return k, nil
}

func (r *apiKeyRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.APIKey, error) {
	return r.find(ctx, tx, `id = $1`, id)
}

func (r *apiKeyRepo) FindByKey(ctx context.Context, tx repository.Tx, key string) (*model.APIKey, error) {
	return r.find(ctx, tx, `api_key = $1`, key)
}

func (r *apiKeyRepo) ExistsByName(ctx context.Context, tx repository.Tx, name string) (bool, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT EXISTS (SELECT 1 FROM api_keys WHERE key_name = $1);`, name)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, fmt.Errorf("api key exists: %w", err)
	}
	return ok, nil
}

func apiKeyWhere(f model.APIKeyFilter) (string, []interface{}) {
	if f.Status == nil {
		return "1=1", nil
	}
	return "status = $1", []interface{}{int16(*f.Status)}
}

func (r *apiKeyRepo) List(ctx context.Context, tx repository.Tx, f model.APIKeyFilter) ([]*model.APIKey, error) {
	where, args := apiKeyWhere(f)
	q := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE ` + where + ` ORDER BY create_time DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := queryRows(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *apiKeyRepo) Count(ctx context.Context, tx repository.Tx, f model.APIKeyFilter) (int64, error) {
	where, args := apiKeyWhere(f)
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM api_keys WHERE `+where+`;`, args...)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return n, nil
}

func (r *apiKeyRepo) mustAffect(ctx context.Context, tx repository.Tx, q string, args ...interface{}) error {
	tag, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return mapErr(err, domain.ErrAPIKeyNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func (r *apiKeyRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.APIKeyStatus) error {
	return r.mustAffect(ctx, tx, `UPDATE api_keys SET status = $2 WHERE id = $1;`, id, int16(status))
}

func (r *apiKeyRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	return r.mustAffect(ctx, tx, `DELETE FROM api_keys WHERE id = $1;`, id)
}

func (r *apiKeyRepo) Rotate(ctx context.Context, tx repository.Tx, id, newKey string) error {
	return r.mustAffect(ctx, tx,
		`UPDATE api_keys SET api_key = $2, use_count = 0, last_use_time = NULL WHERE id = $1;`, id, newKey)
}

func (r *apiKeyRepo) RecordUse(ctx context.Context, tx repository.Tx, id string, at time.Time) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`UPDATE api_keys SET use_count = use_count + 1, last_use_time = $2 WHERE id = $1 RETURNING use_count;`, id, at)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, mapErr(err, domain.ErrAPIKeyNotFound)
	}
	return n, nil
}

func (r *apiKeyRepo) Stats(ctx context.Context, tx repository.Tx, recentSince time.Time) (model.APIKeyCounts, error) {
	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 1),
       COALESCE(SUM(use_count), 0),
       COUNT(*) FILTER (WHERE last_use_time >= $1)
  FROM api_keys;`
	var c model.APIKeyCounts
	row, err := pickRow(ctx, r.pool, tx, q, recentSince)
	if err != nil {
		return c, err
	}
	if err := row.Scan(&c.Total, &c.Active, &c.TotalCalls, &c.RecentActive); err != nil {
		return c, fmt.Errorf("api key stats: %w", err)
	}
	return c, nil
}
