package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
)

var _ repository.SettingRepository = (*settingRepo)(nil)

type settingRepo struct {
	pool *pgxpool.Pool
}

func NewSettingRepo(pool *pgxpool.Pool) *settingRepo {
	return &settingRepo{pool: pool}
}

func (r *settingRepo) Get(ctx context.Context, tx repository.Tx, name string) (*model.Setting, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT name, value, create_time, update_time FROM settings WHERE name = $1;`, name)
	if err != nil {
		return nil, err
	}
	var s model.Setting
	if err := row.Scan(&s.Name, &s.Value, &s.CreateTime, &s.UpdateTime); err != nil {
		return nil, mapErr(err, domain.ErrSettingNotFound)
	}
	return &s, nil
}

func (r *settingRepo) All(ctx context.Context, tx repository.Tx) ([]*model.Setting, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT name, value, create_time, update_time FROM settings ORDER BY name;`)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.Setting
	for rows.Next() {
		var s model.Setting
		if err := rows.Scan(&s.Name, &s.Value, &s.CreateTime, &s.UpdateTime); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *settingRepo) Upsert(ctx context.Context, tx repository.Tx, name, value string) error {
	const q = `
INSERT INTO settings (name, value) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, update_time = NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, name, value)
	return mapErr(err, domain.ErrNotFound)
}

func (r *settingRepo) InsertMissing(ctx context.Context, tx repository.Tx, values map[string]string) error {
	const q = `INSERT INTO settings (name, value) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING;`
	for name, value := range values {
		if _, err := execSQL(ctx, r.pool, tx, q, name, value); err != nil {
			return mapErr(err, domain.ErrNotFound)
		}
	}
	return nil
}

func (r *settingRepo) Delete(ctx context.Context, tx repository.Tx, name string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM settings WHERE name = $1;`, name)
	if err != nil {
		return mapErr(err, domain.ErrSettingNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSettingNotFound
	}
	return nil
}
