package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
)

var _ repository.AdminRepository = (*adminRepo)(nil)

type adminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *adminRepo {
	return &adminRepo{pool: pool}
}

func (r *adminRepo) Save(ctx context.Context, tx repository.Tx, a *model.Admin) error {
	const q = `
INSERT INTO admins (id, username, password_hash, create_time, last_login)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  username = EXCLUDED.username,
  password_hash = EXCLUDED.password_hash,
  last_login = EXCLUDED.last_login;`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Username, a.PasswordHash, a.CreateTime, a.LastLogin)
	return mapErr(err, domain.ErrNotFound)
}

func (r *adminRepo) find(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.Admin, error) {
	q := `SELECT id, username, password_hash, create_time, last_login FROM admins WHERE ` + where + `;`
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	var a model.Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreateTime, &a.LastLogin); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return &a, nil
}

func (r *adminRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Admin, error) {
	return r.find(ctx, tx, `username = $1`, username)
}

func (r *adminRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Admin, error) {
	return r.find(ctx, tx, `id = $1`, id)
}

func (r *adminRepo) UpdatePassword(ctx context.Context, tx repository.Tx, id, passwordHash string) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE admins SET password_hash = $2 WHERE id = $1;`, id, passwordHash)
	if err != nil {
		return mapErr(err, domain.ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *adminRepo) TouchLogin(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	_, err := execSQL(ctx, r.pool, tx, `UPDATE admins SET last_login = $2 WHERE id = $1;`, id, at)
	return mapErr(err, domain.ErrNotFound)
}

func (r *adminRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM admins;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
