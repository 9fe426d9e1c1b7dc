package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
)

var (
	_ repository.CardRepository      = (*cardRepo)(nil)
	_ repository.CardAdminRepository = (*cardRepo)(nil)
)

var tracer = otel.Tracer("cardkey-service/postgres")

const cardColumns = `id, card_key, encrypted_key, status, card_type, duration, total_count, remaining_count,
       allow_reverify, device_id, verify_method, use_time, expire_time, create_time, remark`

type cardRepo struct {
	pool *pgxpool.Pool
}

// NewCardRepo returns the Postgres card store. The same value serves the
// verification path and the admin surface.
func NewCardRepo(pool *pgxpool.Pool) *cardRepo {
	return &cardRepo{pool: pool}
}

func scanCard(row pgx.Row) (*model.Card, error) {
	var (
		c      model.Card
		status int16
		typ    string
		method string
	)
	if err := row.Scan(
		&c.ID, &c.PlainKey, &c.Fingerprint, &status, &typ, &c.DurationDays, &c.TotalCount, &c.RemainingCount,
		&c.AllowReverify, &c.DeviceID, &method, &c.UseTime, &c.ExpireTime, &c.CreateTime, &c.Remark,
	); err != nil {
		return nil, err
	}
	st, err := model.ParseCardStatus(int(status))
	if err != nil {
		return nil, fmt.Errorf("%w: card %s has status %d", domain.ErrReadDatabaseRow, c.ID, status)
	}
	c.Status = st
	c.Type = model.CardType(typ)
	c.VerifyMethod = model.VerifyMethod(method)
	return &c, nil
}

func (r *cardRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}, notFound error) (*model.Card, error) {
	q := `SELECT ` + cardColumns + ` FROM cards WHERE ` + where + `;`
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	c, err := scanCard(row)
	if err != nil {
		return nil, mapErr(err, notFound)
	}
	return c, nil
}

func (r *cardRepo) FindByFingerprint(ctx context.Context, tx repository.Tx, fingerprint string) (*model.Card, error) {
	return r.findOne(ctx, tx, `encrypted_key = $1`, fingerprint, domain.ErrNotFound)
}

func (r *cardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Card, error) {
	return r.findOne(ctx, tx, `id = $1`, id, domain.ErrCardNotFound)
}

// casUpdate runs a guarded UPDATE ... RETURNING. No returned row means the
// guard no longer held and is reported as domain.ErrConflict.
func (r *cardRepo) casUpdate(ctx context.Context, tx repository.Tx, op, q string, args ...interface{}) (*model.Card, error) {
	ctx, span := tracer.Start(ctx, "cards."+op, trace.WithAttributes(attribute.String("db.system", "postgresql")))
	defer span.End()

	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	c, err := scanCard(row)
	if err != nil {
		err = mapErr(err, domain.ErrConflict)
		span.RecordError(err)
		return nil, err
	}
	return c, nil
}

func (r *cardRepo) ActivateTime(ctx context.Context, tx repository.Tx, id, deviceID string, method model.VerifyMethod, useTime time.Time, expectedDuration int, expireTime *time.Time) (*model.Card, error) {
	q := `
UPDATE cards
   SET status = 1, device_id = $2, verify_method = $3, use_time = $4, expire_time = $6
 WHERE id = $1 AND status = 0 AND card_type = 'time' AND duration = $5
RETURNING ` + cardColumns + `;`
	return r.casUpdate(ctx, tx, "activate_time", q, id, deviceID, string(method), useTime, expectedDuration, expireTime)
}

func (r *cardRepo) ActivateCount(ctx context.Context, tx repository.Tx, id, deviceID string, method model.VerifyMethod, useTime time.Time, expectedTotal int) (*model.Card, error) {
	q := `
UPDATE cards
   SET status = 1, device_id = $2, verify_method = $3, use_time = $4, remaining_count = total_count - 1
 WHERE id = $1 AND status = 0 AND card_type = 'count' AND total_count = $5 AND remaining_count = total_count
RETURNING ` + cardColumns + `;`
	return r.casUpdate(ctx, tx, "activate_count", q, id, deviceID, string(method), useTime, expectedTotal)
}

func (r *cardRepo) ReverifyCountDecrement(ctx context.Context, tx repository.Tx, id, deviceID string, expectedRemaining, newRemaining int) (*model.Card, error) {
	q := `
UPDATE cards
   SET remaining_count = $4
 WHERE id = $1 AND status = 1 AND device_id = $2 AND remaining_count = $3 AND remaining_count > 0
RETURNING ` + cardColumns + `;`
	return r.casUpdate(ctx, tx, "reverify_count", q, id, deviceID, expectedRemaining, newRemaining)
}

func (r *cardRepo) RebindDevice(ctx context.Context, tx repository.Tx, id, deviceID string, method model.VerifyMethod) (*model.Card, error) {
	q := `
UPDATE cards
   SET device_id = $2, verify_method = $3
 WHERE id = $1 AND status = 1 AND device_id = ''
RETURNING ` + cardColumns + `;`
	return r.casUpdate(ctx, tx, "rebind", q, id, deviceID, string(method))
}

// -----------------------------
// Admin surface
// -----------------------------

func (r *cardRepo) CreateBatch(ctx context.Context, tx repository.Tx, cards []*model.Card) error {
	if len(cards) == 0 {
		return nil
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	cols := []string{
		"id", "card_key", "encrypted_key", "status", "card_type", "duration",
		"total_count", "remaining_count", "allow_reverify", "create_time", "remark",
	}
	rows := make([][]interface{}, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, []interface{}{
			c.ID, c.PlainKey, c.Fingerprint, int16(c.Status), string(c.Type), c.DurationDays,
			c.TotalCount, c.RemainingCount, c.AllowReverify, c.CreateTime, c.Remark,
		})
	}
	n, err := ex.CopyFrom(ctx, pgx.Identifier{"cards"}, cols, pgx.CopyFromRows(rows))
	if err != nil {
		return mapErr(err, domain.ErrOperationFailed)
	}
	if int(n) != len(cards) {
		return fmt.Errorf("%w: inserted %d of %d cards", domain.ErrOperationFailed, n, len(cards))
	}
	return nil
}

func cardWhere(f model.CardFilter) (string, []interface{}) {
	conds := []string{"1=1"}
	var args []interface{}
	if f.Status != nil {
		args = append(args, int16(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("card_type = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("card_key LIKE $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func (r *cardRepo) List(ctx context.Context, tx repository.Tx, f model.CardFilter) ([]*model.Card, error) {
	where, args := cardWhere(f)
	q := `SELECT ` + cardColumns + ` FROM cards WHERE ` + where + ` ORDER BY create_time DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := queryRows(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	var out []*model.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	return out, nil
}

func (r *cardRepo) Count(ctx context.Context, tx repository.Tx, f model.CardFilter) (int64, error) {
	where, args := cardWhere(f)
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM cards WHERE `+where+`;`, args...)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return n, nil
}

func (r *cardRepo) ExistingKeys(ctx context.Context, tx repository.Tx, keys []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT card_key FROM cards WHERE card_key = ANY($1);`, keys)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[k] = true
	}
	return out, rows.Err()
}

func (r *cardRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM cards WHERE id = $1;`, id)
	if err != nil {
		return mapErr(err, domain.ErrCardNotFound)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCardNotFound
	}
	return nil
}

func (r *cardRepo) DeleteMany(ctx context.Context, tx repository.Tx, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM cards WHERE id = ANY($1);`, ids)
	if err != nil {
		return 0, mapErr(err, domain.ErrCardNotFound)
	}
	return tag.RowsAffected(), nil
}

// guardedExec runs an UPDATE whose WHERE clause carries the precondition.
func (r *cardRepo) guardedExec(ctx context.Context, tx repository.Tx, q string, args ...interface{}) error {
	tag, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return mapErr(err, domain.ErrConflict)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *cardRepo) Disable(ctx context.Context, tx repository.Tx, id string) error {
	return r.guardedExec(ctx, tx, `UPDATE cards SET status = 2 WHERE id = $1 AND status <> 2;`, id)
}

// Enable returns a disabled card to Used, or to Unused if it was never activated.
func (r *cardRepo) Enable(ctx context.Context, tx repository.Tx, id string) error {
	return r.guardedExec(ctx, tx, `
UPDATE cards
   SET status = CASE WHEN use_time IS NULL THEN 0 ELSE 1 END
 WHERE id = $1 AND status = 2;`, id)
}

func (r *cardRepo) Unbind(ctx context.Context, tx repository.Tx, id string) error {
	return r.guardedExec(ctx, tx, `UPDATE cards SET device_id = '' WHERE id = $1 AND device_id <> '';`, id)
}

func (r *cardRepo) UpdateDevice(ctx context.Context, tx repository.Tx, id, deviceID string) error {
	return r.guardedExec(ctx, tx, `UPDATE cards SET device_id = $2 WHERE id = $1;`, id, deviceID)
}

func (r *cardRepo) Extend(ctx context.Context, tx repository.Tx, id string, days int, now time.Time) (*model.Card, error) {
	q := `
UPDATE cards
   SET expire_time = COALESCE(expire_time, $3) + make_interval(days => $2),
       duration = duration + $2
 WHERE id = $1 AND card_type = 'time'
RETURNING ` + cardColumns + `;`
	return r.casUpdate(ctx, tx, "extend", q, id, days, now)
}

func (r *cardRepo) AddCount(ctx context.Context, tx repository.Tx, id string, n int) (*model.Card, error) {
	q := `
UPDATE cards
   SET total_count = total_count + $2, remaining_count = remaining_count + $2
 WHERE id = $1 AND card_type = 'count'
RETURNING ` + cardColumns + `;`
	return r.casUpdate(ctx, tx, "add_count", q, id, n)
}

func (r *cardRepo) CountByStatus(ctx context.Context, tx repository.Tx) (model.CardCounts, error) {
	const q = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 1),
       COUNT(*) FILTER (WHERE status = 0),
       COUNT(*) FILTER (WHERE status = 2)
  FROM cards;`
	var c model.CardCounts
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return c, err
	}
	if err := row.Scan(&c.Total, &c.Used, &c.Unused, &c.Disabled); err != nil {
		return c, fmt.Errorf("count cards by status: %w", err)
	}
	return c, nil
}

func (r *cardRepo) CountRecent(ctx context.Context, tx repository.Tx, since time.Time) (model.RecentCardCounts, error) {
	const q = `
SELECT COUNT(*) FILTER (WHERE create_time >= $1),
       COUNT(*) FILTER (WHERE create_time >= $1 AND use_time >= $1)
  FROM cards;`
	var c model.RecentCardCounts
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return c, err
	}
	if err := row.Scan(&c.NewCards, &c.RecentUsed); err != nil {
		return c, fmt.Errorf("count recent cards: %w", err)
	}
	return c, nil
}

// DailyTrend returns one bucket per day in [from, from+days), including empty days.
func (r *cardRepo) DailyTrend(ctx context.Context, tx repository.Tx, from time.Time, days int) ([]model.DailyCardCount, error) {
	const q = `
WITH d AS (
  SELECT generate_series($1::date, $1::date + ($2::int - 1), interval '1 day')::date AS day
)
SELECT d.day,
       (SELECT COUNT(*) FROM cards c WHERE c.create_time::date = d.day),
       (SELECT COUNT(*) FROM cards c WHERE c.use_time::date = d.day)
  FROM d
 ORDER BY d.day;`
	rows, err := queryRows(ctx, r.pool, tx, q, from, days)
	if err != nil {
		return nil, mapErr(err, domain.ErrNotFound)
	}
	defer rows.Close()

	out := make([]model.DailyCardCount, 0, days)
	for rows.Next() {
		var b model.DailyCardCount
		if err := rows.Scan(&b.Date, &b.NewCards, &b.UsedCards); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
