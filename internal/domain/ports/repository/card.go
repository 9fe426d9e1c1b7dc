package repository

import (
	"context"
	"time"

	"cardkey-service/internal/domain/model"
)

// -----------------------------
// Cards: verification path
// -----------------------------

// CardRepository is the single owner of persisted card state on the
// verification path. Every mutating method is a compare-and-set: the write
// only happens if the preconditions still hold at write time, otherwise it
// returns domain.ErrConflict and leaves the row untouched.
type CardRepository interface {
	FindByFingerprint(ctx context.Context, tx Tx, fingerprint string) (*model.Card, error)

	// ActivateTime moves an Unused time card to Used and binds deviceID. The
	// expiry was derived from expectedDuration, so a changed duration conflicts.
	ActivateTime(ctx context.Context, tx Tx, id, deviceID string, method model.VerifyMethod, useTime time.Time, expectedDuration int, expireTime *time.Time) (*model.Card, error)
	// ActivateCount moves an Unused count card with expectedTotal uses to Used,
	// binds deviceID and consumes the first use.
	ActivateCount(ctx context.Context, tx Tx, id, deviceID string, method model.VerifyMethod, useTime time.Time, expectedTotal int) (*model.Card, error)
	// ReverifyCountDecrement lowers the remaining count of a Used card bound to
	// deviceID from expectedRemaining to newRemaining.
	ReverifyCountDecrement(ctx context.Context, tx Tx, id, deviceID string, expectedRemaining, newRemaining int) (*model.Card, error)
	// RebindDevice attaches deviceID to a Used card that currently has no device.
	RebindDevice(ctx context.Context, tx Tx, id, deviceID string, method model.VerifyMethod) (*model.Card, error)
}

// -----------------------------
// Cards: admin surface
// -----------------------------

type CardAdminRepository interface {
	CreateBatch(ctx context.Context, tx Tx, cards []*model.Card) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Card, error)
	List(ctx context.Context, tx Tx, f model.CardFilter) ([]*model.Card, error)
	Count(ctx context.Context, tx Tx, f model.CardFilter) (int64, error)
	ExistingKeys(ctx context.Context, tx Tx, keys []string) (map[string]bool, error)

	Delete(ctx context.Context, tx Tx, id string) error
	DeleteMany(ctx context.Context, tx Tx, ids []string) (int64, error)

	// Disable sets status Disabled unless it already is.
	Disable(ctx context.Context, tx Tx, id string) error
	// Enable restores a Disabled card to Used, keeping its binding.
	Enable(ctx context.Context, tx Tx, id string) error
	// Extend adds days to a time card's expiry (from now when it has none) and duration.
	Extend(ctx context.Context, tx Tx, id string, days int, now time.Time) (*model.Card, error)
	// AddCount raises total and remaining of a count card by n.
	AddCount(ctx context.Context, tx Tx, id string, n int) (*model.Card, error)
	// Unbind clears the device of a bound card.
	Unbind(ctx context.Context, tx Tx, id string) error
	UpdateDevice(ctx context.Context, tx Tx, id, deviceID string) error

	CountByStatus(ctx context.Context, tx Tx) (model.CardCounts, error)
	CountRecent(ctx context.Context, tx Tx, since time.Time) (model.RecentCardCounts, error)
	DailyTrend(ctx context.Context, tx Tx, from time.Time, days int) ([]model.DailyCardCount, error)
}
