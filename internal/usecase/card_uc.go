// File: internal/usecase/card_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
	"cardkey-service/internal/infra/logging"
	"cardkey-service/internal/infra/metrics"
	"cardkey-service/internal/infra/security"
)

// Compile-time check
var _ CardUseCase = (*cardUC)(nil)

const (
	CardKeyLength     = 12
	MaxGenerateCount  = 1000
	MaxExtendDays     = 365
	MaxAddCount       = 10000
	DefaultPageLimit  = 10
	MaxPageLimit      = 100
	maxExportRows     = 50000
	keyGenerateRounds = 5
)

// GenerateRequest issues Count new cards of the same shape.
type GenerateRequest struct {
	Count int
	Spec  model.CardSpec
}

// CardPage is one page of a card listing.
type CardPage struct {
	Cards []*model.Card
	Total int64
	Page  int
	Limit int
}

type CardUseCase interface {
	Generate(ctx context.Context, req GenerateRequest) ([]*model.Card, error)
	List(ctx context.Context, f model.CardFilter, page, limit int) (*CardPage, error)
	Export(ctx context.Context, f model.CardFilter) ([]*model.Card, error)
	Get(ctx context.Context, id string) (*model.Card, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	Disable(ctx context.Context, id string) error
	Enable(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, days int) (*model.Card, error)
	AddCount(ctx context.Context, id string, n int) (*model.Card, error)
	Unbind(ctx context.Context, id string) error
	UpdateDevice(ctx context.Context, id, deviceID string) error
}

type cardUC struct {
	cards repository.CardAdminRepository
	tm    repository.TransactionManager
	codec Fingerprinter
	now   func() time.Time

	log *zerolog.Logger
}

func NewCardUseCase(cards repository.CardAdminRepository, tm repository.TransactionManager, codec Fingerprinter, logger *zerolog.Logger) *cardUC {
	return &cardUC{cards: cards, tm: tm, codec: codec, now: time.Now, log: logger}
}

func (u *cardUC) Generate(ctx context.Context, req GenerateRequest) ([]*model.Card, error) {
	if req.Count < 1 || req.Count > MaxGenerateCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidArgument, MaxGenerateCount)
	}
	if err := req.Spec.Validate(); err != nil {
		return nil, err
	}

	keys, err := u.uniqueKeys(ctx, req.Count)
	if err != nil {
		metrics.IncAdminAction("generate", "error")
		return nil, err
	}

	now := u.now()
	batch := make([]*model.Card, 0, len(keys))
	for _, k := range keys {
		c, err := model.NewCard(k, u.codec.Fingerprint(k), req.Spec, now)
		if err != nil {
			return nil, err
		}
		batch = append(batch, c)
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return u.cards.CreateBatch(ctx, tx, batch)
	})
	if err != nil {
		metrics.IncAdminAction("generate", "error")
		return nil, fmt.Errorf("create cards: %w", err)
	}
	metrics.IncAdminAction("generate", "ok")
	logging.With(ctx, u.log).Info().
		Int("count", len(batch)).
		Str("card_type", string(req.Spec.Type)).
		Msg("cards generated")
	return batch, nil
}

// uniqueKeys draws n keys that collide neither with each other nor with
// stored cards.
func (u *cardUC) uniqueKeys(ctx context.Context, n int) ([]string, error) {
	seen := make(map[string]struct{}, n)
	keys := make([]string, 0, n)
	for round := 0; round < keyGenerateRounds && len(keys) < n; round++ {
		var fresh []string
		for len(keys)+len(fresh) < n {
			k, err := security.RandomString(CardKeyLength)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			fresh = append(fresh, k)
		}
		taken, err := u.cards.ExistingKeys(ctx, repository.NoTX, fresh)
		if err != nil {
			return nil, err
		}
		for _, k := range fresh {
			if !taken[k] {
				keys = append(keys, k)
			}
		}
	}
	if len(keys) < n {
		return nil, domain.ErrKeyGenerationFail
	}
	return keys, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func (u *cardUC) List(ctx context.Context, f model.CardFilter, page, limit int) (*CardPage, error) {
	page, limit = normalizePage(page, limit)
	f.Search = strings.TrimSpace(f.Search)
	f.Offset = (page - 1) * limit
	f.Limit = limit

	cards, err := u.cards.List(ctx, repository.NoTX, f)
	if err != nil {
		return nil, err
	}
	total, err := u.cards.Count(ctx, repository.NoTX, f)
	if err != nil {
		return nil, err
	}
	return &CardPage{Cards: cards, Total: total, Page: page, Limit: limit}, nil
}

func (u *cardUC) Export(ctx context.Context, f model.CardFilter) ([]*model.Card, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Offset = 0
	f.Limit = maxExportRows
	return u.cards.List(ctx, repository.NoTX, f)
}

func (u *cardUC) Get(ctx context.Context, id string) (*model.Card, error) {
	return u.cards.FindByID(ctx, repository.NoTX, id)
}

func (u *cardUC) Delete(ctx context.Context, id string) error {
	err := u.cards.Delete(ctx, repository.NoTX, id)
	u.record(ctx, "delete", id, err)
	return err
}

func (u *cardUC) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no card ids given", domain.ErrInvalidArgument)
	}
	n, err := u.cards.DeleteMany(ctx, repository.NoTX, ids)
	u.record(ctx, "batch_delete", fmt.Sprintf("%d ids", len(ids)), err)
	return n, err
}

func (u *cardUC) Disable(ctx context.Context, id string) error {
	card, err := u.cards.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return err
	}
	if card.Status == model.CardStatusDisabled {
		return domain.ErrCardAlreadyOff
	}
	err = u.cards.Disable(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrConflict) {
		err = domain.ErrCardAlreadyOff
	}
	u.record(ctx, "disable", id, err)
	return err
}

func (u *cardUC) Enable(ctx context.Context, id string) error {
	card, err := u.cards.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return err
	}
	if card.Status != model.CardStatusDisabled {
		return domain.ErrCardNotDisabled
	}
	err = u.cards.Enable(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrConflict) {
		err = domain.ErrCardNotDisabled
	}
	u.record(ctx, "enable", id, err)
	return err
}

func (u *cardUC) Extend(ctx context.Context, id string, days int) (*model.Card, error) {
	if days < 1 || days > MaxExtendDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidArgument, MaxExtendDays)
	}
	card, err := u.cards.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if card.Type != model.CardTypeTime {
		return nil, domain.ErrCardTypeMismatch
	}
	updated, err := u.cards.Extend(ctx, repository.NoTX, id, days, u.now())
	if errors.Is(err, domain.ErrConflict) {
		err = domain.ErrCardTypeMismatch
	}
	u.record(ctx, "extend", id, err)
	return updated, err
}

func (u *cardUC) AddCount(ctx context.Context, id string, n int) (*model.Card, error) {
	if n < 1 || n > MaxAddCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidArgument, MaxAddCount)
	}
	card, err := u.cards.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if card.Type != model.CardTypeCount {
		return nil, domain.ErrCardTypeMismatch
	}
	updated, err := u.cards.AddCount(ctx, repository.NoTX, id, n)
	if errors.Is(err, domain.ErrConflict) {
		err = domain.ErrCardTypeMismatch
	}
	u.record(ctx, "add_count", id, err)
	return updated, err
}

func (u *cardUC) Unbind(ctx context.Context, id string) error {
	card, err := u.cards.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return err
	}
	if !card.Bound() {
		return domain.ErrCardNotBound
	}
	err = u.cards.Unbind(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrConflict) {
		err = domain.ErrCardNotBound
	}
	u.record(ctx, "unbind", id, err)
	return err
}

func (u *cardUC) UpdateDevice(ctx context.Context, id, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return fmt.Errorf("%w: device_id is required", domain.ErrInvalidArgument)
	}
	if _, err := u.cards.FindByID(ctx, repository.NoTX, id); err != nil {
		return err
	}
	err := u.cards.UpdateDevice(ctx, repository.NoTX, id, deviceID)
	u.record(ctx, "update_device", id, err)
	return err
}

func (u *cardUC) record(ctx context.Context, action, target string, err error) {
	log := logging.With(ctx, u.log)
	if err != nil {
		metrics.IncAdminAction(action, "error")
		log.Warn().Err(err).Str("action", action).Str("target", target).Msg("card admin action failed")
		return
	}
	metrics.IncAdminAction(action, "ok")
	log.Info().Str("action", action).Str("target", target).Msg("card admin action")
}
