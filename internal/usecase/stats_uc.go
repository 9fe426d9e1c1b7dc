package usecase

import (
	"context"
	"fmt"
	"time"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

const (
	recentStatsWindow = 7 * 24 * time.Hour
	DefaultTrendDays  = 7
	MaxTrendDays      = 90
)

// Overview is the admin dashboard summary.
type Overview struct {
	Cards     model.CardCounts
	UsageRate decimal.Decimal // percent of cards used, one decimal place
	APIKeys   model.APIKeyCounts
	Recent    model.RecentCardCounts
}

type StatsUseCase interface {
	Overview(ctx context.Context) (*Overview, error)
	// Trends returns one bucket per day, oldest first, ending today.
	Trends(ctx context.Context, days int) ([]model.DailyCardCount, error)
	CardCounts(ctx context.Context) (model.CardCounts, error)
}

type statsUC struct {
	cards repository.CardAdminRepository
	keys  repository.APIKeyRepository
	now   func() time.Time

	log *zerolog.Logger
}

func NewStatsUseCase(cards repository.CardAdminRepository, keys repository.APIKeyRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{cards: cards, keys: keys, now: time.Now, log: logger}
}

// UsageRate is used/total as a percentage rounded to one decimal.
func UsageRate(c model.CardCounts) decimal.Decimal {
	if c.Total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(c.Used).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(c.Total)).
		Round(1)
}

func (s *statsUC) Overview(ctx context.Context) (*Overview, error) {
	counts, err := s.cards.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	now := s.now()
	keys, err := s.keys.Stats(ctx, repository.NoTX, now.Add(-apiKeyRecentWindow))
	if err != nil {
		return nil, err
	}
	recent, err := s.cards.CountRecent(ctx, repository.NoTX, now.Add(-recentStatsWindow))
	if err != nil {
		return nil, err
	}
	return &Overview{
		Cards:     counts,
		UsageRate: UsageRate(counts),
		APIKeys:   keys,
		Recent:    recent,
	}, nil
}

func (s *statsUC) Trends(ctx context.Context, days int) ([]model.DailyCardCount, error) {
	if days == 0 {
		days = DefaultTrendDays
	}
	if days < 1 || days > MaxTrendDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidArgument, MaxTrendDays)
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.cards.DailyTrend(ctx, repository.NoTX, today.AddDate(0, 0, -(days-1)), days)
}

func (s *statsUC) CardCounts(ctx context.Context) (model.CardCounts, error) {
	return s.cards.CountByStatus(ctx, repository.NoTX)
}
