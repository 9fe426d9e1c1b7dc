package scheduler

import (
	"context"
	"fmt"

	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/infra/metrics"
)

type CardCounter interface {
	CardCounts(ctx context.Context) (model.CardCounts, error)
}

// PoolStats reports total, idle and acquired connections.
type PoolStats func() (total, idle, acquired int32)

// StatsSnapshot refreshes the cards_by_status and db_pool_stats gauges.
type StatsSnapshot struct {
	cards CardCounter
	pool  PoolStats
}

func NewStatsSnapshot(cards CardCounter, pool PoolStats) *StatsSnapshot {
	return &StatsSnapshot{cards: cards, pool: pool}
}

func (j *StatsSnapshot) Name() string { return "stats_snapshot" }

func (j *StatsSnapshot) Run(ctx context.Context) error {
	if j.pool != nil {
		metrics.SetDBPoolStats(j.pool())
	}
	c, err := j.cards.CardCounts(ctx)
	if err != nil {
		return fmt.Errorf("count cards: %w", err)
	}
	metrics.SetCardsByStatus(c)
	return nil
}
