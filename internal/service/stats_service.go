package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// StatsService computes the admin sales rollup
type StatsService struct {
	store  *store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(store *store.Store, cache *redisclient.Client) *StatsService {
	return &StatsService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// SalesStats aggregates non-cancelled orders per category plus a global
// summary. The rollup is cached; the order worker drops the key whenever an
// order event arrives.
func (s *StatsService) SalesStats(ctx context.Context) (*models.SalesStats, error) {
	ctx, span := util.StartSpan(ctx, "StatsService.SalesStats")
	defer span.End()

	var cached models.SalesStats
	ok, err := s.cache.GetJSON(ctx, redisclient.SalesStatsKey, &cached)
	if err != nil {
		s.logger.Warn("Stats cache read failed", zap.Error(err))
	}
	if ok {
		return &cached, nil
	}

	byCategory, err := s.store.SalesByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to roll up sales by category: %w", err)
	}
	summary, err := s.store.SalesSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute sales summary: %w", err)
	}

	stats := &models.SalesStats{
		ByCategory: byCategory,
		Summary:    summary,
	}

	if err := s.cache.SetJSON(ctx, redisclient.SalesStatsKey, stats, redisclient.SalesStatsTTL); err != nil {
		s.logger.Warn("Stats cache write failed", zap.Error(err))
	}
	return stats, nil
}
