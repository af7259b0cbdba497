package service

import (
	"context"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// Stats exposes the admin dashboard aggregates.
type Stats struct {
	deps Deps
}

// NewStats creates the stats service.
func NewStats(deps Deps) *Stats {
	return &Stats{deps: deps.normalize()}
}

// Marketplace returns platform-wide numbers. Admin only.
func (s *Stats) Marketplace(ctx context.Context, actor domain.Actor) (storage.MarketplaceStats, error) {
	if err := requireAdmin(actor); err != nil {
		return storage.MarketplaceStats{}, err
	}
	stats, err := s.deps.Store.GetMarketplaceStats(ctx)
	if err != nil {
		return storage.MarketplaceStats{}, storeError(err, "stats unavailable")
	}
	return stats, nil
}
