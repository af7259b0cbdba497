package sqlite

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// GetMarketplaceStats aggregates platform-wide numbers. Money sums are
// recomputed from the stored decimal strings so they stay exact.
func (s *Store) GetMarketplaceStats(ctx context.Context) (storage.MarketplaceStats, error) {
	if err := ctx.Err(); err != nil {
		return storage.MarketplaceStats{}, err
	}
	if err := s.ready(); err != nil {
		return storage.MarketplaceStats{}, err
	}

	var stats storage.MarketplaceStats
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT
		   (SELECT COUNT(*) FROM listings),
		   (SELECT COUNT(*) FROM listings WHERE status = 'active'),
		   (SELECT COUNT(*) FROM listings WHERE status = 'sold'),
		   (SELECT COUNT(*) FROM transactions),
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM users WHERE is_verified_seller = 1),
		   (SELECT COUNT(*) FROM listings WHERE verification_status = 'pending' AND status != 'draft')`,
	)
	err := row.Scan(
		&stats.TotalListings,
		&stats.ActiveListings,
		&stats.SoldListings,
		&stats.TotalTransactions,
		&stats.TotalUsers,
		&stats.VerifiedSellers,
		&stats.PendingVerification,
	)
	if err != nil {
		return storage.MarketplaceStats{}, fmt.Errorf("marketplace counts: %w", err)
	}

	stats.CompletedSalesValue = decimal.Zero
	stats.PlatformFeesEarned = decimal.Zero
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT amount, platform_fee FROM transactions WHERE status = 'completed'`,
	)
	if err != nil {
		return storage.MarketplaceStats{}, fmt.Errorf("completed sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var amount, fee string
		if err := rows.Scan(&amount, &fee); err != nil {
			return storage.MarketplaceStats{}, fmt.Errorf("scan completed sale: %w", err)
		}
		amountDec, err := parseDecimal(amount)
		if err != nil {
			return storage.MarketplaceStats{}, err
		}
		feeDec, err := parseDecimal(fee)
		if err != nil {
			return storage.MarketplaceStats{}, err
		}
		stats.CompletedSalesValue = stats.CompletedSalesValue.Add(amountDec)
		stats.PlatformFeesEarned = stats.PlatformFeesEarned.Add(feeDec)
	}
	if err := rows.Err(); err != nil {
		return storage.MarketplaceStats{}, fmt.Errorf("iterate completed sales: %w", err)
	}
	return stats, nil
}
