package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
)

// AddFavorite inserts a user/listing pair and bumps the listing counter.
// Repeats change nothing: the insert is ignored and the counter only moves
// when a row was actually added.
func (s *Store) AddFavorite(ctx context.Context, favorite domain.Favorite) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	dbTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add favorite: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	result, err := dbTx.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO favorites (user_id, listing_id, created_at) VALUES (?, ?, ?)`,
		favorite.UserID,
		favorite.ListingID,
		toMillis(favorite.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert favorite rows affected: %w", err)
	}
	if inserted > 0 {
		if _, err := dbTx.ExecContext(
			ctx,
			`UPDATE listings SET favorite_count = favorite_count + 1 WHERE id = ?`,
			favorite.ListingID,
		); err != nil {
			return fmt.Errorf("bump favorite count: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite deletes the pair and decrements the counter, clamped at
// zero. Removing an absent pair is a no-op.
func (s *Store) RemoveFavorite(ctx context.Context, userID, listingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	dbTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove favorite: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	result, err := dbTx.ExecContext(
		ctx,
		`DELETE FROM favorites WHERE user_id = ? AND listing_id = ?`,
		userID, listingID,
	)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete favorite rows affected: %w", err)
	}
	if deleted > 0 {
		result, err := dbTx.ExecContext(
			ctx,
			`UPDATE listings SET favorite_count = favorite_count - 1
			 WHERE id = ? AND favorite_count > 0`,
			listingID,
		)
		if err != nil {
			return fmt.Errorf("drop favorite count: %w", err)
		}
		dropped, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("drop favorite count rows affected: %w", err)
		}
		if dropped == 0 {
			// Counter already at zero while a favorite row existed.
			log.Printf("favorite count for listing %s was already zero on remove", listingID)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit remove favorite: %w", err)
	}
	return nil
}

// IsFavorited reports whether the user saved the listing.
func (s *Store) IsFavorited(ctx context.Context, userID, listingID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}

	var one int
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT 1 FROM favorites WHERE user_id = ? AND listing_id = ?`,
		userID, listingID,
	)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return true, nil
}

// ListFavoritesForUser returns the listings a user saved, most recently
// saved first.
func (s *Store) ListFavoritesForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT l.id, l.seller_id, l.title, l.description, l.artist_name, l.artist_bio,
		        l.medium, l.style, l.dimensions, l.year_created, l.price, l.currency,
		        l.status, l.verification_status, l.ai_confidence_score, l.view_count,
		        l.favorite_count, l.average_rating, l.total_reviews, l.created_at, l.updated_at
		 FROM favorites f
		 JOIN listings l ON l.id = f.listing_id
		 WHERE f.user_id = ?
		 ORDER BY f.created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan favorite listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return listings, nil
}
