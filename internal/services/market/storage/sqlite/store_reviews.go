package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

const reviewColumns = `id, listing_id, seller_id, reviewer_id, transaction_id,
	rating, title, content, is_verified_purchase, created_at`

// CreateReview inserts one review row.
func (s *Store) CreateReview(ctx context.Context, review domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(review.ID) == "" {
		return fmt.Errorf("review id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO reviews (
		   id, listing_id, seller_id, reviewer_id, transaction_id,
		   rating, title, content, is_verified_purchase, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.ListingID,
		review.SellerID,
		review.ReviewerID,
		review.TransactionID,
		review.Rating,
		review.Title,
		review.Content,
		review.IsVerifiedPurchase,
		toMillis(review.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ListReviewsForListing returns a listing's reviews, newest first.
func (s *Store) ListReviewsForListing(ctx context.Context, listingID string, limit, offset int) ([]domain.Review, error) {
	return s.listReviews(ctx, "listing_id", listingID, limit, offset)
}

// ListReviewsForSeller returns a seller's reviews, newest first.
func (s *Store) ListReviewsForSeller(ctx context.Context, sellerID string, limit, offset int) ([]domain.Review, error) {
	return s.listReviews(ctx, "seller_id", sellerID, limit, offset)
}

func (s *Store) listReviews(ctx context.Context, column, value string, limit, offset int) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE `+column+` = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		value, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews by %s: %w", column, err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

// RecomputeListingRating rescans the listing's reviews and rewrites its
// aggregates. A full rescan keeps the counters correct no matter how many
// times it runs.
func (s *Store) RecomputeListingRating(ctx context.Context, listingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE listings SET
		   average_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE listing_id = ?), 0),
		   total_reviews = (SELECT COUNT(*) FROM reviews WHERE listing_id = ?)
		 WHERE id = ?`,
		listingID, listingID, listingID,
	)
	if err != nil {
		return fmt.Errorf("recompute listing rating: %w", err)
	}
	return nil
}

// RecomputeSellerRating rescans a seller's reviews and rewrites the profile
// aggregates.
func (s *Store) RecomputeSellerRating(ctx context.Context, sellerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET
		   average_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE seller_id = ?), 0),
		   total_reviews = (SELECT COUNT(*) FROM reviews WHERE seller_id = ?)
		 WHERE id = ?`,
		sellerID, sellerID, sellerID,
	)
	if err != nil {
		return fmt.Errorf("recompute seller rating: %w", err)
	}
	return nil
}

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		review    domain.Review
		verified  sql.NullBool
		createdAt int64
	)
	err := row.Scan(
		&review.ID,
		&review.ListingID,
		&review.SellerID,
		&review.ReviewerID,
		&review.TransactionID,
		&review.Rating,
		&review.Title,
		&review.Content,
		&verified,
		&createdAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	review.IsVerifiedPurchase = verified.Valid && verified.Bool
	review.CreatedAt = fromMillis(createdAt)
	return review, nil
}
