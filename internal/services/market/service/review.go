package service

import (
	"context"
	"errors"
	"log"

	"github.com/ryanvernados/artmatch-ai/internal/platform/grpc/pagination"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// Reviews implements review submission and the rating aggregates it feeds.
type Reviews struct {
	deps Deps
}

// NewReviews creates the review service.
func NewReviews(deps Deps) *Reviews {
	return &Reviews{deps: deps.normalize()}
}

// Create submits a review as the actor. The verified-purchase badge is set
// only when the linked transaction exists, belongs to the actor as buyer,
// and completed; a dangling transaction reference just leaves the badge off.
// Rating aggregates are refreshed after the write; a failed refresh is
// logged, not surfaced, since the rescan heals on the next review.
func (r *Reviews) Create(ctx context.Context, actor domain.Actor, input domain.CreateReviewInput) (domain.Review, error) {
	input.ReviewerID = actor.UserID
	review, err := domain.CreateReview(input, r.deps.Now, r.deps.NewID)
	if err != nil {
		return domain.Review{}, err
	}

	if review.ListingID != "" {
		if _, err := r.deps.Store.GetListing(ctx, review.ListingID); err != nil {
			return domain.Review{}, storeError(err, "listing not found")
		}
	}
	if review.SellerID != "" {
		if _, err := r.deps.Store.GetUser(ctx, review.SellerID); err != nil {
			return domain.Review{}, storeError(err, "seller not found")
		}
	}

	if review.TransactionID != "" {
		tx, err := r.deps.Store.GetTransaction(ctx, review.TransactionID)
		switch {
		case err == nil:
			review.IsVerifiedPurchase = domain.VerifiedPurchase(tx, actor.UserID)
		case errors.Is(err, storage.ErrNotFound):
		default:
			return domain.Review{}, storeError(err, "transaction not found")
		}
	}

	if err := r.deps.Store.CreateReview(ctx, review); err != nil {
		return domain.Review{}, storeError(err, "review not found")
	}

	if review.ListingID != "" {
		if err := r.deps.Store.RecomputeListingRating(ctx, review.ListingID); err != nil {
			log.Printf("recompute listing rating for %s: %v", review.ListingID, err)
		}
	}
	if review.SellerID != "" {
		if err := r.deps.Store.RecomputeSellerRating(ctx, review.SellerID); err != nil {
			log.Printf("recompute seller rating for %s: %v", review.SellerID, err)
		}
	}
	return review, nil
}

// ListForListing returns a listing's reviews, newest first.
func (r *Reviews) ListForListing(ctx context.Context, listingID string, pageSize, offset int) ([]domain.Review, error) {
	reviews, err := r.deps.Store.ListReviewsForListing(
		ctx,
		listingID,
		pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{Default: defaultPageSize, Max: maxPageSize}),
		pagination.ClampOffset(offset),
	)
	if err != nil {
		return nil, storeError(err, "review not found")
	}
	return reviews, nil
}

// ListForSeller returns a seller's reviews, newest first.
func (r *Reviews) ListForSeller(ctx context.Context, sellerID string, pageSize, offset int) ([]domain.Review, error) {
	reviews, err := r.deps.Store.ListReviewsForSeller(
		ctx,
		sellerID,
		pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{Default: defaultPageSize, Max: maxPageSize}),
		pagination.ClampOffset(offset),
	)
	if err != nil {
		return nil, storeError(err, "review not found")
	}
	return reviews, nil
}
