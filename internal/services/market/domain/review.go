package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/id"
)

const (
	// MinRating and MaxRating bound the review rating scale.
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrReviewInvalidRating indicates a rating outside 1-5.
	ErrReviewInvalidRating = apperrors.New(apperrors.CodeReviewInvalidRating, "rating must be between 1 and 5")
	// ErrReviewTargetMissing indicates a review with neither listing nor seller target.
	ErrReviewTargetMissing = apperrors.New(apperrors.CodeReviewTargetMissing, "review must target a listing or a seller")
)

// Review is a rating plus optional text targeting a listing, a seller, or
// both. A review optionally links the transaction that proves the purchase.
type Review struct {
	ID            string
	ListingID     string
	SellerID      string
	ReviewerID    string
	TransactionID string
	Rating        int
	Title         string
	Content       string
	// IsVerifiedPurchase is true only when the linked transaction exists,
	// belongs to the reviewer as buyer, and completed.
	IsVerifiedPurchase bool
	CreatedAt          time.Time
}

// CreateReviewInput describes a review submission.
type CreateReviewInput struct {
	ListingID     string
	SellerID      string
	ReviewerID    string
	TransactionID string
	Rating        int
	Title         string
	Content       string
}

// CreateReview validates and builds a review. Verified-purchase resolution
// happens in the service, which has store access to the linked transaction.
func CreateReview(input CreateReviewInput, now func() time.Time, idGenerator func() (string, error)) (Review, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.ListingID = strings.TrimSpace(input.ListingID)
	input.SellerID = strings.TrimSpace(input.SellerID)
	input.ReviewerID = strings.TrimSpace(input.ReviewerID)
	input.TransactionID = strings.TrimSpace(input.TransactionID)

	if input.ListingID == "" && input.SellerID == "" {
		return Review{}, ErrReviewTargetMissing
	}
	if input.Rating < MinRating || input.Rating > MaxRating {
		return Review{}, ErrReviewInvalidRating
	}

	reviewID, err := idGenerator()
	if err != nil {
		return Review{}, fmt.Errorf("generate review id: %w", err)
	}

	return Review{
		ID:            reviewID,
		ListingID:     input.ListingID,
		SellerID:      input.SellerID,
		ReviewerID:    input.ReviewerID,
		TransactionID: input.TransactionID,
		Rating:        input.Rating,
		Title:         strings.TrimSpace(input.Title),
		Content:       input.Content,
		CreatedAt:     now().UTC(),
	}, nil
}

// VerifiedPurchase reports whether tx proves reviewer bought the item.
func VerifiedPurchase(tx Transaction, reviewerID string) bool {
	return tx.BuyerID == reviewerID && tx.Status == TransactionStatusCompleted
}
