package service

import (
	"context"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/grpc/pagination"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
)

// Verification implements the admin trust workflows: listing authenticity
// decisions and the seller badge.
type Verification struct {
	deps Deps
}

// NewVerification creates the verification service.
func NewVerification(deps Deps) *Verification {
	return &Verification{deps: deps.normalize()}
}

// VerifyListing records an authenticity decision for a listing. Confidence,
// when given, is a 0-100 score.
func (v *Verification) VerifyListing(ctx context.Context, actor domain.Actor, listingID string, outcome domain.VerificationStatus, confidence *float64) (domain.Listing, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Listing{}, err
	}
	if !domain.ValidVerificationOutcome(outcome) {
		return domain.Listing{}, apperrors.WithMetadata(
			apperrors.CodeVerificationInvalidOutcome,
			"verification outcome must be verified or rejected",
			map[string]string{"Outcome": string(outcome)},
		)
	}
	if confidence != nil && (*confidence < 0 || *confidence > 100) {
		return domain.Listing{}, apperrors.New(apperrors.CodeVerificationInvalidConfidence, "confidence must be between 0 and 100")
	}
	// The score qualifies a positive decision only.
	if outcome != domain.VerificationStatusVerified {
		confidence = nil
	}

	if err := v.deps.Store.SetVerification(ctx, listingID, outcome, confidence, v.deps.Now().UTC()); err != nil {
		return domain.Listing{}, storeError(err, "listing not found")
	}
	listing, err := v.deps.Store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Listing{}, storeError(err, "listing not found")
	}
	return listing, nil
}

// PendingListings returns published listings awaiting a verification
// decision, oldest first.
func (v *Verification) PendingListings(ctx context.Context, actor domain.Actor, pageSize, offset int) ([]domain.Listing, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	listings, err := v.deps.Store.ListPendingVerification(
		ctx,
		pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{Default: defaultPageSize, Max: maxPageSize}),
		pagination.ClampOffset(offset),
	)
	if err != nil {
		return nil, storeError(err, "listing not found")
	}
	return listings, nil
}

// VerifySeller grants or revokes a seller's trust badge.
func (v *Verification) VerifySeller(ctx context.Context, actor domain.Actor, sellerID string, verified bool) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := v.deps.Store.SetVerifiedSeller(ctx, sellerID, verified, v.deps.Now().UTC()); err != nil {
		return storeError(err, "user not found")
	}
	return nil
}
