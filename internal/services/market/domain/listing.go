// Package domain holds the marketplace entities and the pure state-machine
// rules for listings, transactions, reviews, favorites, and provenance.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/id"
)

// ListingStatus describes the sale lifecycle of a listing.
type ListingStatus string

const (
	// ListingStatusDraft indicates the listing is not yet published.
	ListingStatusDraft ListingStatus = "draft"
	// ListingStatusActive indicates the listing is purchasable.
	ListingStatusActive ListingStatus = "active"
	// ListingStatusReserved indicates an in-flight transaction holds the listing.
	ListingStatusReserved ListingStatus = "reserved"
	// ListingStatusSold indicates a completed sale.
	ListingStatusSold ListingStatus = "sold"
	// ListingStatusArchived indicates the seller withdrew the listing.
	ListingStatusArchived ListingStatus = "archived"
)

// VerificationStatus describes the trust-badge review state of a listing.
// It is orthogonal to the sale lifecycle.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
)

// DefaultCurrency is applied when a listing omits its currency.
const DefaultCurrency = "USD"

var (
	// ErrListingTitleEmpty indicates a missing listing title.
	ErrListingTitleEmpty = apperrors.New(apperrors.CodeListingTitleEmpty, "listing title is required")
	// ErrListingArtistEmpty indicates a missing artist name.
	ErrListingArtistEmpty = apperrors.New(apperrors.CodeListingArtistEmpty, "artist name is required")
	// ErrListingInvalidPrice indicates a non-positive price.
	ErrListingInvalidPrice = apperrors.New(apperrors.CodeListingInvalidPrice, "listing price must be greater than zero")
	// ErrListingInvalidStatusTransition indicates a disallowed lifecycle change.
	ErrListingInvalidStatusTransition = apperrors.New(apperrors.CodeListingInvalidStatusTransition, "listing status transition is not allowed")
	// ErrListingReservedDisallowsArchive indicates an archive attempt mid-reservation.
	ErrListingReservedDisallowsArchive = apperrors.New(apperrors.CodeListingReservedDisallowsArchive, "listing cannot be archived while reserved")
)

// Listing represents one sellable artwork.
type Listing struct {
	ID          string
	SellerID    string
	Title       string
	Description string
	ArtistName  string
	ArtistBio   string
	Medium      string
	Style       string
	Dimensions  string
	YearCreated int

	Price    decimal.Decimal
	Currency string

	Status             ListingStatus
	VerificationStatus VerificationStatus
	// AIConfidenceScore is 0-100; nil until verification refreshes it.
	AIConfidenceScore *float64

	// Denormalized counters. The source of truth is the favorite and review
	// tables; these columns are a cache refreshed on every relevant write.
	ViewCount     int64
	FavoriteCount int64
	AverageRating float64
	TotalReviews  int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateListingInput describes the attributes needed to create a listing.
type CreateListingInput struct {
	SellerID    string
	Title       string
	Description string
	ArtistName  string
	ArtistBio   string
	Medium      string
	Style       string
	Dimensions  string
	YearCreated int
	Price       decimal.Decimal
	Currency    string
}

// CreateListing creates a draft listing with a generated ID and timestamps.
func CreateListing(input CreateListingInput, now func() time.Time, idGenerator func() (string, error)) (Listing, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateListingInput(input)
	if err != nil {
		return Listing{}, err
	}

	listingID, err := idGenerator()
	if err != nil {
		return Listing{}, fmt.Errorf("generate listing id: %w", err)
	}

	createdAt := now().UTC()
	return Listing{
		ID:                 listingID,
		SellerID:           normalized.SellerID,
		Title:              normalized.Title,
		Description:        normalized.Description,
		ArtistName:         normalized.ArtistName,
		ArtistBio:          normalized.ArtistBio,
		Medium:             normalized.Medium,
		Style:              normalized.Style,
		Dimensions:         normalized.Dimensions,
		YearCreated:        normalized.YearCreated,
		Price:              normalized.Price,
		Currency:           normalized.Currency,
		Status:             ListingStatusDraft,
		VerificationStatus: VerificationStatusPending,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}, nil
}

// NormalizeCreateListingInput trims and validates listing input attributes.
func NormalizeCreateListingInput(input CreateListingInput) (CreateListingInput, error) {
	input.SellerID = strings.TrimSpace(input.SellerID)
	input.Title = strings.TrimSpace(input.Title)
	input.ArtistName = strings.TrimSpace(input.ArtistName)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))

	if input.Title == "" {
		return CreateListingInput{}, ErrListingTitleEmpty
	}
	if input.ArtistName == "" {
		return CreateListingInput{}, ErrListingArtistEmpty
	}
	if !input.Price.IsPositive() {
		return CreateListingInput{}, ErrListingInvalidPrice
	}
	if input.Currency == "" {
		input.Currency = DefaultCurrency
	}
	return input, nil
}

// TransitionListingStatus validates a seller/admin driven lifecycle change.
// Reservation moves (active <-> reserved, reserved/active -> sold) belong to
// the transaction engine and go through the store's conditional updates, not
// through this function.
func TransitionListingStatus(listing Listing, target ListingStatus, now func() time.Time) (Listing, error) {
	if now == nil {
		now = time.Now
	}
	if !isListingStatusTransitionAllowed(listing.Status, target) {
		if listing.Status == ListingStatusReserved && target == ListingStatusArchived {
			return Listing{}, ErrListingReservedDisallowsArchive
		}
		return Listing{}, apperrors.WithMetadata(
			apperrors.CodeListingInvalidStatusTransition,
			fmt.Sprintf("listing status transition not allowed: %s -> %s", listing.Status, target),
			map[string]string{"FromStatus": string(listing.Status), "ToStatus": string(target)},
		)
	}

	updated := listing
	updated.Status = target
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// isListingStatusTransitionAllowed reports whether a seller-driven lifecycle
// change is permitted.
func isListingStatusTransitionAllowed(from, to ListingStatus) bool {
	switch from {
	case ListingStatusDraft:
		return to == ListingStatusActive || to == ListingStatusArchived
	case ListingStatusActive:
		return to == ListingStatusArchived
	case ListingStatusArchived:
		return to == ListingStatusActive
	default:
		return false
	}
}

// ValidVerificationOutcome reports whether status is an admin-settable
// verification outcome.
func ValidVerificationOutcome(status VerificationStatus) bool {
	return status == VerificationStatusVerified || status == VerificationStatusRejected
}
