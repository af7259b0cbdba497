// Package storage defines persistence contracts for marketplace state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict indicates a conditional update found the record in a
	// different state than required.
	ErrConflict = errors.New("record state conflict")
)

// ListingOrder selects the sort applied to listing queries.
type ListingOrder string

const (
	OrderNewest    ListingOrder = "newest"
	OrderPriceAsc  ListingOrder = "price_asc"
	OrderPriceDesc ListingOrder = "price_desc"
	OrderPopular   ListingOrder = "popular"
)

// ListingFilter narrows listing queries. Zero values mean "no constraint".
type ListingFilter struct {
	Status       domain.ListingStatus
	SellerID     string
	Medium       string
	Style        string
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	VerifiedOnly bool
	Search       string

	OrderBy ListingOrder
	Limit   int
	Offset  int
}

// ListingStore persists listings and their lifecycle state.
type ListingStore interface {
	CreateListing(ctx context.Context, listing domain.Listing) error
	GetListing(ctx context.Context, id string) (domain.Listing, error)
	// UpdateListing rewrites the mutable listing fields, guarded by the
	// status the caller read. ErrConflict when the row's status moved in
	// the meantime.
	UpdateListing(ctx context.Context, listing domain.Listing, expected domain.ListingStatus) error
	ListListings(ctx context.Context, filter ListingFilter) ([]domain.Listing, error)

	// IncrementViewCount adds one to the listing's view counter. Missing
	// listings return ErrNotFound.
	IncrementViewCount(ctx context.Context, id string) error

	// ReserveListing moves an active listing to reserved. It returns
	// ErrConflict when the listing is not active, which is how exactly one
	// of two concurrent purchase attempts wins.
	ReserveListing(ctx context.Context, id string, updatedAt time.Time) error

	// ReleaseListing moves a reserved listing back to active after a
	// cancellation or expiry.
	ReleaseListing(ctx context.Context, id string, updatedAt time.Time) error

	// SetVerification records an admin verification outcome and optional
	// confidence score.
	SetVerification(ctx context.Context, id string, status domain.VerificationStatus, confidence *float64, updatedAt time.Time) error

	// ListPendingVerification returns listings awaiting a verification
	// decision, oldest first.
	ListPendingVerification(ctx context.Context, limit, offset int) ([]domain.Listing, error)
}

// TransactionStore persists purchase transactions. CreateTransaction runs in
// the same database transaction as the listing reservation so a crash cannot
// leave a reserved listing without a live purchase.
type TransactionStore interface {
	// CreateTransaction reserves the listing and inserts the transaction
	// atomically. ErrConflict reports a listing that is not purchasable or
	// already carries a live transaction.
	CreateTransaction(ctx context.Context, tx domain.Transaction) error
	GetTransaction(ctx context.Context, id string) (domain.Transaction, error)

	// UpdateTransaction persists a state change guarded by the expected
	// current status; ErrConflict reports a concurrent change.
	UpdateTransaction(ctx context.Context, tx domain.Transaction, expectedStatus domain.TransactionStatus) error

	// CompleteTransaction applies the delivery confirmation as one unit:
	// the transaction row, the listing moving to sold, both parties'
	// counters, and a sale provenance event.
	CompleteTransaction(ctx context.Context, tx domain.Transaction, saleEvent domain.ProvenanceEvent) error

	// CancelTransaction updates the transaction and releases its listing
	// back to active as one unit.
	CancelTransaction(ctx context.Context, tx domain.Transaction, expectedStatus domain.TransactionStatus) error

	// ListTransactionsForUser returns transactions where the user is buyer
	// or seller, newest first.
	ListTransactionsForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error)

	// ListStalePending returns pending transactions created before cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error)
}

// ReviewStore persists reviews and refreshes the denormalized rating
// aggregates they feed.
type ReviewStore interface {
	CreateReview(ctx context.Context, review domain.Review) error
	ListReviewsForListing(ctx context.Context, listingID string, limit, offset int) ([]domain.Review, error)
	ListReviewsForSeller(ctx context.Context, sellerID string, limit, offset int) ([]domain.Review, error)

	// RecomputeListingRating rescans the listing's reviews and rewrites
	// its average and count. Safe to repeat.
	RecomputeListingRating(ctx context.Context, listingID string) error
	// RecomputeSellerRating does the same for a seller's profile.
	RecomputeSellerRating(ctx context.Context, sellerID string) error
}

// FavoriteStore persists user/listing favorite pairs and keeps the listing
// favorite counter in step.
type FavoriteStore interface {
	// AddFavorite inserts the pair; repeats are no-ops and do not bump the
	// counter again.
	AddFavorite(ctx context.Context, favorite domain.Favorite) error
	// RemoveFavorite deletes the pair; removing an absent pair is a no-op.
	RemoveFavorite(ctx context.Context, userID, listingID string) error
	IsFavorited(ctx context.Context, userID, listingID string) (bool, error)
	ListFavoritesForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Listing, error)
}

// UserStore persists marketplace user profiles.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	// EnsureSeller marks a user as a seller, creating the profile row when
	// none exists yet.
	EnsureSeller(ctx context.Context, id string, now time.Time) error
	// SetVerifiedSeller flips the seller trust badge.
	SetVerifiedSeller(ctx context.Context, id string, verified bool, updatedAt time.Time) error
}

// ProvenanceStore persists the append-only listing history.
type ProvenanceStore interface {
	CreateProvenanceEvent(ctx context.Context, event domain.ProvenanceEvent) error
	ListProvenanceForListing(ctx context.Context, listingID string) ([]domain.ProvenanceEvent, error)
}

// EndorsementStore persists expert endorsements.
type EndorsementStore interface {
	CreateEndorsement(ctx context.Context, endorsement domain.Endorsement) error
	ListEndorsementsForListing(ctx context.Context, listingID string) ([]domain.Endorsement, error)
}

// MarketplaceStats aggregates platform-wide numbers for the admin dashboard.
type MarketplaceStats struct {
	TotalListings       int64
	ActiveListings      int64
	SoldListings        int64
	TotalTransactions   int64
	CompletedSalesValue decimal.Decimal
	PlatformFeesEarned  decimal.Decimal
	TotalUsers          int64
	VerifiedSellers     int64
	PendingVerification int64
}

// StatsStore reports aggregate marketplace numbers.
type StatsStore interface {
	GetMarketplaceStats(ctx context.Context) (MarketplaceStats, error)
}

// Store aggregates every persistence contract the marketplace needs.
type Store interface {
	ListingStore
	TransactionStore
	ReviewStore
	FavoriteStore
	UserStore
	ProvenanceStore
	EndorsementStore
	StatsStore

	Close() error
}
