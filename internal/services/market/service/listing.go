package service

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/grpc/pagination"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// Listings implements the listing lifecycle: create, edit, publish, archive,
// and browse.
type Listings struct {
	deps Deps
}

// NewListings creates the listing service.
func NewListings(deps Deps) *Listings {
	return &Listings{deps: deps.normalize()}
}

// Create makes a draft listing owned by the actor.
func (l *Listings) Create(ctx context.Context, actor domain.Actor, input domain.CreateListingInput) (domain.Listing, error) {
	input.SellerID = actor.UserID
	listing, err := domain.CreateListing(input, l.deps.Now, l.deps.NewID)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := l.deps.Store.CreateListing(ctx, listing); err != nil {
		return domain.Listing{}, storeError(err, "listing not found")
	}
	if err := l.deps.Store.EnsureSeller(ctx, actor.UserID, listing.CreatedAt); err != nil {
		log.Printf("mark %s as seller: %v", actor.UserID, err)
	}
	return listing, nil
}

// UpdateListingInput carries the editable listing fields. Nil pointers leave
// the current value in place.
type UpdateListingInput struct {
	Title       *string
	Description *string
	ArtistBio   *string
	Medium      *string
	Style       *string
	Dimensions  *string
	YearCreated *int
	Price       *decimal.Decimal
}

// Update edits a listing's attributes. Only the owner or an admin may edit,
// and only while the listing is not held by a live purchase or sold.
func (l *Listings) Update(ctx context.Context, actor domain.Actor, listingID string, input UpdateListingInput) (domain.Listing, error) {
	listing, err := l.ownedListing(ctx, actor, listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	if listing.Status == domain.ListingStatusReserved || listing.Status == domain.ListingStatusSold {
		return domain.Listing{}, apperrors.WithMetadata(
			apperrors.CodeListingInvalidStatusTransition,
			"listing cannot be edited in its current state",
			map[string]string{"Status": string(listing.Status)},
		)
	}

	if input.Title != nil {
		listing.Title = *input.Title
	}
	if input.Description != nil {
		listing.Description = *input.Description
	}
	if input.ArtistBio != nil {
		listing.ArtistBio = *input.ArtistBio
	}
	if input.Medium != nil {
		listing.Medium = *input.Medium
	}
	if input.Style != nil {
		listing.Style = *input.Style
	}
	if input.Dimensions != nil {
		listing.Dimensions = *input.Dimensions
	}
	if input.YearCreated != nil {
		listing.YearCreated = *input.YearCreated
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return domain.Listing{}, domain.ErrListingInvalidPrice
		}
		listing.Price = *input.Price
	}
	if _, err := domain.NormalizeCreateListingInput(domain.CreateListingInput{
		SellerID:   listing.SellerID,
		Title:      listing.Title,
		ArtistName: listing.ArtistName,
		Price:      listing.Price,
		Currency:   listing.Currency,
	}); err != nil {
		return domain.Listing{}, err
	}

	listing.UpdatedAt = l.deps.Now().UTC()
	if err := l.deps.Store.UpdateListing(ctx, listing, listing.Status); err != nil {
		return domain.Listing{}, listingError(err)
	}
	return listing, nil
}

// Activate publishes a draft or archived listing.
func (l *Listings) Activate(ctx context.Context, actor domain.Actor, listingID string) (domain.Listing, error) {
	return l.transition(ctx, actor, listingID, domain.ListingStatusActive)
}

// Archive withdraws a listing from sale.
func (l *Listings) Archive(ctx context.Context, actor domain.Actor, listingID string) (domain.Listing, error) {
	return l.transition(ctx, actor, listingID, domain.ListingStatusArchived)
}

func (l *Listings) transition(ctx context.Context, actor domain.Actor, listingID string, target domain.ListingStatus) (domain.Listing, error) {
	listing, err := l.ownedListing(ctx, actor, listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	updated, err := domain.TransitionListingStatus(listing, target, l.deps.Now)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := l.deps.Store.UpdateListing(ctx, updated, listing.Status); err != nil {
		return domain.Listing{}, listingError(err)
	}
	return updated, nil
}

// listingError maps a lost listing write. A status that moved underneath
// the caller, typically a buyer reserving the piece, comes back as a
// transition conflict rather than clobbering the reservation.
func listingError(err error) error {
	if errors.Is(err, storage.ErrConflict) {
		return apperrors.New(apperrors.CodeListingInvalidStatusTransition, "listing status changed while saving")
	}
	return storeError(err, "listing not found")
}

func (l *Listings) ownedListing(ctx context.Context, actor domain.Actor, listingID string) (domain.Listing, error) {
	listing, err := l.deps.Store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Listing{}, storeError(err, "listing not found")
	}
	if listing.SellerID != actor.UserID && !actor.IsAdmin() {
		return domain.Listing{}, apperrors.New(apperrors.CodeNotListingOwner, "only the listing owner may do this")
	}
	return listing, nil
}

// RecordView bumps a listing's view counter. Best effort: failures are
// logged and never surfaced to the caller.
func (l *Listings) RecordView(ctx context.Context, listingID string) bool {
	if err := l.deps.Store.IncrementViewCount(ctx, listingID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("increment view count for %s: %v", listingID, err)
		}
		return false
	}
	return true
}

// Get returns one listing and records the view. A failed view bump never
// fails the read.
func (l *Listings) Get(ctx context.Context, listingID string) (domain.Listing, error) {
	listing, err := l.deps.Store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Listing{}, storeError(err, "listing not found")
	}
	if l.RecordView(ctx, listingID) {
		listing.ViewCount++
	}
	return listing, nil
}

// BrowseParams narrows and orders a public listing search.
type BrowseParams struct {
	Medium       string
	Style        string
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	VerifiedOnly bool
	Search       string
	OrderBy      string
	PageSize     int
	Offset       int
}

// Browse returns active listings matching the search parameters.
func (l *Listings) Browse(ctx context.Context, params BrowseParams) ([]domain.Listing, error) {
	orderBy, err := pagination.NormalizeOrderBy(params.OrderBy, pagination.OrderByConfig{
		Default: string(storage.OrderNewest),
		Allowed: []string{
			string(storage.OrderNewest),
			string(storage.OrderPriceAsc),
			string(storage.OrderPriceDesc),
			string(storage.OrderPopular),
		},
	})
	if err != nil {
		return nil, apperrors.WithMetadata(
			apperrors.CodeListingInvalidOrderBy,
			"order_by is not recognized",
			map[string]string{"OrderBy": params.OrderBy},
		)
	}

	listings, err := l.deps.Store.ListListings(ctx, storage.ListingFilter{
		Status:       domain.ListingStatusActive,
		Medium:       params.Medium,
		Style:        params.Style,
		MinPrice:     params.MinPrice,
		MaxPrice:     params.MaxPrice,
		VerifiedOnly: params.VerifiedOnly,
		Search:       params.Search,
		OrderBy:      storage.ListingOrder(orderBy),
		Limit:        pagination.ClampPageSize(params.PageSize, pagination.PageSizeConfig{Default: defaultPageSize, Max: maxPageSize}),
		Offset:       pagination.ClampOffset(params.Offset),
	})
	if err != nil {
		return nil, storeError(err, "listing not found")
	}
	return listings, nil
}

// SellerListings returns every listing a seller owns, including drafts when
// the seller asks for their own.
func (l *Listings) SellerListings(ctx context.Context, actor domain.Actor, sellerID string, pageSize, offset int) ([]domain.Listing, error) {
	filter := storage.ListingFilter{
		SellerID: sellerID,
		Limit:    pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{Default: defaultPageSize, Max: maxPageSize}),
		Offset:   pagination.ClampOffset(offset),
	}
	if actor.UserID != sellerID && !actor.IsAdmin() {
		// Outsiders only see published inventory.
		filter.Status = domain.ListingStatusActive
	}
	listings, err := l.deps.Store.ListListings(ctx, filter)
	if err != nil {
		return nil, storeError(err, "listing not found")
	}
	return listings, nil
}
