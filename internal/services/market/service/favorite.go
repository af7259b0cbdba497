package service

import (
	"context"
	"errors"

	"github.com/ryanvernados/artmatch-ai/internal/platform/grpc/pagination"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// Favorites implements the save-for-later tracker.
type Favorites struct {
	deps Deps
}

// NewFavorites creates the favorite service.
func NewFavorites(deps Deps) *Favorites {
	return &Favorites{deps: deps.normalize()}
}

// Add saves a listing for the actor. Saving twice is a no-op.
func (f *Favorites) Add(ctx context.Context, actor domain.Actor, listingID string) error {
	if _, err := f.deps.Store.GetListing(ctx, listingID); err != nil {
		return storeError(err, "listing not found")
	}
	err := f.deps.Store.AddFavorite(ctx, domain.Favorite{
		UserID:    actor.UserID,
		ListingID: listingID,
		CreatedAt: f.deps.Now().UTC(),
	})
	if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
		return storeError(err, "listing not found")
	}
	return nil
}

// Remove unsaves a listing. Removing an absent favorite is a no-op.
func (f *Favorites) Remove(ctx context.Context, actor domain.Actor, listingID string) error {
	if err := f.deps.Store.RemoveFavorite(ctx, actor.UserID, listingID); err != nil {
		return storeError(err, "listing not found")
	}
	return nil
}

// IsFavorited reports whether the actor saved the listing.
func (f *Favorites) IsFavorited(ctx context.Context, actor domain.Actor, listingID string) (bool, error) {
	favorited, err := f.deps.Store.IsFavorited(ctx, actor.UserID, listingID)
	if err != nil {
		return false, storeError(err, "listing not found")
	}
	return favorited, nil
}

// List returns the actor's saved listings, most recently saved first.
func (f *Favorites) List(ctx context.Context, actor domain.Actor, pageSize, offset int) ([]domain.Listing, error) {
	listings, err := f.deps.Store.ListFavoritesForUser(
		ctx,
		actor.UserID,
		pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{Default: defaultPageSize, Max: maxPageSize}),
		pagination.ClampOffset(offset),
	)
	if err != nil {
		return nil, storeError(err, "listing not found")
	}
	return listings, nil
}
