package service

import (
	"context"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
)

// Provenance implements the append-only listing history and expert
// endorsements.
type Provenance struct {
	deps Deps
}

// NewProvenance creates the provenance service.
func NewProvenance(deps Deps) *Provenance {
	return &Provenance{deps: deps.normalize()}
}

// AddEvent appends a history entry to a listing the actor owns. Admins may
// append to any listing.
func (p *Provenance) AddEvent(ctx context.Context, actor domain.Actor, input domain.CreateProvenanceEventInput) (domain.ProvenanceEvent, error) {
	listing, err := p.deps.Store.GetListing(ctx, input.ListingID)
	if err != nil {
		return domain.ProvenanceEvent{}, storeError(err, "listing not found")
	}
	if listing.SellerID != actor.UserID && !actor.IsAdmin() {
		return domain.ProvenanceEvent{}, apperrors.New(apperrors.CodeNotListingOwner, "only the listing owner may add provenance")
	}

	event, err := domain.CreateProvenanceEvent(input, p.deps.Now, p.deps.NewID)
	if err != nil {
		return domain.ProvenanceEvent{}, err
	}
	if err := p.deps.Store.CreateProvenanceEvent(ctx, event); err != nil {
		return domain.ProvenanceEvent{}, storeError(err, "listing not found")
	}
	return event, nil
}

// History returns a listing's provenance in event order.
func (p *Provenance) History(ctx context.Context, listingID string) ([]domain.ProvenanceEvent, error) {
	events, err := p.deps.Store.ListProvenanceForListing(ctx, listingID)
	if err != nil {
		return nil, storeError(err, "listing not found")
	}
	return events, nil
}

// AddEndorsement attaches an expert statement to a listing. Only admins may
// record endorsements.
func (p *Provenance) AddEndorsement(ctx context.Context, actor domain.Actor, input domain.CreateEndorsementInput) (domain.Endorsement, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Endorsement{}, err
	}
	if _, err := p.deps.Store.GetListing(ctx, input.ListingID); err != nil {
		return domain.Endorsement{}, storeError(err, "listing not found")
	}

	endorsement, err := domain.CreateEndorsement(input, p.deps.Now, p.deps.NewID)
	if err != nil {
		return domain.Endorsement{}, err
	}
	if err := p.deps.Store.CreateEndorsement(ctx, endorsement); err != nil {
		return domain.Endorsement{}, storeError(err, "listing not found")
	}
	return endorsement, nil
}

// Endorsements returns a listing's expert endorsements, newest first.
func (p *Provenance) Endorsements(ctx context.Context, listingID string) ([]domain.Endorsement, error) {
	endorsements, err := p.deps.Store.ListEndorsementsForListing(ctx, listingID)
	if err != nil {
		return nil, storeError(err, "listing not found")
	}
	return endorsements, nil
}
