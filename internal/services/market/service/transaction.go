package service

import (
	"context"
	"errors"
	"log"
	"time"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/grpc/pagination"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// Transactions implements the escrow purchase flow from initiation through
// delivery confirmation.
type Transactions struct {
	deps Deps
}

// NewTransactions creates the transaction service.
func NewTransactions(deps Deps) *Transactions {
	return &Transactions{deps: deps.normalize()}
}

// Initiate commits a buyer to purchasing a listing. The listing moves to
// reserved and the transaction opens in pending with escrow pending. When
// two buyers race, exactly one initiation succeeds.
func (t *Transactions) Initiate(ctx context.Context, actor domain.Actor, listingID string, shipping domain.ShippingAddress) (domain.Transaction, error) {
	listing, err := t.deps.Store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Transaction{}, storeError(err, "listing not found")
	}
	if listing.SellerID == actor.UserID {
		return domain.Transaction{}, domain.ErrTransactionOwnListing
	}
	if listing.Status != domain.ListingStatusActive {
		return domain.Transaction{}, notPurchasable(listing.Status)
	}

	tx, err := domain.CreateTransaction(domain.CreateTransactionInput{
		ListingID:       listing.ID,
		BuyerID:         actor.UserID,
		SellerID:        listing.SellerID,
		Amount:          listing.Price,
		Currency:        listing.Currency,
		ShippingAddress: shipping,
	}, t.deps.Now, t.deps.NewID)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := t.deps.Store.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return domain.Transaction{}, apperrors.New(apperrors.CodeListingAlreadyReserved, "listing was just reserved by another buyer")
		}
		return domain.Transaction{}, storeError(err, "listing not found")
	}
	return tx, nil
}

func notPurchasable(status domain.ListingStatus) error {
	return apperrors.WithMetadata(
		apperrors.CodeListingNotPurchasable,
		"listing is not available for purchase",
		map[string]string{"Status": string(status)},
	)
}

// MarkPaid records the buyer's payment, moving the transaction to
// processing with escrow held.
func (t *Transactions) MarkPaid(ctx context.Context, actor domain.Actor, transactionID string) (domain.Transaction, error) {
	tx, err := t.buyerTransaction(ctx, actor, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	updated, err := domain.MarkPaid(tx, t.deps.Now)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := t.persist(ctx, updated, tx.Status); err != nil {
		return domain.Transaction{}, err
	}
	return updated, nil
}

// MarkShipped records the seller handing off the artwork.
func (t *Transactions) MarkShipped(ctx context.Context, actor domain.Actor, transactionID string) (domain.Transaction, error) {
	tx, err := t.getTransaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.SellerID != actor.UserID && !actor.IsAdmin() {
		return domain.Transaction{}, apperrors.New(apperrors.CodeNotTransactionSeller, "only the seller may mark the artwork shipped")
	}
	updated, err := domain.MarkShipped(tx, t.deps.Now)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := t.persist(ctx, updated, tx.Status); err != nil {
		return domain.Transaction{}, err
	}
	return updated, nil
}

// ConfirmDelivery is the buyer accepting the artwork. It completes the
// transaction, releases escrow, marks the listing sold, bumps both parties'
// sale counters, and appends the sale to the listing's provenance, all in
// one storage unit.
func (t *Transactions) ConfirmDelivery(ctx context.Context, actor domain.Actor, transactionID string) (domain.Transaction, error) {
	tx, err := t.buyerTransaction(ctx, actor, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	updated, err := domain.ConfirmDelivery(tx, t.deps.Now)
	if err != nil {
		return domain.Transaction{}, err
	}

	saleEvent, err := domain.CreateProvenanceEvent(domain.CreateProvenanceEventInput{
		ListingID:   tx.ListingID,
		EventType:   domain.ProvenanceEventSale,
		EventDate:   *updated.CompletedAt,
		Description: "Sold through the marketplace.",
	}, t.deps.Now, t.deps.NewID)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := t.deps.Store.CompleteTransaction(ctx, updated, saleEvent); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return domain.Transaction{}, apperrors.New(apperrors.CodeTransactionInvalidStatusTransition, "transaction changed state concurrently")
		}
		return domain.Transaction{}, storeError(err, "transaction not found")
	}
	return updated, nil
}

// Cancel aborts a live transaction. Either party or an admin may cancel; the
// listing returns to active and escrow flips to refunded.
func (t *Transactions) Cancel(ctx context.Context, actor domain.Actor, transactionID string) (domain.Transaction, error) {
	tx, err := t.getTransaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.BuyerID != actor.UserID && tx.SellerID != actor.UserID && !actor.IsAdmin() {
		return domain.Transaction{}, apperrors.New(apperrors.CodeNotTransactionParty, "only a transaction party may cancel")
	}
	updated, err := domain.Cancel(tx, t.deps.Now)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := t.deps.Store.CancelTransaction(ctx, updated, tx.Status); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return domain.Transaction{}, apperrors.New(apperrors.CodeTransactionInvalidStatusTransition, "transaction changed state concurrently")
		}
		return domain.Transaction{}, storeError(err, "transaction not found")
	}
	return updated, nil
}

// Dispute flags a held escrow as contested. Either party may raise it.
func (t *Transactions) Dispute(ctx context.Context, actor domain.Actor, transactionID string) (domain.Transaction, error) {
	tx, err := t.getTransaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.BuyerID != actor.UserID && tx.SellerID != actor.UserID && !actor.IsAdmin() {
		return domain.Transaction{}, apperrors.New(apperrors.CodeNotTransactionParty, "only a transaction party may dispute")
	}
	updated, err := domain.Dispute(tx, t.deps.Now)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := t.persist(ctx, updated, tx.Status); err != nil {
		return domain.Transaction{}, err
	}
	return updated, nil
}

// ExpireStalePending cancels pending transactions older than olderThan,
// releasing their listings. It reports how many were expired; individual
// failures are logged and skipped so one bad row cannot wedge the sweep.
func (t *Transactions) ExpireStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := t.deps.Now().UTC().Add(-olderThan)
	stale, err := t.deps.Store.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, storeError(err, "transaction not found")
	}

	expired := 0
	for _, tx := range stale {
		updated, err := domain.Cancel(tx, t.deps.Now)
		if err != nil {
			log.Printf("expire transaction %s: %v", tx.ID, err)
			continue
		}
		if err := t.deps.Store.CancelTransaction(ctx, updated, tx.Status); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				// Someone paid or cancelled while we swept.
				continue
			}
			log.Printf("expire transaction %s: %v", tx.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

// Get returns one transaction to its parties or an admin.
func (t *Transactions) Get(ctx context.Context, actor domain.Actor, transactionID string) (domain.Transaction, error) {
	tx, err := t.getTransaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.BuyerID != actor.UserID && tx.SellerID != actor.UserID && !actor.IsAdmin() {
		return domain.Transaction{}, apperrors.New(apperrors.CodeNotTransactionParty, "only a transaction party may view it")
	}
	return tx, nil
}

// ListForUser returns a user's purchase and sale history, newest first.
// Users see their own; admins see anyone's.
func (t *Transactions) ListForUser(ctx context.Context, actor domain.Actor, userID string, pageSize, offset int) ([]domain.Transaction, error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeNotTransactionParty, "only the user may view their transactions")
	}
	transactions, err := t.deps.Store.ListTransactionsForUser(
		ctx,
		userID,
		pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{Default: defaultPageSize, Max: maxPageSize}),
		pagination.ClampOffset(offset),
	)
	if err != nil {
		return nil, storeError(err, "transaction not found")
	}
	return transactions, nil
}

func (t *Transactions) buyerTransaction(ctx context.Context, actor domain.Actor, transactionID string) (domain.Transaction, error) {
	tx, err := t.getTransaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.BuyerID != actor.UserID {
		return domain.Transaction{}, apperrors.New(apperrors.CodeNotTransactionBuyer, "only the buyer may do this")
	}
	return tx, nil
}

func (t *Transactions) getTransaction(ctx context.Context, transactionID string) (domain.Transaction, error) {
	tx, err := t.deps.Store.GetTransaction(ctx, transactionID)
	if err != nil {
		return domain.Transaction{}, storeError(err, "transaction not found")
	}
	return tx, nil
}

func (t *Transactions) persist(ctx context.Context, tx domain.Transaction, expected domain.TransactionStatus) error {
	if err := t.deps.Store.UpdateTransaction(ctx, tx, expected); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return apperrors.New(apperrors.CodeTransactionInvalidStatusTransition, "transaction changed state concurrently")
		}
		return storeError(err, "transaction not found")
	}
	return nil
}
