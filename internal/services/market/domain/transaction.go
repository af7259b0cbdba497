package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/id"
)

// TransactionStatus describes the purchase lifecycle.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

// EscrowStatus describes where the buyer's funds sit. It is a state label,
// not a payment rail.
type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
	EscrowStatusDisputed EscrowStatus = "disputed"
)

// DeliveryStatus describes shipment progress. Empty until shipment begins.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusShipped   DeliveryStatus = "shipped"
	DeliveryStatusInTransit DeliveryStatus = "in_transit"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusConfirmed DeliveryStatus = "confirmed"
)

// PlatformFeeRate is the marketplace cut of every sale.
var PlatformFeeRate = decimal.NewFromFloat(0.05)

var (
	// ErrTransactionOwnListing indicates a buyer attempting to purchase their own listing.
	ErrTransactionOwnListing = apperrors.New(apperrors.CodeTransactionOwnListing, "cannot purchase your own listing")
	// ErrTransactionShippingMissing indicates a purchase without a shipping address.
	ErrTransactionShippingMissing = apperrors.New(apperrors.CodeTransactionShippingMissing, "shipping address is required")
	// ErrTransactionInvalidStatusTransition indicates a disallowed state change.
	ErrTransactionInvalidStatusTransition = apperrors.New(apperrors.CodeTransactionInvalidStatusTransition, "transaction status transition is not allowed")
	// ErrTransactionDeliveryNotStarted indicates a delivery confirmation before shipment.
	ErrTransactionDeliveryNotStarted = apperrors.New(apperrors.CodeTransactionDeliveryNotStarted, "delivery has not started for this transaction")
)

// ShippingAddress is the destination captured at purchase time.
type ShippingAddress struct {
	Name       string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Transaction represents one purchase attempt of one listing by one buyer.
// SellerID, Amount, and Currency are snapshots taken at creation; later
// listing edits do not affect them.
type Transaction struct {
	ID        string
	ListingID string
	BuyerID   string
	SellerID  string

	Amount      decimal.Decimal
	PlatformFee decimal.Decimal
	Currency    string

	Status         TransactionStatus
	EscrowStatus   EscrowStatus
	DeliveryStatus DeliveryStatus

	ShippingAddress ShippingAddress

	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeliveryConfirmedAt *time.Time
	CompletedAt         *time.Time
}

// Live reports whether the transaction still holds its listing reserved.
func (t Transaction) Live() bool {
	return t.Status == TransactionStatusPending || t.Status == TransactionStatusProcessing
}

// PlatformFee computes the marketplace cut for an amount, rounded half-up to
// cents.
func PlatformFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(PlatformFeeRate).Round(2)
}

// CreateTransactionInput describes a purchase commitment.
type CreateTransactionInput struct {
	ListingID       string
	BuyerID         string
	SellerID        string
	Amount          decimal.Decimal
	Currency        string
	ShippingAddress ShippingAddress
}

// CreateTransaction builds a pending transaction snapshotting the listing
// price and computing the platform fee. The caller is responsible for
// reserving the listing atomically alongside the insert.
func CreateTransaction(input CreateTransactionInput, now func() time.Time, idGenerator func() (string, error)) (Transaction, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.ListingID = strings.TrimSpace(input.ListingID)
	input.BuyerID = strings.TrimSpace(input.BuyerID)
	input.SellerID = strings.TrimSpace(input.SellerID)
	if input.BuyerID == input.SellerID {
		return Transaction{}, ErrTransactionOwnListing
	}
	if strings.TrimSpace(input.ShippingAddress.Name) == "" || strings.TrimSpace(input.ShippingAddress.Street) == "" {
		return Transaction{}, ErrTransactionShippingMissing
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	txID, err := idGenerator()
	if err != nil {
		return Transaction{}, fmt.Errorf("generate transaction id: %w", err)
	}

	createdAt := now().UTC()
	return Transaction{
		ID:              txID,
		ListingID:       input.ListingID,
		BuyerID:         input.BuyerID,
		SellerID:        input.SellerID,
		Amount:          input.Amount,
		PlatformFee:     PlatformFee(input.Amount),
		Currency:        currency,
		Status:          TransactionStatusPending,
		EscrowStatus:    EscrowStatusPending,
		DeliveryStatus:  DeliveryStatusPending,
		ShippingAddress: input.ShippingAddress,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// MarkPaid transitions pending -> processing and places funds in escrow.
func MarkPaid(tx Transaction, now func() time.Time) (Transaction, error) {
	if now == nil {
		now = time.Now
	}
	if tx.Status != TransactionStatusPending {
		return Transaction{}, transitionError(tx.Status, TransactionStatusProcessing)
	}
	updated := tx
	updated.Status = TransactionStatusProcessing
	updated.EscrowStatus = EscrowStatusHeld
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// MarkShipped records the seller handing the artwork to a carrier.
func MarkShipped(tx Transaction, now func() time.Time) (Transaction, error) {
	if now == nil {
		now = time.Now
	}
	if tx.Status != TransactionStatusProcessing {
		return Transaction{}, transitionError(tx.Status, tx.Status)
	}
	if tx.DeliveryStatus != DeliveryStatusPending && tx.DeliveryStatus != "" {
		return Transaction{}, apperrors.WithMetadata(
			apperrors.CodeTransactionInvalidStatusTransition,
			fmt.Sprintf("delivery already %s", tx.DeliveryStatus),
			map[string]string{"DeliveryStatus": string(tx.DeliveryStatus)},
		)
	}
	updated := tx
	updated.DeliveryStatus = DeliveryStatusShipped
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// ConfirmDelivery transitions processing -> completed, releasing escrow.
// Eligible only once the artwork is en route or delivered; confirmation is
// the buyer's act and the store pairs it with marking the listing sold.
func ConfirmDelivery(tx Transaction, now func() time.Time) (Transaction, error) {
	if now == nil {
		now = time.Now
	}
	if tx.Status != TransactionStatusProcessing {
		return Transaction{}, transitionError(tx.Status, TransactionStatusCompleted)
	}
	switch tx.DeliveryStatus {
	case DeliveryStatusShipped, DeliveryStatusInTransit, DeliveryStatusDelivered:
	default:
		return Transaction{}, ErrTransactionDeliveryNotStarted
	}

	confirmedAt := now().UTC()
	updated := tx
	updated.Status = TransactionStatusCompleted
	updated.EscrowStatus = EscrowStatusReleased
	updated.DeliveryStatus = DeliveryStatusConfirmed
	updated.DeliveryConfirmedAt = &confirmedAt
	updated.CompletedAt = &confirmedAt
	updated.UpdatedAt = confirmedAt
	return updated, nil
}

// Cancel aborts a live transaction, refunding escrow. The store pairs this
// with releasing the listing back to active.
func Cancel(tx Transaction, now func() time.Time) (Transaction, error) {
	if now == nil {
		now = time.Now
	}
	if !tx.Live() {
		return Transaction{}, transitionError(tx.Status, TransactionStatusCancelled)
	}
	updated := tx
	updated.Status = TransactionStatusCancelled
	updated.EscrowStatus = EscrowStatusRefunded
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// Dispute flags held escrow as contested. Resolution happens through an
// admin cancel.
func Dispute(tx Transaction, now func() time.Time) (Transaction, error) {
	if now == nil {
		now = time.Now
	}
	if tx.Status != TransactionStatusProcessing || tx.EscrowStatus != EscrowStatusHeld {
		return Transaction{}, transitionError(tx.Status, tx.Status)
	}
	updated := tx
	updated.EscrowStatus = EscrowStatusDisputed
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

func transitionError(from, to TransactionStatus) *apperrors.Error {
	return apperrors.WithMetadata(
		apperrors.CodeTransactionInvalidStatusTransition,
		fmt.Sprintf("transaction status transition not allowed: %s -> %s", from, to),
		map[string]string{"FromStatus": string(from), "ToStatus": string(to)},
	)
}
