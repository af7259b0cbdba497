package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
)

func validTransactionInput() CreateTransactionInput {
	return CreateTransactionInput{
		ListingID: "listing-1",
		BuyerID:   "buyer-1",
		SellerID:  "seller-1",
		Amount:    decimal.RequireFromString("1000.00"),
		Currency:  "USD",
		ShippingAddress: ShippingAddress{
			Name:       "Ada Byron",
			Street:     "12 Rue des Arts",
			City:       "Lyon",
			PostalCode: "69001",
			Country:    "FR",
		},
	}
}

func TestCreateTransaction(t *testing.T) {
	t.Parallel()

	tx, err := CreateTransaction(validTransactionInput(), fixedNow, staticID("tx-1"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if tx.Status != TransactionStatusPending {
		t.Errorf("Status = %q, want %q", tx.Status, TransactionStatusPending)
	}
	if tx.EscrowStatus != EscrowStatusPending {
		t.Errorf("EscrowStatus = %q, want %q", tx.EscrowStatus, EscrowStatusPending)
	}
	if tx.DeliveryStatus != DeliveryStatusPending {
		t.Errorf("DeliveryStatus = %q, want %q", tx.DeliveryStatus, DeliveryStatusPending)
	}
	if got, want := tx.PlatformFee.StringFixed(2), "50.00"; got != want {
		t.Errorf("PlatformFee = %s, want %s", got, want)
	}
	if !tx.Live() {
		t.Error("Live() = false for pending transaction")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*CreateTransactionInput)
		wantErr error
	}{
		{
			name: "own listing",
			mutate: func(in *CreateTransactionInput) {
				in.BuyerID = "seller-1"
			},
			wantErr: ErrTransactionOwnListing,
		},
		{
			name: "missing shipping name",
			mutate: func(in *CreateTransactionInput) {
				in.ShippingAddress.Name = "  "
			},
			wantErr: ErrTransactionShippingMissing,
		},
		{
			name: "missing shipping street",
			mutate: func(in *CreateTransactionInput) {
				in.ShippingAddress.Street = ""
			},
			wantErr: ErrTransactionShippingMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			input := validTransactionInput()
			tt.mutate(&input)

			_, err := CreateTransaction(input, fixedNow, staticID("tx-1"))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateTransaction() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlatformFeeRounding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount string
		want   string
	}{
		{amount: "1000.00", want: "50.00"},
		{amount: "99.99", want: "5.00"},  // 4.9995 rounds half-up
		{amount: "0.10", want: "0.01"},   // 0.005 rounds half-up
		{amount: "33.33", want: "1.67"},  // 1.6665
		{amount: "250.00", want: "12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			t.Parallel()

			got := PlatformFee(decimal.RequireFromString(tt.amount)).StringFixed(2)
			if got != tt.want {
				t.Errorf("PlatformFee(%s) = %s, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func pendingTransaction(t *testing.T) Transaction {
	t.Helper()
	tx, err := CreateTransaction(validTransactionInput(), fixedNow, staticID("tx-1"))
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	return tx
}

func processingTransaction(t *testing.T) Transaction {
	t.Helper()
	tx, err := MarkPaid(pendingTransaction(t), fixedNow)
	if err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	return tx
}

func TestMarkPaid(t *testing.T) {
	t.Parallel()

	tx, err := MarkPaid(pendingTransaction(t), fixedNow)
	if err != nil {
		t.Fatalf("MarkPaid() error = %v", err)
	}
	if tx.Status != TransactionStatusProcessing {
		t.Errorf("Status = %q, want %q", tx.Status, TransactionStatusProcessing)
	}
	if tx.EscrowStatus != EscrowStatusHeld {
		t.Errorf("EscrowStatus = %q, want %q", tx.EscrowStatus, EscrowStatusHeld)
	}

	// A second payment attempt must be rejected.
	if _, err := MarkPaid(tx, fixedNow); !errors.Is(err, ErrTransactionInvalidStatusTransition) {
		t.Errorf("MarkPaid() twice error = %v, want %v", err, ErrTransactionInvalidStatusTransition)
	}
}

func TestMarkShipped(t *testing.T) {
	t.Parallel()

	tx, err := MarkShipped(processingTransaction(t), fixedNow)
	if err != nil {
		t.Fatalf("MarkShipped() error = %v", err)
	}
	if tx.DeliveryStatus != DeliveryStatusShipped {
		t.Errorf("DeliveryStatus = %q, want %q", tx.DeliveryStatus, DeliveryStatusShipped)
	}

	if _, err := MarkShipped(tx, fixedNow); !errors.Is(err, ErrTransactionInvalidStatusTransition) {
		t.Errorf("MarkShipped() twice error = %v, want %v", err, ErrTransactionInvalidStatusTransition)
	}
	if _, err := MarkShipped(pendingTransaction(t), fixedNow); !errors.Is(err, ErrTransactionInvalidStatusTransition) {
		t.Errorf("MarkShipped() on pending error = %v, want %v", err, ErrTransactionInvalidStatusTransition)
	}
}

func TestConfirmDelivery(t *testing.T) {
	t.Parallel()

	shipped, err := MarkShipped(processingTransaction(t), fixedNow)
	if err != nil {
		t.Fatalf("MarkShipped() error = %v", err)
	}

	tx, err := ConfirmDelivery(shipped, fixedNow)
	if err != nil {
		t.Fatalf("ConfirmDelivery() error = %v", err)
	}
	if tx.Status != TransactionStatusCompleted {
		t.Errorf("Status = %q, want %q", tx.Status, TransactionStatusCompleted)
	}
	if tx.EscrowStatus != EscrowStatusReleased {
		t.Errorf("EscrowStatus = %q, want %q", tx.EscrowStatus, EscrowStatusReleased)
	}
	if tx.DeliveryStatus != DeliveryStatusConfirmed {
		t.Errorf("DeliveryStatus = %q, want %q", tx.DeliveryStatus, DeliveryStatusConfirmed)
	}
	if tx.DeliveryConfirmedAt == nil || !tx.DeliveryConfirmedAt.Equal(fixedNow()) {
		t.Errorf("DeliveryConfirmedAt = %v, want %v", tx.DeliveryConfirmedAt, fixedNow())
	}
	if tx.CompletedAt == nil || !tx.CompletedAt.Equal(fixedNow()) {
		t.Errorf("CompletedAt = %v, want %v", tx.CompletedAt, fixedNow())
	}
	if tx.Live() {
		t.Error("Live() = true for completed transaction")
	}
}

func TestConfirmDeliveryBeforeShipment(t *testing.T) {
	t.Parallel()

	_, err := ConfirmDelivery(processingTransaction(t), fixedNow)
	if !errors.Is(err, ErrTransactionDeliveryNotStarted) {
		t.Errorf("ConfirmDelivery() error = %v, want %v", err, ErrTransactionDeliveryNotStarted)
	}

	_, err = ConfirmDelivery(pendingTransaction(t), fixedNow)
	if !errors.Is(err, ErrTransactionInvalidStatusTransition) {
		t.Errorf("ConfirmDelivery() on pending error = %v, want %v", err, ErrTransactionInvalidStatusTransition)
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tx      func(*testing.T) Transaction
		wantErr bool
	}{
		{name: "pending", tx: pendingTransaction},
		{name: "processing", tx: processingTransaction},
		{
			name: "completed",
			tx: func(t *testing.T) Transaction {
				shipped, _ := MarkShipped(processingTransaction(t), fixedNow)
				completed, err := ConfirmDelivery(shipped, fixedNow)
				if err != nil {
					t.Fatalf("ConfirmDelivery() error = %v", err)
				}
				return completed
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cancelled, err := Cancel(tt.tx(t), fixedNow)
			if tt.wantErr {
				if !errors.Is(err, ErrTransactionInvalidStatusTransition) {
					t.Errorf("Cancel() error = %v, want %v", err, ErrTransactionInvalidStatusTransition)
				}
				return
			}
			if err != nil {
				t.Fatalf("Cancel() error = %v", err)
			}
			if cancelled.Status != TransactionStatusCancelled {
				t.Errorf("Status = %q, want %q", cancelled.Status, TransactionStatusCancelled)
			}
			if cancelled.EscrowStatus != EscrowStatusRefunded {
				t.Errorf("EscrowStatus = %q, want %q", cancelled.EscrowStatus, EscrowStatusRefunded)
			}
		})
	}
}

func TestDispute(t *testing.T) {
	t.Parallel()

	tx, err := Dispute(processingTransaction(t), fixedNow)
	if err != nil {
		t.Fatalf("Dispute() error = %v", err)
	}
	if tx.EscrowStatus != EscrowStatusDisputed {
		t.Errorf("EscrowStatus = %q, want %q", tx.EscrowStatus, EscrowStatusDisputed)
	}
	if tx.Status != TransactionStatusProcessing {
		t.Errorf("Status = %q, want %q", tx.Status, TransactionStatusProcessing)
	}

	if _, err := Dispute(pendingTransaction(t), fixedNow); !errors.Is(err, ErrTransactionInvalidStatusTransition) {
		t.Errorf("Dispute() on pending error = %v, want %v", err, ErrTransactionInvalidStatusTransition)
	}
}

func TestTransitionErrorMetadata(t *testing.T) {
	t.Parallel()

	_, err := MarkPaid(Transaction{Status: TransactionStatusCompleted}, fixedNow)
	if err == nil {
		t.Fatal("MarkPaid() expected error")
	}
	meta := apperrors.GetMetadata(err)
	if meta["FromStatus"] != string(TransactionStatusCompleted) {
		t.Errorf("metadata = %v, want FromStatus %q", meta, TransactionStatusCompleted)
	}
}
