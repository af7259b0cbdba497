package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

const transactionColumns = `id, listing_id, buyer_id, seller_id, amount, platform_fee,
	currency, status, escrow_status, delivery_status,
	shipping_name, shipping_street, shipping_city, shipping_state,
	shipping_postal_code, shipping_country,
	created_at, updated_at, delivery_confirmed_at, completed_at`

// CreateTransaction reserves the listing and inserts the transaction row as
// one unit. The reservation's conditional update decides races on the
// listing; the partial unique index on live transactions backs it up.
func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(tx.ID) == "" {
		return fmt.Errorf("transaction id is required")
	}

	dbTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	result, err := dbTx.ExecContext(
		ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.ListingStatusReserved),
		toMillis(tx.CreatedAt),
		tx.ListingID,
		string(domain.ListingStatusActive),
	)
	if err != nil {
		return fmt.Errorf("reserve listing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve listing rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		row := dbTx.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = ?`, tx.ListingID)
		if err := row.Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}

	_, err = dbTx.ExecContext(
		ctx,
		`INSERT INTO transactions (
		   id, listing_id, buyer_id, seller_id, amount, platform_fee,
		   currency, status, escrow_status, delivery_status,
		   shipping_name, shipping_street, shipping_city, shipping_state,
		   shipping_postal_code, shipping_country,
		   created_at, updated_at, delivery_confirmed_at, completed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.ListingID,
		tx.BuyerID,
		tx.SellerID,
		tx.Amount.String(),
		tx.PlatformFee.String(),
		tx.Currency,
		string(tx.Status),
		string(tx.EscrowStatus),
		string(tx.DeliveryStatus),
		tx.ShippingAddress.Name,
		tx.ShippingAddress.Street,
		tx.ShippingAddress.City,
		tx.ShippingAddress.State,
		tx.ShippingAddress.PostalCode,
		tx.ShippingAddress.Country,
		toMillis(tx.CreatedAt),
		toMillis(tx.UpdatedAt),
		toMillisPtr(tx.DeliveryConfirmedAt),
		toMillisPtr(tx.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit create transaction: %w", err)
	}
	return nil
}

// GetTransaction returns one transaction by ID.
func (s *Store) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Transaction{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`,
		strings.TrimSpace(id),
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransaction persists a state change guarded by the expected current
// status so concurrent transitions lose cleanly.
func (s *Store) UpdateTransaction(ctx context.Context, tx domain.Transaction, expectedStatus domain.TransactionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	return s.updateTransactionRow(ctx, s.sqlDB, tx, expectedStatus)
}

func (s *Store) updateTransactionRow(ctx context.Context, db execer, tx domain.Transaction, expectedStatus domain.TransactionStatus) error {
	result, err := db.ExecContext(
		ctx,
		`UPDATE transactions SET
		   status = ?, escrow_status = ?, delivery_status = ?,
		   updated_at = ?, delivery_confirmed_at = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(tx.Status),
		string(tx.EscrowStatus),
		string(tx.DeliveryStatus),
		toMillis(tx.UpdatedAt),
		toMillisPtr(tx.DeliveryConfirmedAt),
		toMillisPtr(tx.CompletedAt),
		tx.ID,
		string(expectedStatus),
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		row := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, tx.ID)
		if err := row.Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

// CompleteTransaction applies a delivery confirmation atomically: the
// transaction row, the listing moving to sold, both parties' counters, and
// the sale provenance event.
func (s *Store) CompleteTransaction(ctx context.Context, tx domain.Transaction, saleEvent domain.ProvenanceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	dbTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	if err := s.updateTransactionRow(ctx, dbTx, tx, domain.TransactionStatusProcessing); err != nil {
		return err
	}

	result, err := dbTx.ExecContext(
		ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.ListingStatusSold),
		toMillis(tx.UpdatedAt),
		tx.ListingID,
		string(domain.ListingStatusReserved),
	)
	if err != nil {
		return fmt.Errorf("mark listing sold: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark listing sold rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrConflict
	}

	if err := bumpCounter(ctx, dbTx, tx.SellerID, "total_sales", tx.UpdatedAt); err != nil {
		return err
	}
	if err := bumpCounter(ctx, dbTx, tx.BuyerID, "total_purchases", tx.UpdatedAt); err != nil {
		return err
	}

	if err := insertProvenanceEvent(ctx, dbTx, saleEvent); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit complete transaction: %w", err)
	}
	return nil
}

// bumpCounter upserts the user row so counters survive profiles that were
// never explicitly created.
func bumpCounter(ctx context.Context, db execer, userID, column string, now time.Time) error {
	query := fmt.Sprintf(
		`INSERT INTO users (id, %s, created_at, updated_at) VALUES (?, 1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET %s = %s + 1, updated_at = excluded.updated_at`,
		column, column, column,
	)
	if _, err := db.ExecContext(ctx, query, userID, toMillis(now), toMillis(now)); err != nil {
		return fmt.Errorf("bump %s for %s: %w", column, userID, err)
	}
	return nil
}

// CancelTransaction updates the transaction and releases its listing back to
// active as one unit.
func (s *Store) CancelTransaction(ctx context.Context, tx domain.Transaction, expectedStatus domain.TransactionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	dbTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	if err := s.updateTransactionRow(ctx, dbTx, tx, expectedStatus); err != nil {
		return err
	}

	// The listing may have been released already if the cancel retried.
	_, err = dbTx.ExecContext(
		ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.ListingStatusActive),
		toMillis(tx.UpdatedAt),
		tx.ListingID,
		string(domain.ListingStatusReserved),
	)
	if err != nil {
		return fmt.Errorf("release listing: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit cancel transaction: %w", err)
	}
	return nil
}

// ListTransactionsForUser returns transactions where the user is buyer or
// seller, newest first.
func (s *Store) ListTransactionsForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE buyer_id = ? OR seller_id = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID, userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions for user: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListStalePending returns pending transactions created before cutoff.
func (s *Store) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE status = 'pending' AND created_at < ?
		 ORDER BY created_at ASC`,
		toMillis(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale pending transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx          domain.Transaction
		amount      string
		platformFee string
		createdAt   int64
		updatedAt   int64
		confirmedAt sql.NullInt64
		completedAt sql.NullInt64
	)
	err := row.Scan(
		&tx.ID,
		&tx.ListingID,
		&tx.BuyerID,
		&tx.SellerID,
		&amount,
		&platformFee,
		&tx.Currency,
		(*string)(&tx.Status),
		(*string)(&tx.EscrowStatus),
		(*string)(&tx.DeliveryStatus),
		&tx.ShippingAddress.Name,
		&tx.ShippingAddress.Street,
		&tx.ShippingAddress.City,
		&tx.ShippingAddress.State,
		&tx.ShippingAddress.PostalCode,
		&tx.ShippingAddress.Country,
		&createdAt,
		&updatedAt,
		&confirmedAt,
		&completedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Amount, err = parseDecimal(amount)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.PlatformFee, err = parseDecimal(platformFee)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.CreatedAt = fromMillis(createdAt)
	tx.UpdatedAt = fromMillis(updatedAt)
	tx.DeliveryConfirmedAt = fromMillisPtr(confirmedAt)
	tx.CompletedAt = fromMillisPtr(completedAt)
	return tx, nil
}
