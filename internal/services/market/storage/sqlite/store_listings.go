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

const listingColumns = `id, seller_id, title, description, artist_name, artist_bio,
	medium, style, dimensions, year_created, price, currency, status,
	verification_status, ai_confidence_score, view_count, favorite_count,
	average_rating, total_reviews, created_at, updated_at`

// CreateListing inserts one listing row.
func (s *Store) CreateListing(ctx context.Context, listing domain.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(listing.ID) == "" {
		return fmt.Errorf("listing id is required")
	}

	priceNumeric, _ := listing.Price.Float64()
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO listings (
		   id, seller_id, title, description, artist_name, artist_bio,
		   medium, style, dimensions, year_created, price, price_numeric,
		   currency, status, verification_status, ai_confidence_score,
		   view_count, favorite_count, average_rating, total_reviews,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listing.ID,
		listing.SellerID,
		listing.Title,
		listing.Description,
		listing.ArtistName,
		listing.ArtistBio,
		listing.Medium,
		listing.Style,
		listing.Dimensions,
		listing.YearCreated,
		listing.Price.String(),
		priceNumeric,
		listing.Currency,
		string(listing.Status),
		string(listing.VerificationStatus),
		listing.AIConfidenceScore,
		listing.ViewCount,
		listing.FavoriteCount,
		listing.AverageRating,
		listing.TotalReviews,
		toMillis(listing.CreatedAt),
		toMillis(listing.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// GetListing returns one listing by ID.
func (s *Store) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return domain.Listing{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Listing{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Listing{}, fmt.Errorf("listing id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`,
		id,
	)
	listing, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("get listing: %w", err)
	}
	return listing, nil
}

// UpdateListing rewrites the mutable listing fields. The write only lands
// when the row still carries the status the caller read, so a reservation
// that slips in between read and write surfaces as ErrConflict instead of
// being overwritten.
func (s *Store) UpdateListing(ctx context.Context, listing domain.Listing, expected domain.ListingStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	priceNumeric, _ := listing.Price.Float64()
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE listings SET
		   title = ?, description = ?, artist_name = ?, artist_bio = ?,
		   medium = ?, style = ?, dimensions = ?, year_created = ?,
		   price = ?, price_numeric = ?, currency = ?, status = ?,
		   updated_at = ?
		 WHERE id = ? AND status = ?`,
		listing.Title,
		listing.Description,
		listing.ArtistName,
		listing.ArtistBio,
		listing.Medium,
		listing.Style,
		listing.Dimensions,
		listing.YearCreated,
		listing.Price.String(),
		priceNumeric,
		listing.Currency,
		string(listing.Status),
		toMillis(listing.UpdatedAt),
		listing.ID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update listing rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		row := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = ?`, listing.ID)
		if err := row.Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

// ListListings returns listings matching the filter.
func (s *Store) ListListings(ctx context.Context, filter storage.ListingFilter) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	var conditions []string
	var args []any
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.SellerID != "" {
		conditions = append(conditions, "seller_id = ?")
		args = append(args, filter.SellerID)
	}
	if filter.Medium != "" {
		conditions = append(conditions, "medium = ?")
		args = append(args, filter.Medium)
	}
	if filter.Style != "" {
		conditions = append(conditions, "style = ?")
		args = append(args, filter.Style)
	}
	if filter.MinPrice.IsPositive() {
		minPrice, _ := filter.MinPrice.Float64()
		conditions = append(conditions, "price_numeric >= ?")
		args = append(args, minPrice)
	}
	if filter.MaxPrice.IsPositive() {
		maxPrice, _ := filter.MaxPrice.Float64()
		conditions = append(conditions, "price_numeric <= ?")
		args = append(args, maxPrice)
	}
	if filter.VerifiedOnly {
		conditions = append(conditions, "verification_status = 'verified'")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "(title LIKE ? OR artist_name LIKE ? OR description LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + listingOrderClause(filter.OrderBy)
	query += " LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return listings, nil
}

func listingOrderClause(order storage.ListingOrder) string {
	switch order {
	case storage.OrderPriceAsc:
		return "price_numeric ASC, created_at DESC"
	case storage.OrderPriceDesc:
		return "price_numeric DESC, created_at DESC"
	case storage.OrderPopular:
		return "view_count DESC, favorite_count DESC, created_at DESC"
	default:
		return "created_at DESC"
	}
}

// IncrementViewCount adds one view to a listing.
func (s *Store) IncrementViewCount(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE listings SET view_count = view_count + 1 WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment view count rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ReserveListing conditionally moves active -> reserved. Exactly one of two
// concurrent callers observes the active row; the other gets ErrConflict.
func (s *Store) ReserveListing(ctx context.Context, id string, updatedAt time.Time) error {
	return s.transitionListing(ctx, s.sqlDB, id, domain.ListingStatusActive, domain.ListingStatusReserved, updatedAt)
}

// ReleaseListing conditionally moves reserved -> active.
func (s *Store) ReleaseListing(ctx context.Context, id string, updatedAt time.Time) error {
	return s.transitionListing(ctx, s.sqlDB, id, domain.ListingStatusReserved, domain.ListingStatusActive, updatedAt)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) transitionListing(ctx context.Context, db execer, id string, from, to domain.ListingStatus, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := db.ExecContext(
		ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to),
		toMillis(updatedAt),
		id,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("transition listing %s -> %s: %w", from, to, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition listing rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		row := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = ?`, id)
		if err := row.Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return storage.ErrConflict
	}
	return nil
}

// SetVerification records a verification outcome for a listing. The
// confidence score column is left untouched when no score is supplied.
func (s *Store) SetVerification(ctx context.Context, id string, status domain.VerificationStatus, confidence *float64, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	query := `UPDATE listings SET verification_status = ?, updated_at = ? WHERE id = ?`
	args := []any{string(status), toMillis(updatedAt), id}
	if confidence != nil {
		query = `UPDATE listings SET verification_status = ?, ai_confidence_score = ?, updated_at = ? WHERE id = ?`
		args = []any{string(status), *confidence, toMillis(updatedAt), id}
	}
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set verification rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListPendingVerification returns listings awaiting verification, oldest first.
func (s *Store) ListPendingVerification(ctx context.Context, limit, offset int) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE verification_status = 'pending' AND status != 'draft'
		 ORDER BY created_at ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending verification: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending verification: %w", err)
	}
	return listings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (domain.Listing, error) {
	var (
		listing    domain.Listing
		price      string
		confidence sql.NullFloat64
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(
		&listing.ID,
		&listing.SellerID,
		&listing.Title,
		&listing.Description,
		&listing.ArtistName,
		&listing.ArtistBio,
		&listing.Medium,
		&listing.Style,
		&listing.Dimensions,
		&listing.YearCreated,
		&price,
		&listing.Currency,
		(*string)(&listing.Status),
		(*string)(&listing.VerificationStatus),
		&confidence,
		&listing.ViewCount,
		&listing.FavoriteCount,
		&listing.AverageRating,
		&listing.TotalReviews,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Listing{}, err
	}
	listing.Price, err = parseDecimal(price)
	if err != nil {
		return domain.Listing{}, err
	}
	if confidence.Valid {
		listing.AIConfidenceScore = &confidence.Float64
	}
	listing.CreatedAt = fromMillis(createdAt)
	listing.UpdatedAt = fromMillis(updatedAt)
	return listing, nil
}
