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

// CreateUser inserts one user row.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	role := user.Role
	if role == "" {
		role = domain.RoleUser
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (
		   id, display_name, role, is_seller, is_verified_seller,
		   total_sales, total_purchases, average_rating, total_reviews,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.DisplayName,
		string(role),
		user.IsSeller,
		user.IsVerifiedSeller,
		user.TotalSales,
		user.TotalPurchases,
		user.AverageRating,
		user.TotalReviews,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser returns one user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}

	var (
		user      domain.User
		createdAt int64
		updatedAt int64
	)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, display_name, role, is_seller, is_verified_seller,
		        total_sales, total_purchases, average_rating, total_reviews,
		        created_at, updated_at
		 FROM users WHERE id = ?`,
		strings.TrimSpace(id),
	)
	err := row.Scan(
		&user.ID,
		&user.DisplayName,
		(*string)(&user.Role),
		&user.IsSeller,
		&user.IsVerifiedSeller,
		&user.TotalSales,
		&user.TotalPurchases,
		&user.AverageRating,
		&user.TotalReviews,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}

// EnsureSeller marks a user as a seller. The profile row is created when
// none exists yet.
func (s *Store) EnsureSeller(ctx context.Context, id string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("user id is required")
	}

	millis := toMillis(now)
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (
		   id, display_name, role, is_seller, is_verified_seller,
		   total_sales, total_purchases, average_rating, total_reviews,
		   created_at, updated_at
		 ) VALUES (?, '', ?, 1, 0, 0, 0, 0, 0, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   is_seller = 1,
		   updated_at = excluded.updated_at`,
		id,
		string(domain.RoleUser),
		millis,
		millis,
	)
	if err != nil {
		return fmt.Errorf("ensure seller: %w", err)
	}
	return nil
}

// SetVerifiedSeller flips the seller trust badge.
func (s *Store) SetVerifiedSeller(ctx context.Context, id string, verified bool, updatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET
		   is_verified_seller = ?,
		   is_seller = CASE WHEN ? THEN 1 ELSE is_seller END,
		   updated_at = ?
		 WHERE id = ?`,
		verified,
		verified,
		toMillis(updatedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("set verified seller: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set verified seller rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
