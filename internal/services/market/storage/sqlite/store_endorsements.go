package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// CreateEndorsement inserts one expert endorsement.
func (s *Store) CreateEndorsement(ctx context.Context, endorsement domain.Endorsement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(endorsement.ID) == "" {
		return fmt.Errorf("endorsement id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO endorsements (
		   id, listing_id, expert_id, expert_name, expert_title,
		   expert_credentials, text, authenticity_confirmed, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		endorsement.ID,
		endorsement.ListingID,
		endorsement.ExpertID,
		endorsement.ExpertName,
		endorsement.ExpertTitle,
		endorsement.ExpertCredentials,
		endorsement.Text,
		endorsement.AuthenticityConfirmed,
		toMillis(endorsement.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create endorsement: %w", err)
	}
	return nil
}

// ListEndorsementsForListing returns a listing's endorsements, newest first.
func (s *Store) ListEndorsementsForListing(ctx context.Context, listingID string) ([]domain.Endorsement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, listing_id, expert_id, expert_name, expert_title,
		        expert_credentials, text, authenticity_confirmed, created_at
		 FROM endorsements
		 WHERE listing_id = ?
		 ORDER BY created_at DESC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list endorsements: %w", err)
	}
	defer rows.Close()

	var endorsements []domain.Endorsement
	for rows.Next() {
		var (
			endorsement domain.Endorsement
			createdAt   int64
		)
		err := rows.Scan(
			&endorsement.ID,
			&endorsement.ListingID,
			&endorsement.ExpertID,
			&endorsement.ExpertName,
			&endorsement.ExpertTitle,
			&endorsement.ExpertCredentials,
			&endorsement.Text,
			&endorsement.AuthenticityConfirmed,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan endorsement: %w", err)
		}
		endorsement.CreatedAt = fromMillis(createdAt)
		endorsements = append(endorsements, endorsement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endorsements: %w", err)
	}
	return endorsements, nil
}
