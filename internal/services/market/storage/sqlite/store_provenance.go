package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

// CreateProvenanceEvent appends one history entry.
func (s *Store) CreateProvenanceEvent(ctx context.Context, event domain.ProvenanceEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("provenance event id is required")
	}
	return insertProvenanceEvent(ctx, s.sqlDB, event)
}

func insertProvenanceEvent(ctx context.Context, db execer, event domain.ProvenanceEvent) error {
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO provenance_events (
		   id, listing_id, event_type, event_date, description,
		   location, verified_by, document_url, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.ListingID,
		string(event.EventType),
		toMillis(event.EventDate),
		event.Description,
		event.Location,
		event.VerifiedBy,
		event.DocumentURL,
		toMillis(event.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert provenance event: %w", err)
	}
	return nil
}

// ListProvenanceForListing returns a listing's history in event order.
func (s *Store) ListProvenanceForListing(ctx context.Context, listingID string) ([]domain.ProvenanceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, listing_id, event_type, event_date, description,
		        location, verified_by, document_url, created_at
		 FROM provenance_events
		 WHERE listing_id = ?
		 ORDER BY event_date ASC, created_at ASC`,
		listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list provenance events: %w", err)
	}
	defer rows.Close()

	var events []domain.ProvenanceEvent
	for rows.Next() {
		var (
			event     domain.ProvenanceEvent
			eventDate int64
			createdAt int64
		)
		err := rows.Scan(
			&event.ID,
			&event.ListingID,
			(*string)(&event.EventType),
			&eventDate,
			&event.Description,
			&event.Location,
			&event.VerifiedBy,
			&event.DocumentURL,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan provenance event: %w", err)
		}
		event.EventDate = fromMillis(eventDate)
		event.CreatedAt = fromMillis(createdAt)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provenance events: %w", err)
	}
	return events, nil
}
