package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/id"
)

// ProvenanceEventType classifies an entry in a listing's history.
type ProvenanceEventType string

const (
	ProvenanceEventCreation       ProvenanceEventType = "creation"
	ProvenanceEventExhibition     ProvenanceEventType = "exhibition"
	ProvenanceEventSale           ProvenanceEventType = "sale"
	ProvenanceEventAuthentication ProvenanceEventType = "authentication"
	ProvenanceEventRestoration    ProvenanceEventType = "restoration"
	ProvenanceEventTransfer       ProvenanceEventType = "transfer"
)

var (
	// ErrProvenanceInvalidEventType indicates an unrecognized event type.
	ErrProvenanceInvalidEventType = apperrors.New(apperrors.CodeProvenanceInvalidEventType, "provenance event type is not recognized")
	// ErrProvenanceDescriptionEmpty indicates a missing event description.
	ErrProvenanceDescriptionEmpty = apperrors.New(apperrors.CodeProvenanceDescriptionEmpty, "provenance event description is required")
)

// ProvenanceEvent is one append-only record in a listing's ownership and
// authentication history. Events are never mutated or deleted.
type ProvenanceEvent struct {
	ID          string
	ListingID   string
	EventType   ProvenanceEventType
	EventDate   time.Time
	Description string
	Location    string
	VerifiedBy  string
	DocumentURL string
	CreatedAt   time.Time
}

// CreateProvenanceEventInput describes a history entry to append.
type CreateProvenanceEventInput struct {
	ListingID   string
	EventType   ProvenanceEventType
	EventDate   time.Time
	Description string
	Location    string
	VerifiedBy  string
	DocumentURL string
}

// CreateProvenanceEvent validates and builds a provenance entry.
func CreateProvenanceEvent(input CreateProvenanceEventInput, now func() time.Time, idGenerator func() (string, error)) (ProvenanceEvent, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	if !validProvenanceEventType(input.EventType) {
		return ProvenanceEvent{}, ErrProvenanceInvalidEventType
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return ProvenanceEvent{}, ErrProvenanceDescriptionEmpty
	}

	eventID, err := idGenerator()
	if err != nil {
		return ProvenanceEvent{}, fmt.Errorf("generate provenance event id: %w", err)
	}

	createdAt := now().UTC()
	eventDate := input.EventDate.UTC()
	if input.EventDate.IsZero() {
		eventDate = createdAt
	}
	return ProvenanceEvent{
		ID:          eventID,
		ListingID:   strings.TrimSpace(input.ListingID),
		EventType:   input.EventType,
		EventDate:   eventDate,
		Description: description,
		Location:    strings.TrimSpace(input.Location),
		VerifiedBy:  strings.TrimSpace(input.VerifiedBy),
		DocumentURL: strings.TrimSpace(input.DocumentURL),
		CreatedAt:   createdAt,
	}, nil
}

func validProvenanceEventType(eventType ProvenanceEventType) bool {
	switch eventType {
	case ProvenanceEventCreation,
		ProvenanceEventExhibition,
		ProvenanceEventSale,
		ProvenanceEventAuthentication,
		ProvenanceEventRestoration,
		ProvenanceEventTransfer:
		return true
	default:
		return false
	}
}
