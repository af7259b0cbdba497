package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
)

var (
	ErrEndorsementExpertNameEmpty = apperrors.New(apperrors.CodeEndorsementExpertNameEmpty, "endorsement expert name is empty")
	ErrEndorsementTextEmpty       = apperrors.New(apperrors.CodeEndorsementTextEmpty, "endorsement text is empty")
)

// Endorsement is an expert statement attached to a listing, optionally
// confirming authenticity.
type Endorsement struct {
	ID        string
	ListingID string

	ExpertID          string
	ExpertName        string
	ExpertTitle       string
	ExpertCredentials string

	Text                  string
	AuthenticityConfirmed bool

	CreatedAt time.Time
}

// CreateEndorsementInput carries the caller-provided endorsement fields.
type CreateEndorsementInput struct {
	ListingID             string
	ExpertID              string
	ExpertName            string
	ExpertTitle           string
	ExpertCredentials     string
	Text                  string
	AuthenticityConfirmed bool
}

// NormalizeCreateEndorsementInput trims surrounding whitespace from the
// free-text fields.
func NormalizeCreateEndorsementInput(input CreateEndorsementInput) CreateEndorsementInput {
	input.ExpertName = strings.TrimSpace(input.ExpertName)
	input.ExpertTitle = strings.TrimSpace(input.ExpertTitle)
	input.ExpertCredentials = strings.TrimSpace(input.ExpertCredentials)
	input.Text = strings.TrimSpace(input.Text)
	return input
}

// CreateEndorsement validates input and assembles a new endorsement.
func CreateEndorsement(input CreateEndorsementInput, now func() time.Time, idGenerator func() (string, error)) (Endorsement, error) {
	input = NormalizeCreateEndorsementInput(input)

	if input.ExpertName == "" {
		return Endorsement{}, ErrEndorsementExpertNameEmpty
	}
	if input.Text == "" {
		return Endorsement{}, ErrEndorsementTextEmpty
	}

	id, err := idGenerator()
	if err != nil {
		return Endorsement{}, fmt.Errorf("generate endorsement id: %w", err)
	}

	return Endorsement{
		ID:                    id,
		ListingID:             input.ListingID,
		ExpertID:              input.ExpertID,
		ExpertName:            input.ExpertName,
		ExpertTitle:           input.ExpertTitle,
		ExpertCredentials:     input.ExpertCredentials,
		Text:                  input.Text,
		AuthenticityConfirmed: input.AuthenticityConfirmed,
		CreatedAt:             now().UTC(),
	}, nil
}
