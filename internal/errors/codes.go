package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Listing errors
	CodeListingTitleEmpty               Code = "LISTING_TITLE_EMPTY"
	CodeListingArtistEmpty              Code = "LISTING_ARTIST_EMPTY"
	CodeListingInvalidPrice             Code = "LISTING_INVALID_PRICE"
	CodeListingInvalidStatusTransition  Code = "LISTING_INVALID_STATUS_TRANSITION"
	CodeListingNotPurchasable           Code = "LISTING_NOT_PURCHASABLE"
	CodeListingReservedDisallowsArchive Code = "LISTING_RESERVED_DISALLOWS_ARCHIVE"
	CodeListingAlreadyReserved          Code = "LISTING_ALREADY_RESERVED"
	CodeListingInvalidOrderBy           Code = "LISTING_INVALID_ORDER_BY"

	// Transaction errors
	CodeTransactionOwnListing              Code = "TRANSACTION_OWN_LISTING"
	CodeTransactionInvalidStatusTransition Code = "TRANSACTION_INVALID_STATUS_TRANSITION"
	CodeTransactionDeliveryNotStarted      Code = "TRANSACTION_DELIVERY_NOT_STARTED"
	CodeTransactionShippingMissing         Code = "TRANSACTION_SHIPPING_MISSING"
	CodeTransactionInvalidRole             Code = "TRANSACTION_INVALID_ROLE"

	// Review errors
	CodeReviewInvalidRating Code = "REVIEW_INVALID_RATING"
	CodeReviewTargetMissing Code = "REVIEW_TARGET_MISSING"

	// Provenance errors
	CodeProvenanceInvalidEventType Code = "PROVENANCE_INVALID_EVENT_TYPE"
	CodeProvenanceDescriptionEmpty Code = "PROVENANCE_DESCRIPTION_EMPTY"

	// Endorsement errors
	CodeEndorsementExpertNameEmpty Code = "ENDORSEMENT_EXPERT_NAME_EMPTY"
	CodeEndorsementTextEmpty       Code = "ENDORSEMENT_TEXT_EMPTY"

	// Verification errors
	CodeVerificationInvalidOutcome    Code = "VERIFICATION_INVALID_OUTCOME"
	CodeVerificationInvalidConfidence Code = "VERIFICATION_INVALID_CONFIDENCE"

	// Authorization errors
	CodeNotListingOwner      Code = "NOT_LISTING_OWNER"
	CodeNotTransactionBuyer  Code = "NOT_TRANSACTION_BUYER"
	CodeNotTransactionSeller Code = "NOT_TRANSACTION_SELLER"
	CodeNotTransactionParty  Code = "NOT_TRANSACTION_PARTY"
	CodeAdminRequired        Code = "ADMIN_REQUIRED"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// Kind buckets error codes into the caller-facing taxonomy: validation,
// not-found, authorization, conflict, and dependency failures.
type Kind int

const (
	// KindUnknown is an unclassified failure.
	KindUnknown Kind = iota
	// KindValidation marks malformed input.
	KindValidation
	// KindNotFound marks a missing referenced record.
	KindNotFound
	// KindAuthorization marks an actor lacking required ownership or role.
	KindAuthorization
	// KindConflict marks a state-machine precondition violation.
	KindConflict
	// KindDependency marks an unreachable store; retryable with backoff.
	KindDependency
)

// Kind classifies the code for callers that branch on failure class rather
// than individual codes.
func (c Code) Kind() Kind {
	switch c {
	case CodeListingTitleEmpty,
		CodeListingArtistEmpty,
		CodeListingInvalidPrice,
		CodeListingInvalidOrderBy,
		CodeTransactionShippingMissing,
		CodeTransactionInvalidRole,
		CodeReviewInvalidRating,
		CodeReviewTargetMissing,
		CodeProvenanceInvalidEventType,
		CodeProvenanceDescriptionEmpty,
		CodeEndorsementExpertNameEmpty,
		CodeEndorsementTextEmpty,
		CodeVerificationInvalidOutcome,
		CodeVerificationInvalidConfidence:
		return KindValidation

	case CodeNotFound:
		return KindNotFound

	case CodeNotListingOwner,
		CodeNotTransactionBuyer,
		CodeNotTransactionSeller,
		CodeNotTransactionParty,
		CodeAdminRequired:
		return KindAuthorization

	case CodeListingInvalidStatusTransition,
		CodeListingNotPurchasable,
		CodeListingReservedDisallowsArchive,
		CodeListingAlreadyReserved,
		CodeTransactionOwnListing,
		CodeTransactionInvalidStatusTransition,
		CodeTransactionDeliveryNotStarted:
		return KindConflict

	case CodeStoreUnavailable:
		return KindDependency

	default:
		return KindUnknown
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c.Kind() {
	case KindValidation:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindAuthorization:
		return codes.PermissionDenied
	case KindConflict:
		return codes.FailedPrecondition
	case KindDependency:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
