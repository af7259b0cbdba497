package domain

import "time"

// Favorite links a user to a listing they saved. The pair is unique; adding
// an existing favorite is a no-op at the storage layer.
type Favorite struct {
	UserID    string
	ListingID string
	CreatedAt time.Time
}
