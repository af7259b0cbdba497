package domain

import "time"

// Role gates administrative operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated caller supplied by the identity layer above the
// core. The core never issues sessions; it only checks ownership and role.
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// User is the profile slice the marketplace core owns: identity, the seller
// trust badge, and reputation counters.
type User struct {
	ID               string
	DisplayName      string
	Role             Role
	IsSeller         bool
	IsVerifiedSeller bool

	TotalSales     int64
	TotalPurchases int64
	AverageRating  float64
	TotalReviews   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
