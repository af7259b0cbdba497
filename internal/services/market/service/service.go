// Package service implements the marketplace operations on top of the
// storage contracts: authorization, state-machine enforcement, and the
// denormalized counters that keep browsing fast.
package service

import (
	"errors"
	"time"

	apperrors "github.com/ryanvernados/artmatch-ai/internal/errors"
	"github.com/ryanvernados/artmatch-ai/internal/platform/id"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Deps carries the shared dependencies every marketplace service needs. Now
// and NewID default to the real clock and generator; tests pin them.
type Deps struct {
	Store storage.Store
	Now   func() time.Time
	NewID func() (string, error)
}

func (d Deps) normalize() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = id.NewID
	}
	return d
}

// requireAdmin rejects non-admin actors.
func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.New(apperrors.CodeAdminRequired, "admin role is required")
	}
	return nil
}

// storeError translates storage sentinels into domain errors, using notFound
// for missing records.
func storeError(err error, notFoundMessage string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.New(apperrors.CodeNotFound, notFoundMessage)
	default:
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "storage operation failed", err)
	}
}
