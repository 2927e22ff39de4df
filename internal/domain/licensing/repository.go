package licensing

import (
	"context"

	"github.com/openregulatory/licensure/pkg/types/common"
)

// Repository is the persistence contract for canonical license entities.
// Implementations live in internal/infrastructure/database/postgres.
type Repository interface {
	// Save upserts a license keyed by its canonical ID.
	Save(ctx context.Context, lic *License) error

	// SaveAll upserts a batch inside a single transaction.
	SaveAll(ctx context.Context, lics []*License) error

	// FindByID returns the license with the given canonical ID, or an
	// ErrCodeLicenseNotFound error.
	FindByID(ctx context.Context, id string) (*License, error)

	// FindByLicensee returns every license and privilege held by a licensee,
	// in upstream insertion order.
	FindByLicensee(ctx context.Context, licenseeID string) ([]*License, error)

	// FindByJurisdiction pages through licenses issued by one member state of
	// a compact.
	FindByJurisdiction(ctx context.Context, compact, jurisdiction string, page common.Pagination) ([]*License, int64, error)

	// FindExpiring returns licenses whose expiration date falls within the
	// next withinDays days relative to asOf, for renewal outreach.
	FindExpiring(ctx context.Context, asOf string, withinDays int) ([]*License, error)

	// Delete removes a license by canonical ID.
	Delete(ctx context.Context, id string) error
}

// SearchIndex is the secondary-index contract used for staff licensee
// search.  Implementations live in internal/infrastructure/search.
type SearchIndex interface {
	// Index upserts a license document into the search index.
	Index(ctx context.Context, lic *License) error

	// Remove deletes a license document from the index.
	Remove(ctx context.Context, id string) error

	// Search runs a faceted query over the index.
	Search(ctx context.Context, query SearchQuery) ([]SearchHit, int64, error)
}

// SearchQuery is a faceted licensee search request.
type SearchQuery struct {
	Text         string
	Compact      string
	Jurisdiction string
	LicenseType  string
	Page         common.Pagination
}

// SearchHit is one search result row.
type SearchHit struct {
	LicenseID  string
	LicenseeID string
	Score      float64
}
