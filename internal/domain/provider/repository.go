package provider

import (
	"context"

	"github.com/openregulatory/licensure/pkg/types/common"
)

// Repository is the persistence contract for provider aggregates.
// Implementations live in internal/infrastructure/database/postgres and
// hydrate Licenses from the licensing repository's tables.
type Repository interface {
	// Save upserts the provider row; licenses are persisted through the
	// licensing repository, not here.
	Save(ctx context.Context, p *Provider) error

	// FindByID returns the full aggregate, licenses included, or an
	// ErrCodeProviderNotFound error.
	FindByID(ctx context.Context, id string) (*Provider, error)

	// FindByCompact pages through a compact's providers.  Licenses are not
	// hydrated on list reads.
	FindByCompact(ctx context.Context, compact string, page common.Pagination) ([]*Provider, int64, error)

	// Delete removes a provider by ID.
	Delete(ctx context.Context, id string) error
}
