package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openregulatory/licensure/internal/domain/provider"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
)

// ProviderRepository is the PostgreSQL implementation of the provider
// repository contract.  The provider row carries only identity; the license
// aggregate is hydrated from the licenses table through LicenseRepository.
type ProviderRepository struct {
	pool     *pgxpool.Pool
	licenses *LicenseRepository
	logger   logging.Logger
}

// NewProviderRepository constructs a ready-to-use ProviderRepository.
func NewProviderRepository(pool *pgxpool.Pool, licenses *LicenseRepository, log logging.Logger) *ProviderRepository {
	return &ProviderRepository{pool: pool, licenses: licenses, logger: log}
}

var _ provider.Repository = (*ProviderRepository)(nil)

// Save upserts the provider row.  Licenses are persisted through the
// licensing repository, not here.
func (r *ProviderRepository) Save(ctx context.Context, p *provider.Provider) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO providers (
			id, compact, home_jurisdiction, given_name, middle_name, family_name, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			compact = EXCLUDED.compact,
			home_jurisdiction = EXCLUDED.home_jurisdiction,
			given_name = EXCLUDED.given_name,
			middle_name = EXCLUDED.middle_name,
			family_name = EXCLUDED.family_name,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Compact, p.HomeJurisdiction, p.GivenName, p.MiddleName, p.FamilyName, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("provider upsert failed", logging.String("provider_id", p.ID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "upserting provider")
	}
	r.logger.Debug("provider saved", logging.String("provider_id", p.ID))
	return nil
}

// FindByID returns the full aggregate, licenses included.
func (r *ProviderRepository) FindByID(ctx context.Context, id string) (*provider.Provider, error) {
	p, err := r.scanProvider(r.pool.QueryRow(ctx, `
		SELECT id, compact, home_jurisdiction, given_name, middle_name, family_name
		FROM providers WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	lics, err := r.licenses.FindByLicensee(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Licenses = lics
	return p, nil
}

// FindByCompact pages through a compact's providers.  Licenses are not
// hydrated on list reads.
func (r *ProviderRepository) FindByCompact(ctx context.Context, compact string, page common.Pagination) ([]*provider.Provider, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM providers WHERE compact = $1`, compact,
	).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting providers")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, compact, home_jurisdiction, given_name, middle_name, family_name
		FROM providers WHERE compact = $1
		ORDER BY family_name, given_name, id
		LIMIT $2 OFFSET $3`,
		compact, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying providers by compact")
	}
	defer rows.Close()

	var providers []*provider.Provider
	for rows.Next() {
		p, err := r.scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating provider rows")
	}
	return providers, total, nil
}

// Delete removes a provider by ID.
func (r *ProviderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "deleting provider")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeProviderNotFound, "provider not found").
			WithDetail(fmt.Sprintf("id=%s", id))
	}
	return nil
}

func (r *ProviderRepository) scanProvider(row pgx.Row) (*provider.Provider, error) {
	var p provider.Provider
	err := row.Scan(&p.ID, &p.Compact, &p.HomeJurisdiction, &p.GivenName, &p.MiddleName, &p.FamilyName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrCodeProviderNotFound, "provider not found")
		}
		r.logger.Error("provider scan failed", logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning provider row")
	}
	return &p, nil
}
