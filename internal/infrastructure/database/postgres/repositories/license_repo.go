package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

const licenseColumns = `
	id, licensee_id, is_privilege, compact,
	jurisdiction, license_type, license_type_abbreviation,
	issue_date, renewal_date, expire_date, active_from_date,
	status, persisted_status, status_description, eligibility,
	issue_state_abbreviation, issue_state_name,
	mailing_street1, mailing_street2, mailing_city, mailing_state, mailing_postal_code,
	history, adverse_actions, investigations`

// LicenseRepository is the PostgreSQL implementation of the licensing
// repository contract.  History, adverse actions, and investigations are
// stored as JSONB documents on the license row: they are always read and
// written with the entity, never queried independently, and their upstream
// ordering must survive round-trips exactly.
type LicenseRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewLicenseRepository constructs a ready-to-use LicenseRepository.
func NewLicenseRepository(pool *pgxpool.Pool, log logging.Logger) *LicenseRepository {
	return &LicenseRepository{pool: pool, logger: log}
}

var _ licensing.Repository = (*LicenseRepository)(nil)

// Save upserts a single license keyed by its canonical ID.
func (r *LicenseRepository) Save(ctx context.Context, lic *licensing.License) error {
	if err := r.upsert(ctx, r.pool, lic); err != nil {
		return err
	}
	r.logger.Debug("license saved", logging.String("license_id", lic.ID))
	return nil
}

// SaveAll upserts a batch inside a single transaction.  One upstream message
// carries every license of a provider; partial persistence would leave the
// provider aggregate torn.
func (r *LicenseRepository) SaveAll(ctx context.Context, lics []*licensing.License) error {
	if len(lics) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "beginning transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, lic := range lics {
		if err := r.upsert(ctx, tx, lic); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "committing transaction")
	}
	r.logger.Debug("license batch saved", logging.Int("count", len(lics)))
	return nil
}

// execer covers both *pgxpool.Pool and pgx.Tx for the upsert.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *LicenseRepository) upsert(ctx context.Context, q execer, lic *licensing.License) error {
	historyJSON, err := json.Marshal(lic.History)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "encoding history")
	}
	adverseJSON, err := json.Marshal(lic.AdverseActions)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "encoding adverse actions")
	}
	investigationsJSON, err := json.Marshal(lic.Investigations)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "encoding investigations")
	}

	_, err = q.Exec(ctx, `
		INSERT INTO licenses (
			id, licensee_id, is_privilege, compact,
			jurisdiction, license_type, license_type_abbreviation,
			issue_date, renewal_date, expire_date, active_from_date,
			status, persisted_status, status_description, eligibility,
			issue_state_abbreviation, issue_state_name,
			mailing_street1, mailing_street2, mailing_city, mailing_state, mailing_postal_code,
			history, adverse_actions, investigations, updated_at
		) VALUES (
			$1,$2,$3,$4,
			$5,$6,$7,
			$8,$9,$10,$11,
			$12,$13,$14,$15,
			$16,$17,
			$18,$19,$20,$21,$22,
			$23,$24,$25,$26
		)
		ON CONFLICT (id) DO UPDATE SET
			licensee_id = EXCLUDED.licensee_id,
			is_privilege = EXCLUDED.is_privilege,
			compact = EXCLUDED.compact,
			jurisdiction = EXCLUDED.jurisdiction,
			license_type = EXCLUDED.license_type,
			license_type_abbreviation = EXCLUDED.license_type_abbreviation,
			issue_date = EXCLUDED.issue_date,
			renewal_date = EXCLUDED.renewal_date,
			expire_date = EXCLUDED.expire_date,
			active_from_date = EXCLUDED.active_from_date,
			status = EXCLUDED.status,
			persisted_status = EXCLUDED.persisted_status,
			status_description = EXCLUDED.status_description,
			eligibility = EXCLUDED.eligibility,
			issue_state_abbreviation = EXCLUDED.issue_state_abbreviation,
			issue_state_name = EXCLUDED.issue_state_name,
			mailing_street1 = EXCLUDED.mailing_street1,
			mailing_street2 = EXCLUDED.mailing_street2,
			mailing_city = EXCLUDED.mailing_city,
			mailing_state = EXCLUDED.mailing_state,
			mailing_postal_code = EXCLUDED.mailing_postal_code,
			history = EXCLUDED.history,
			adverse_actions = EXCLUDED.adverse_actions,
			investigations = EXCLUDED.investigations,
			updated_at = EXCLUDED.updated_at`,
		lic.ID, lic.LicenseeID, lic.IsPrivilege, lic.Compact,
		lic.Jurisdiction, lic.LicenseType, lic.LicenseTypeAbbreviation,
		sqlDate(lic.IssueDate), sqlDate(lic.RenewalDate), sqlDate(lic.ExpireDate), sqlDate(lic.ActiveFromDate),
		string(lic.Status), string(lic.PersistedStatus), lic.StatusDescription, string(lic.Eligibility),
		lic.IssueState.Abbreviation, lic.IssueState.Name,
		lic.MailingAddress.Street1, lic.MailingAddress.Street2, lic.MailingAddress.City,
		lic.MailingAddress.State, lic.MailingAddress.PostalCode,
		historyJSON, adverseJSON, investigationsJSON, time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("license upsert failed", logging.String("license_id", lic.ID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "upserting license")
	}
	return nil
}

// FindByID returns the license with the given canonical ID.
func (r *LicenseRepository) FindByID(ctx context.Context, id string) (*licensing.License, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM licenses WHERE id = $1`, licenseColumns), id)

	lic, err := scanLicense(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New(errors.ErrCodeLicenseNotFound, "license not found").
				WithDetail(fmt.Sprintf("id=%s", id))
		}
		r.logger.Error("license lookup failed", logging.String("license_id", id), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying license")
	}
	return lic, nil
}

// FindByLicensee returns every license and privilege held by a licensee, in
// upstream insertion order (the seq column preserves arrival order).
func (r *LicenseRepository) FindByLicensee(ctx context.Context, licenseeID string) ([]*licensing.License, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM licenses WHERE licensee_id = $1 ORDER BY seq ASC`, licenseColumns),
		licenseeID)
	if err != nil {
		r.logger.Error("licensee license query failed", logging.String("licensee_id", licenseeID), logging.Err(err))
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying licenses by licensee")
	}
	defer rows.Close()

	return scanLicenses(rows)
}

// FindByJurisdiction pages through the licenses a single member state issued.
func (r *LicenseRepository) FindByJurisdiction(ctx context.Context, compact, jurisdiction string, page common.Pagination) ([]*licensing.License, int64, error) {
	const where = `WHERE compact = $1 AND jurisdiction = $2`

	var total int64
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM licenses %s`, where), compact, jurisdiction,
	).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting licenses")
	}

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM licenses %s ORDER BY licensee_id, seq LIMIT $3 OFFSET $4`,
			licenseColumns, where),
		compact, jurisdiction, page.PageSize, page.Offset())
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying licenses by jurisdiction")
	}
	defer rows.Close()

	lics, err := scanLicenses(rows)
	if err != nil {
		return nil, 0, err
	}
	return lics, total, nil
}

// FindExpiring returns licenses whose expiration falls within the next
// withinDays days of asOf, ordered soonest first.
func (r *LicenseRepository) FindExpiring(ctx context.Context, asOf string, withinDays int) ([]*licensing.License, error) {
	from, err := ltypes.ParseDate(asOf)
	if err != nil || from.IsZero() {
		return nil, errors.New(errors.ErrCodeInvalidDate, "invalid reference date").
			WithDetail(fmt.Sprintf("as_of=%s", asOf))
	}
	to := from.AddDate(0, 0, withinDays)

	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM licenses
			WHERE expire_date >= $1 AND expire_date <= $2
			ORDER BY expire_date ASC`, licenseColumns),
		from.Time(), to.Time())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "querying expiring licenses")
	}
	defer rows.Close()

	return scanLicenses(rows)
}

// Delete removes a license by canonical ID.
func (r *LicenseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM licenses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "deleting license")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeLicenseNotFound, "license not found").
			WithDetail(fmt.Sprintf("id=%s", id))
	}
	return nil
}

func scanLicense(row pgx.Row) (*licensing.License, error) {
	var (
		lic                                  licensing.License
		issue, renewal, expire, activeFrom   *time.Time
		status, persisted, eligibility       string
		historyJSON, adverseJSON, investJSON []byte
	)

	err := row.Scan(
		&lic.ID, &lic.LicenseeID, &lic.IsPrivilege, &lic.Compact,
		&lic.Jurisdiction, &lic.LicenseType, &lic.LicenseTypeAbbreviation,
		&issue, &renewal, &expire, &activeFrom,
		&status, &persisted, &lic.StatusDescription, &eligibility,
		&lic.IssueState.Abbreviation, &lic.IssueState.Name,
		&lic.MailingAddress.Street1, &lic.MailingAddress.Street2, &lic.MailingAddress.City,
		&lic.MailingAddress.State, &lic.MailingAddress.PostalCode,
		&historyJSON, &adverseJSON, &investJSON,
	)
	if err != nil {
		return nil, err
	}

	lic.IssueDate = dateFromSQL(issue)
	lic.RenewalDate = dateFromSQL(renewal)
	lic.ExpireDate = dateFromSQL(expire)
	lic.ActiveFromDate = dateFromSQL(activeFrom)
	lic.Status = ltypes.LicenseStatus(status)
	lic.PersistedStatus = ltypes.LicenseStatus(persisted)
	lic.Eligibility = ltypes.Eligibility(eligibility)

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &lic.History); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "decoding history")
		}
	}
	if len(adverseJSON) > 0 {
		if err := json.Unmarshal(adverseJSON, &lic.AdverseActions); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "decoding adverse actions")
		}
	}
	if len(investJSON) > 0 {
		if err := json.Unmarshal(investJSON, &lic.Investigations); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "decoding investigations")
		}
	}
	return &lic, nil
}

func scanLicenses(rows pgx.Rows) ([]*licensing.License, error) {
	var lics []*licensing.License
	for rows.Next() {
		lic, err := scanLicense(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning license row")
		}
		lics = append(lics, lic)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating license rows")
	}
	return lics, nil
}
