//go:build integration

// Integration tests for the PostgreSQL repositories.  They require Docker and
// are gated behind the "integration" build tag.
package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/domain/provider"
	"github.com/openregulatory/licensure/internal/infrastructure/database/postgres/repositories"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// startPostgres launches a PostgreSQL 16 container, applies the schema, and
// returns a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "licensure_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/licensure_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applySchema(t, pool)
	return pool
}

func applySchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	ddl := `
	CREATE TABLE IF NOT EXISTS providers (
		id                TEXT PRIMARY KEY,
		compact           TEXT NOT NULL,
		home_jurisdiction TEXT NOT NULL DEFAULT '',
		given_name        TEXT NOT NULL DEFAULT '',
		middle_name       TEXT NOT NULL DEFAULT '',
		family_name       TEXT NOT NULL DEFAULT '',
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS licenses (
		id                        TEXT PRIMARY KEY,
		seq                       BIGSERIAL,
		licensee_id               TEXT NOT NULL,
		is_privilege              BOOLEAN NOT NULL DEFAULT FALSE,
		compact                   TEXT NOT NULL,
		jurisdiction              TEXT NOT NULL,
		license_type              TEXT NOT NULL DEFAULT '',
		license_type_abbreviation TEXT NOT NULL DEFAULT '',
		issue_date                DATE,
		renewal_date              DATE,
		expire_date               DATE,
		active_from_date          DATE,
		status                    TEXT NOT NULL DEFAULT '',
		persisted_status          TEXT NOT NULL DEFAULT '',
		status_description        TEXT NOT NULL DEFAULT '',
		eligibility               TEXT NOT NULL DEFAULT '',
		issue_state_abbreviation  TEXT NOT NULL DEFAULT '',
		issue_state_name          TEXT NOT NULL DEFAULT '',
		mailing_street1           TEXT NOT NULL DEFAULT '',
		mailing_street2           TEXT NOT NULL DEFAULT '',
		mailing_city              TEXT NOT NULL DEFAULT '',
		mailing_state             TEXT NOT NULL DEFAULT '',
		mailing_postal_code       TEXT NOT NULL DEFAULT '',
		history                   JSONB NOT NULL DEFAULT '[]'::jsonb,
		adverse_actions           JSONB NOT NULL DEFAULT '[]'::jsonb,
		investigations            JSONB NOT NULL DEFAULT '[]'::jsonb,
		updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

	_, err := pool.Exec(ctx, ddl)
	require.NoError(t, err)
}

func sampleLicense(id, licenseeID string) *licensing.License {
	end := ltypes.NewDate(2024, time.June, 1)
	return &licensing.License{
		ID:                      id,
		LicenseeID:              licenseeID,
		Compact:                 "aslp",
		Jurisdiction:            "oh",
		LicenseType:             "audiologist",
		LicenseTypeAbbreviation: "aud",
		IssueDate:               ltypes.NewDate(2020, time.January, 15),
		ExpireDate:              ltypes.NewDate(2027, time.January, 15),
		Status:                  ltypes.StatusActive,
		IssueState:              licensing.State{Abbreviation: "oh", Name: "Ohio"},
		History: []licensing.HistoryItem{
			{
				Kind:         ltypes.HistoryItemReal,
				UpdateType:   ltypes.UpdateRenewal,
				DateOfUpdate: ltypes.NewDate(2025, time.January, 10),
			},
		},
		AdverseActions: []licensing.AdverseAction{
			{
				ID:           "aa-1",
				CreationDate: ltypes.NewDate(2023, time.May, 1),
				StartDate:    ltypes.NewDate(2023, time.May, 1),
				EndDate:      &end,
			},
		},
	}
}

func TestLicenseRepository_SaveAndFindByID(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	lic := sampleLicense("lic-1", "prov-1")
	require.NoError(t, repo.Save(ctx, lic))

	got, err := repo.FindByID(ctx, "lic-1")
	require.NoError(t, err)

	assert.Equal(t, lic.LicenseeID, got.LicenseeID)
	assert.True(t, got.IssueDate.Equal(lic.IssueDate))
	assert.True(t, got.ExpireDate.Equal(lic.ExpireDate))
	assert.True(t, got.ActiveFromDate.IsZero())
	require.Len(t, got.History, 1)
	assert.Equal(t, ltypes.UpdateRenewal, got.History[0].UpdateType)
	require.Len(t, got.AdverseActions, 1)
	assert.True(t, got.AdverseActions[0].Lifted())
}

func TestLicenseRepository_SaveIsUpsert(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	lic := sampleLicense("lic-1", "prov-1")
	require.NoError(t, repo.Save(ctx, lic))

	lic.Status = ltypes.StatusInactive
	require.NoError(t, repo.Save(ctx, lic))

	got, err := repo.FindByID(ctx, "lic-1")
	require.NoError(t, err)
	assert.Equal(t, ltypes.StatusInactive, got.Status)
}

func TestLicenseRepository_FindByID_NotFound(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewLicenseRepository(pool, logging.NewNopLogger())

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLicenseNotFound))
}

func TestLicenseRepository_FindByLicensee_PreservesInsertionOrder(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	first := sampleLicense("lic-a", "prov-1")
	second := sampleLicense("prov-1-ky-aud", "prov-1")
	second.IsPrivilege = true
	second.Jurisdiction = "ky"
	require.NoError(t, repo.SaveAll(ctx, []*licensing.License{first, second}))

	got, err := repo.FindByLicensee(ctx, "prov-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "lic-a", got[0].ID)
	assert.Equal(t, "prov-1-ky-aud", got[1].ID)
	assert.True(t, got[1].IsPrivilege)
}

func TestLicenseRepository_FindByJurisdiction_Pages(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		lic := sampleLicense(fmt.Sprintf("lic-%d", i), fmt.Sprintf("prov-%d", i))
		require.NoError(t, repo.Save(ctx, lic))
	}

	got, total, err := repo.FindByJurisdiction(ctx, "aslp", "oh", common.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, got, 2)
}

func TestLicenseRepository_FindExpiring(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	soon := sampleLicense("lic-soon", "prov-1")
	soon.ExpireDate = ltypes.NewDate(2026, time.April, 1)
	later := sampleLicense("lic-later", "prov-2")
	later.ExpireDate = ltypes.NewDate(2027, time.April, 1)
	require.NoError(t, repo.SaveAll(ctx, []*licensing.License{soon, later}))

	got, err := repo.FindExpiring(ctx, "2026-03-15", 30)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lic-soon", got[0].ID)
}

func TestLicenseRepository_Delete(t *testing.T) {
	pool := startPostgres(t)
	repo := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleLicense("lic-1", "prov-1")))
	require.NoError(t, repo.Delete(ctx, "lic-1"))

	err := repo.Delete(ctx, "lic-1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLicenseNotFound))
}

func TestProviderRepository_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	licenses := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	repo := repositories.NewProviderRepository(pool, licenses, logging.NewNopLogger())
	ctx := context.Background()

	p := &provider.Provider{
		ID:               "prov-1",
		Compact:          "aslp",
		HomeJurisdiction: "oh",
		GivenName:        "Jane",
		FamilyName:       "Doe",
	}
	require.NoError(t, repo.Save(ctx, p))
	require.NoError(t, licenses.Save(ctx, sampleLicense("lic-1", "prov-1")))

	got, err := repo.FindByID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.FullName())
	require.Len(t, got.Licenses, 1)
	assert.Equal(t, "lic-1", got.Licenses[0].ID)
}

func TestProviderRepository_FindByCompact(t *testing.T) {
	pool := startPostgres(t)
	licenses := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	repo := repositories.NewProviderRepository(pool, licenses, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &provider.Provider{ID: "p1", Compact: "aslp", FamilyName: "Adams"}))
	require.NoError(t, repo.Save(ctx, &provider.Provider{ID: "p2", Compact: "aslp", FamilyName: "Brown"}))
	require.NoError(t, repo.Save(ctx, &provider.Provider{ID: "p3", Compact: "ot", FamilyName: "Clark"}))

	got, total, err := repo.FindByCompact(ctx, "aslp", common.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, got, 2)
	assert.Equal(t, "Adams", got[0].FamilyName)
}

func TestProviderRepository_NotFound(t *testing.T) {
	pool := startPostgres(t)
	licenses := repositories.NewLicenseRepository(pool, logging.NewNopLogger())
	repo := repositories.NewProviderRepository(pool, licenses, logging.NewNopLogger())

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProviderNotFound))
}
