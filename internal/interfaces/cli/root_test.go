package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applicensing "github.com/openregulatory/licensure/internal/application/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

type fakeLicenseService struct {
	gotID   string
	gotAsOf ltypes.Date

	license  *ltypes.LicenseDTO
	timeline []ltypes.HistoryItemDTO
	err      error
}

func (f *fakeLicenseService) Get(_ context.Context, id string, asOf ltypes.Date) (*ltypes.LicenseDTO, error) {
	f.gotID, f.gotAsOf = id, asOf
	return f.license, f.err
}

func (f *fakeLicenseService) ListByLicensee(_ context.Context, _ string, _ ltypes.Date) ([]*ltypes.LicenseDTO, error) {
	return nil, nil
}

func (f *fakeLicenseService) ListByJurisdiction(_ context.Context, _ *applicensing.ListInput) (*applicensing.ListResult, error) {
	return nil, nil
}

func (f *fakeLicenseService) Timeline(_ context.Context, id string, asOf ltypes.Date) ([]ltypes.HistoryItemDTO, error) {
	f.gotID, f.gotAsOf = id, asOf
	return f.timeline, f.err
}

func (f *fakeLicenseService) Search(_ context.Context, _ *applicensing.SearchInput) (*applicensing.SearchResult, error) {
	return nil, nil
}

func (f *fakeLicenseService) Ingest(_ context.Context, _ []ltypes.RawRecord) (*applicensing.IngestResult, error) {
	return nil, nil
}

type fakeReindexer struct {
	stats *applicensing.ReindexStats
	err   error
	runs  int
}

func (f *fakeReindexer) Run(_ context.Context) (*applicensing.ReindexStats, error) {
	f.runs++
	return f.stats, f.err
}

func execute(t *testing.T, deps *Dependencies, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testDeps(svc *fakeLicenseService, reindexer *fakeReindexer) *Dependencies {
	deps := &Dependencies{
		Licenses: svc,
		Logger:   logging.NewNopLogger(),
	}
	// Assign conditionally so a nil *fakeReindexer stays a nil interface.
	if reindexer != nil {
		deps.Reindexer = reindexer
	}
	return deps
}

func TestLookup_TextOutput(t *testing.T) {
	asOf, _ := ltypes.ParseDate("2024-06-01")
	svc := &fakeLicenseService{license: &ltypes.LicenseDTO{
		ID:           "aud-oh-1",
		LicenseeID:   "prov-1",
		Jurisdiction: "oh",
		LicenseType:  "audiologist",
		Status:       ltypes.StatusActive,
		Derived:      ltypes.DerivedStatusDTO{AsOf: asOf, CompactEligible: true},
	}}

	out, err := execute(t, testDeps(svc, nil), "lookup", "aud-oh-1")
	require.NoError(t, err)

	assert.Equal(t, "aud-oh-1", svc.gotID)
	assert.Contains(t, out, "audiologist")
	assert.Contains(t, out, "active")
	assert.Contains(t, out, "Compact eligible")
}

func TestLookup_JSONOutput(t *testing.T) {
	svc := &fakeLicenseService{license: &ltypes.LicenseDTO{ID: "aud-oh-1", Status: ltypes.StatusActive}}

	out, err := execute(t, testDeps(svc, nil), "lookup", "aud-oh-1", "-o", "json")
	require.NoError(t, err)

	var dto ltypes.LicenseDTO
	require.NoError(t, json.Unmarshal([]byte(out), &dto))
	assert.Equal(t, "aud-oh-1", dto.ID)
}

func TestLookup_PassesAsOf(t *testing.T) {
	svc := &fakeLicenseService{license: &ltypes.LicenseDTO{ID: "aud-oh-1"}}

	_, err := execute(t, testDeps(svc, nil), "lookup", "aud-oh-1", "--as-of", "2023-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-15", svc.gotAsOf.String())
}

func TestLookup_BadAsOf(t *testing.T) {
	svc := &fakeLicenseService{}

	_, err := execute(t, testDeps(svc, nil), "lookup", "aud-oh-1", "--as-of", "someday")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidDate))
	assert.Empty(t, svc.gotID)
}

func TestLookup_ServiceError(t *testing.T) {
	svc := &fakeLicenseService{err: errors.New(errors.ErrCodeLicenseNotFound, "license not found")}

	_, err := execute(t, testDeps(svc, nil), "lookup", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestTimeline_TableOutput(t *testing.T) {
	date, _ := ltypes.ParseDate("2020-03-01")
	svc := &fakeLicenseService{timeline: []ltypes.HistoryItemDTO{
		{Kind: ltypes.HistoryItemReal, UpdateType: ltypes.UpdateRenewal, DateOfUpdate: date},
		{Kind: ltypes.HistoryItemFabricated, UpdateType: ltypes.UpdateExpiration, Note: "derived from expire_date"},
	}}

	out, err := execute(t, testDeps(svc, nil), "timeline", "aud-oh-1")
	require.NoError(t, err)

	assert.Contains(t, out, "renewal")
	assert.Contains(t, out, "2020-03-01")
	assert.Contains(t, out, "fabricated")
}

func TestTimeline_Empty(t *testing.T) {
	svc := &fakeLicenseService{}

	out, err := execute(t, testDeps(svc, nil), "timeline", "aud-oh-1")
	require.NoError(t, err)
	assert.Contains(t, out, "no history recorded")
}

func TestReindex_PrintsSummary(t *testing.T) {
	reindexer := &fakeReindexer{stats: &applicensing.ReindexStats{
		Scanned: 10, Indexed: 9, Failed: 1, Elapsed: 2 * time.Second,
	}}

	out, err := execute(t, testDeps(&fakeLicenseService{}, reindexer), "reindex")
	require.NoError(t, err)

	assert.Equal(t, 1, reindexer.runs)
	assert.Contains(t, out, "reindexed 9 of 10 licenses (1 failed)")
}

func TestReindex_LockHeldElsewhere(t *testing.T) {
	reindexer := &fakeReindexer{err: errors.New(errors.ErrCodeCacheError, "lock not acquired")}

	_, err := execute(t, testDeps(&fakeLicenseService{}, reindexer), "reindex")
	require.Error(t, err)
}

func TestReindex_WithoutIndexConfigured(t *testing.T) {
	_, err := execute(t, testDeps(&fakeLicenseService{}, nil), "reindex")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotImplemented))
}

func TestLookup_RequiresArgument(t *testing.T) {
	_, err := execute(t, testDeps(&fakeLicenseService{}, nil), "lookup")
	require.Error(t, err)
}

func TestFormatTable_Aligns(t *testing.T) {
	out := formatTable([]string{"A", "Long"}, [][]string{{"xx", "y"}})

	assert.Contains(t, out, "A   Long")
	assert.Contains(t, out, "--  ----")
}
