package licensing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/testutil"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

type fakeRepo struct {
	store    map[string]*domain.License
	saveErr  error
	saveCnt  int
	batchCnt int
}

func newFakeRepo(lics ...*domain.License) *fakeRepo {
	r := &fakeRepo{store: make(map[string]*domain.License)}
	for _, lic := range lics {
		r.store[lic.ID] = lic
	}
	return r
}

func (r *fakeRepo) Save(_ context.Context, lic *domain.License) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saveCnt++
	r.store[lic.ID] = lic
	return nil
}

func (r *fakeRepo) SaveAll(ctx context.Context, lics []*domain.License) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.batchCnt++
	for _, lic := range lics {
		r.store[lic.ID] = lic
	}
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*domain.License, error) {
	lic, ok := r.store[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeLicenseNotFound, "license not found")
	}
	return lic, nil
}

func (r *fakeRepo) FindByLicensee(_ context.Context, licenseeID string) ([]*domain.License, error) {
	var out []*domain.License
	for _, lic := range r.store {
		if lic.LicenseeID == licenseeID {
			out = append(out, lic)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindByJurisdiction(_ context.Context, compact, jurisdiction string, _ common.Pagination) ([]*domain.License, int64, error) {
	var out []*domain.License
	for _, lic := range r.store {
		if lic.Compact == compact && lic.Jurisdiction == jurisdiction {
			out = append(out, lic)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) FindExpiring(_ context.Context, _ string, _ int) ([]*domain.License, error) {
	return nil, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	delete(r.store, id)
	return nil
}

type fakeIndex struct {
	indexed []string
	hits    []domain.SearchHit
	total   int64
}

func (i *fakeIndex) Index(_ context.Context, lic *domain.License) error {
	i.indexed = append(i.indexed, lic.ID)
	return nil
}

func (i *fakeIndex) Remove(_ context.Context, _ string) error { return nil }

func (i *fakeIndex) Search(_ context.Context, _ domain.SearchQuery) ([]domain.SearchHit, int64, error) {
	return i.hits, i.total, nil
}

type fakeCache struct {
	entries map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "cache miss")
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

type publishedEvent struct {
	eventType string
	payload   interface{}
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.events = append(p.events, publishedEvent{eventType: eventType, payload: payload})
	return nil
}

func fixedClock() func() ltypes.Date {
	return func() ltypes.Date { return ltypes.NewDate(2026, time.March, 15) }
}

func testLicense(id string) *domain.License {
	return &domain.License{
		ID:          id,
		LicenseeID:  "prov-9",
		Compact:     "aslp",
		Jurisdiction: "oh",
		LicenseType: "audiologist",
		IssueDate:   ltypes.NewDate(2020, time.July, 1),
		ExpireDate:  ltypes.NewDate(2027, time.July, 1),
		Status:      ltypes.StatusActive,
		Eligibility: ltypes.EligibilityEligible,
		IssueState:  domain.State{Abbreviation: "oh", Name: "Ohio"},
	}
}

func newTestService(repo *fakeRepo, opts ...Option) Service {
	base := []Option{WithClock(fixedClock())}
	return NewService(repo, domain.DefaultResolver(), testutil.NewMockLogger(), append(base, opts...)...)
}

func TestGet(t *testing.T) {
	svc := newTestService(newFakeRepo(testLicense("lic-1")))

	dto, err := svc.Get(context.Background(), "lic-1", ltypes.Date{})
	require.NoError(t, err)
	assert.Equal(t, "lic-1", dto.ID)
	assert.Equal(t, ltypes.NewDate(2026, time.March, 15), dto.Derived.AsOf)
	assert.False(t, dto.Derived.Expired)
	assert.Equal(t, "Ohio - audiologist", dto.Derived.DisplayName)
}

func TestGet_ExplicitAsOf(t *testing.T) {
	svc := newTestService(newFakeRepo(testLicense("lic-1")))

	dto, err := svc.Get(context.Background(), "lic-1", ltypes.NewDate(2028, time.January, 1))
	require.NoError(t, err)
	assert.True(t, dto.Derived.Expired)
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Get(context.Background(), "missing", ltypes.Date{})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGet_EmptyID(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Get(context.Background(), "", ltypes.Date{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestGet_CacheReadThrough(t *testing.T) {
	repo := newFakeRepo(testLicense("lic-1"))
	cache := newFakeCache()
	svc := newTestService(repo, WithCache(cache))

	_, err := svc.Get(context.Background(), "lic-1", ltypes.Date{})
	require.NoError(t, err)
	assert.Contains(t, cache.entries, "license:lic-1")

	// Second read is served from the cache even after the repo forgets.
	delete(repo.store, "lic-1")
	dto, err := svc.Get(context.Background(), "lic-1", ltypes.Date{})
	require.NoError(t, err)
	assert.Equal(t, "lic-1", dto.ID)
}

func TestListByLicensee(t *testing.T) {
	repo := newFakeRepo(testLicense("lic-1"))
	other := testLicense("lic-2")
	other.LicenseeID = "someone-else"
	repo.store["lic-2"] = other

	svc := newTestService(repo)

	dtos, err := svc.ListByLicensee(context.Background(), "prov-9", ltypes.Date{})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, "lic-1", dtos[0].ID)
}

func TestListByJurisdiction(t *testing.T) {
	svc := newTestService(newFakeRepo(testLicense("lic-1")))

	result, err := svc.ListByJurisdiction(context.Background(), &ListInput{
		Compact:      "aslp",
		Jurisdiction: "oh",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Equal(t, 1, result.TotalPages)
	require.Len(t, result.Licenses, 1)
}

func TestListByJurisdiction_MissingCompact(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.ListByJurisdiction(context.Background(), &ListInput{Jurisdiction: "oh"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestTimeline(t *testing.T) {
	lic := testLicense("lic-1")
	lic.ExpireDate = ltypes.NewDate(2024, time.July, 1)
	svc := newTestService(newFakeRepo(lic))

	timeline, err := svc.Timeline(context.Background(), "lic-1", ltypes.Date{})
	require.NoError(t, err)
	// purchased + trailing expiration, as of the pinned clock
	require.Len(t, timeline, 2)
	assert.Equal(t, ltypes.UpdatePurchased, timeline[0].UpdateType)
	assert.Equal(t, ltypes.UpdateExpiration, timeline[1].UpdateType)
}

func TestSearch(t *testing.T) {
	index := &fakeIndex{
		hits:  []domain.SearchHit{{LicenseID: "lic-1", LicenseeID: "prov-9", Score: 1.5}},
		total: 1,
	}
	svc := newTestService(newFakeRepo(testLicense("lic-1")), WithSearchIndex(index))

	result, err := svc.Search(context.Background(), &SearchInput{Query: "doe"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Licenses, 1)
	assert.Equal(t, "lic-1", result.Licenses[0].ID)
}

func TestSearch_SkipsStaleHits(t *testing.T) {
	index := &fakeIndex{
		hits: []domain.SearchHit{
			{LicenseID: "gone"},
			{LicenseID: "lic-1"},
		},
		total: 2,
	}
	svc := newTestService(newFakeRepo(testLicense("lic-1")), WithSearchIndex(index))

	result, err := svc.Search(context.Background(), &SearchInput{Query: "doe"})
	require.NoError(t, err)
	require.Len(t, result.Licenses, 1)
	assert.Equal(t, "lic-1", result.Licenses[0].ID)
}

func TestSearch_WithoutIndex(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Search(context.Background(), &SearchInput{Query: "doe"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotImplemented))
}

func TestIngest(t *testing.T) {
	repo := newFakeRepo()
	index := &fakeIndex{}
	publisher := &fakePublisher{}
	svc := newTestService(repo, WithSearchIndex(index), WithEventPublisher(publisher))

	result, err := svc.Ingest(context.Background(), []ltypes.RawRecord{
		{Type: "license", ID: "lic-1", ProviderID: "prov-9", Jurisdiction: "oh", Status: "active"},
		{Type: "privilege", ProviderID: "prov-9", Jurisdiction: "ne", LicenseTypeAbbreviation: "aud"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Received)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 0, result.Rejected)
	assert.Len(t, repo.store, 2)
	assert.ElementsMatch(t, []string{"lic-1", "prov-9-ne-aud"}, index.indexed)

	require.Len(t, publisher.events, 2)
	for _, ev := range publisher.events {
		assert.Equal(t, domain.EventTypeLicenseUpserted, ev.eventType)
	}
}

func TestIngest_StatusChangePublishesTransition(t *testing.T) {
	stored := testLicense("lic-1")
	stored.Status = ltypes.StatusActive
	repo := newFakeRepo(stored)
	publisher := &fakePublisher{}
	svc := newTestService(repo, WithEventPublisher(publisher))

	_, err := svc.Ingest(context.Background(), []ltypes.RawRecord{
		{Type: "license", ID: "lic-1", ProviderID: "prov-9", Jurisdiction: "oh", Status: "inactive"},
	})
	require.NoError(t, err)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, domain.EventTypeLicenseUpserted, publisher.events[0].eventType)
	assert.Equal(t, domain.EventTypeLicenseStatusChanged, publisher.events[1].eventType)

	change, ok := publisher.events[1].payload.(domain.LicenseStatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, ltypes.StatusActive, change.Previous)
	assert.Equal(t, ltypes.StatusInactive, change.Current)
}

func TestIngest_RejectsUnknownTypes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	result, err := svc.Ingest(context.Background(), []ltypes.RawRecord{
		{Type: "license", ID: "lic-1", ProviderID: "prov-9", Jurisdiction: "oh"},
		{Type: "militaryAffiliation", ProviderID: "prov-9"},
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnsupportedSchema))
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.Rejected)
	assert.Len(t, repo.store, 1)
}

func TestIngest_InvalidatesCache(t *testing.T) {
	repo := newFakeRepo(testLicense("lic-1"))
	cache := newFakeCache()
	svc := newTestService(repo, WithCache(cache))

	// Warm the cache, then ingest a new revision.
	_, err := svc.Get(context.Background(), "lic-1", ltypes.Date{})
	require.NoError(t, err)
	require.Contains(t, cache.entries, "license:lic-1")

	_, err = svc.Ingest(context.Background(), []ltypes.RawRecord{
		{Type: "license", ID: "lic-1", ProviderID: "prov-9", Jurisdiction: "oh", Status: "inactive"},
	})
	require.NoError(t, err)
	assert.NotContains(t, cache.entries, "license:lic-1")
}

func TestIngest_EmptyBatch(t *testing.T) {
	svc := newTestService(newFakeRepo())

	result, err := svc.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Received)
	assert.Equal(t, 0, result.Stored)
}
