// Package licensing provides the application-level service for license
// operations.  It sits between the HTTP/CLI handlers and the domain logic:
// input validation, default reference dates, cache read-through, and event
// publication live here; business rules stay in internal/domain/licensing.
package licensing

import (
	"context"
	"time"

	domain "github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// licenseCacheTTL bounds staleness between ingest passes.
const licenseCacheTTL = 15 * time.Minute

// Service defines the license application operations.
type Service interface {
	Get(ctx context.Context, id string, asOf ltypes.Date) (*ltypes.LicenseDTO, error)
	ListByLicensee(ctx context.Context, licenseeID string, asOf ltypes.Date) ([]*ltypes.LicenseDTO, error)
	ListByJurisdiction(ctx context.Context, input *ListInput) (*ListResult, error)
	Timeline(ctx context.Context, id string, asOf ltypes.Date) ([]ltypes.HistoryItemDTO, error)
	Search(ctx context.Context, input *SearchInput) (*SearchResult, error)
	Ingest(ctx context.Context, raws []ltypes.RawRecord) (*IngestResult, error)
}

// ListInput pages through a compact jurisdiction's licenses.
type ListInput struct {
	Compact      string
	Jurisdiction string
	Page         int
	PageSize     int
	AsOf         ltypes.Date
}

// ListResult is a page of licenses.
type ListResult struct {
	Licenses   []*ltypes.LicenseDTO `json:"licenses"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// SearchInput is a staff licensee search request.
type SearchInput struct {
	Query        string
	Compact      string
	Jurisdiction string
	LicenseType  string
	Page         int
	PageSize     int
	AsOf         ltypes.Date
}

// SearchResult is a page of search hits hydrated into full licenses.
type SearchResult struct {
	Licenses   []*ltypes.LicenseDTO `json:"licenses"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// IngestResult summarizes one ingest pass.
type IngestResult struct {
	Received int      `json:"received"`
	Stored   int      `json:"stored"`
	Rejected int      `json:"rejected"`
	StoredID []string `json:"stored_ids,omitempty"`
}

// Cache is the subset of the redis cache contract the service uses.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

type serviceImpl struct {
	repo     domain.Repository
	index    domain.SearchIndex
	cache    Cache
	events   EventPublisher
	resolver domain.NameResolver
	logger   logging.Logger
	now      func() ltypes.Date
}

// Option customizes the service.
type Option func(*serviceImpl)

// WithCache enables read-through caching of license entities.
func WithCache(c Cache) Option {
	return func(s *serviceImpl) { s.cache = c }
}

// WithEventPublisher enables event publication on ingest.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *serviceImpl) { s.events = p }
}

// WithSearchIndex enables the staff search operation and index maintenance
// on ingest.
func WithSearchIndex(idx domain.SearchIndex) Option {
	return func(s *serviceImpl) { s.index = idx }
}

// WithClock overrides the reference-date source.  Tests use this to pin the
// evaluation day.
func WithClock(now func() ltypes.Date) Option {
	return func(s *serviceImpl) { s.now = now }
}

// NewService creates the license application service.  Cache, search index,
// and event publisher are optional; the service degrades to repository-only
// operation without them.
func NewService(repo domain.Repository, resolver domain.NameResolver, logger logging.Logger, opts ...Option) Service {
	s := &serviceImpl{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		now: func() ltypes.Date {
			return ltypes.DateOf(time.Now().UTC())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) asOfOrToday(asOf ltypes.Date) ltypes.Date {
	if asOf.IsZero() {
		return s.now()
	}
	return asOf
}

func cacheKey(id string) string {
	return "license:" + id
}

func (s *serviceImpl) Get(ctx context.Context, id string, asOf ltypes.Date) (*ltypes.LicenseDTO, error) {
	if id == "" {
		return nil, errors.InvalidParam("id is required")
	}
	asOf = s.asOfOrToday(asOf)

	lic, err := s.loadLicense(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := lic.ToDTO(asOf, s.resolver)
	return &dto, nil
}

// loadLicense reads through the cache.  The entity is cached, not the DTO:
// the derived block depends on the reference date and is recomputed per read.
func (s *serviceImpl) loadLicense(ctx context.Context, id string) (*domain.License, error) {
	if s.cache != nil {
		var cached domain.License
		if err := s.cache.Get(ctx, cacheKey(id), &cached); err == nil && cached.ID != "" {
			return &cached, nil
		}
	}

	lic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(id), lic, licenseCacheTTL); err != nil {
			s.logger.Warn("license cache set failed",
				logging.String("license_id", id), logging.Err(err))
		}
	}
	return lic, nil
}

func (s *serviceImpl) ListByLicensee(ctx context.Context, licenseeID string, asOf ltypes.Date) ([]*ltypes.LicenseDTO, error) {
	if licenseeID == "" {
		return nil, errors.InvalidParam("licensee_id is required")
	}
	asOf = s.asOfOrToday(asOf)

	lics, err := s.repo.FindByLicensee(ctx, licenseeID)
	if err != nil {
		return nil, err
	}

	out := make([]*ltypes.LicenseDTO, len(lics))
	for i, lic := range lics {
		dto := lic.ToDTO(asOf, s.resolver)
		out[i] = &dto
	}
	return out, nil
}

func (s *serviceImpl) ListByJurisdiction(ctx context.Context, input *ListInput) (*ListResult, error) {
	if input.Compact == "" {
		return nil, errors.InvalidParam("compact is required")
	}
	if input.Jurisdiction == "" {
		return nil, errors.InvalidParam("jurisdiction is required")
	}
	page := normalizePage(input.Page, input.PageSize)
	if err := page.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	asOf := s.asOfOrToday(input.AsOf)

	lics, total, err := s.repo.FindByJurisdiction(ctx, input.Compact, input.Jurisdiction, page)
	if err != nil {
		return nil, err
	}

	dtos := make([]*ltypes.LicenseDTO, len(lics))
	for i, lic := range lics {
		dto := lic.ToDTO(asOf, s.resolver)
		dtos[i] = &dto
	}

	return &ListResult{
		Licenses:   dtos,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages(total, page.PageSize),
	}, nil
}

func (s *serviceImpl) Timeline(ctx context.Context, id string, asOf ltypes.Date) ([]ltypes.HistoryItemDTO, error) {
	if id == "" {
		return nil, errors.InvalidParam("id is required")
	}
	asOf = s.asOfOrToday(asOf)

	lic, err := s.loadLicense(ctx, id)
	if err != nil {
		return nil, err
	}

	timeline := lic.HistoryWithFabricatedEvents(asOf)
	out := make([]ltypes.HistoryItemDTO, len(timeline))
	for i, item := range timeline {
		out[i] = item.ToDTO()
	}
	return out, nil
}

func (s *serviceImpl) Search(ctx context.Context, input *SearchInput) (*SearchResult, error) {
	if s.index == nil {
		return nil, errors.New(errors.ErrCodeNotImplemented, "search index is not configured")
	}
	if input.Query == "" && input.Compact == "" && input.Jurisdiction == "" && input.LicenseType == "" {
		return nil, errors.InvalidParam("at least one search criterion is required")
	}
	page := normalizePage(input.Page, input.PageSize)
	if err := page.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	asOf := s.asOfOrToday(input.AsOf)

	hits, total, err := s.index.Search(ctx, domain.SearchQuery{
		Text:         input.Query,
		Compact:      input.Compact,
		Jurisdiction: input.Jurisdiction,
		LicenseType:  input.LicenseType,
		Page:         page,
	})
	if err != nil {
		return nil, err
	}

	dtos := make([]*ltypes.LicenseDTO, 0, len(hits))
	for _, hit := range hits {
		lic, err := s.loadLicense(ctx, hit.LicenseID)
		if err != nil {
			// Index can briefly lead the store after a delete; skip the hit.
			if errors.IsNotFound(err) {
				s.logger.Debug("search hit without stored license",
					logging.String("license_id", hit.LicenseID))
				continue
			}
			return nil, err
		}
		dto := lic.ToDTO(asOf, s.resolver)
		dtos = append(dtos, &dto)
	}

	return &SearchResult{
		Licenses:   dtos,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages(total, page.PageSize),
	}, nil
}

func (s *serviceImpl) Ingest(ctx context.Context, raws []ltypes.RawRecord) (*IngestResult, error) {
	result := &IngestResult{Received: len(raws)}
	if len(raws) == 0 {
		return result, nil
	}

	lics, normErr := domain.NormalizeAll(raws)
	result.Rejected = len(raws) - len(lics)
	if normErr != nil {
		s.logger.Warn("ingest batch contained unsupported records",
			logging.Int("rejected", result.Rejected), logging.Err(normErr))
	}
	if len(lics) == 0 {
		return result, normErr
	}

	// Capture prior statuses before the upsert so status-change events carry
	// the real transition.
	previous := make(map[string]ltypes.LicenseStatus, len(lics))
	for _, lic := range lics {
		if stored, err := s.repo.FindByID(ctx, lic.ID); err == nil {
			previous[lic.ID] = stored.Status
		}
	}

	if err := s.repo.SaveAll(ctx, lics); err != nil {
		return result, errors.Wrap(err, errors.ErrCodeDatabaseError, "persisting ingest batch")
	}
	result.Stored = len(lics)

	for _, lic := range lics {
		result.StoredID = append(result.StoredID, lic.ID)

		if s.cache != nil {
			if err := s.cache.Delete(ctx, cacheKey(lic.ID)); err != nil {
				s.logger.Warn("license cache invalidation failed",
					logging.String("license_id", lic.ID), logging.Err(err))
			}
		}

		if s.index != nil {
			if err := s.index.Index(ctx, lic); err != nil {
				s.logger.Error("license indexing failed",
					logging.String("license_id", lic.ID), logging.Err(err))
			}
		}

		s.publishIngestEvents(ctx, lic, previous)
	}

	return result, normErr
}

func (s *serviceImpl) publishIngestEvents(ctx context.Context, lic *domain.License, previous map[string]ltypes.LicenseStatus) {
	if s.events == nil {
		return
	}

	if err := s.events.Publish(ctx, domain.EventTypeLicenseUpserted, domain.NewLicenseUpsertedEvent(lic)); err != nil {
		s.logger.Error("publishing upsert event failed",
			logging.String("license_id", lic.ID), logging.Err(err))
	}

	if prev, ok := previous[lic.ID]; ok && prev != lic.Status {
		event := domain.NewLicenseStatusChangedEvent(lic, prev)
		if err := s.events.Publish(ctx, domain.EventTypeLicenseStatusChanged, event); err != nil {
			s.logger.Error("publishing status-change event failed",
				logging.String("license_id", lic.ID), logging.Err(err))
		}
	}
}

// normalizePage applies the listing defaults before validation.
func normalizePage(page, pageSize int) common.Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return common.Pagination{Page: page, PageSize: pageSize}
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return int(pages)
}
