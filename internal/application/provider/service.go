// Package provider provides the application-level service for licensee
// (provider) operations.
package provider

import (
	"context"
	"time"

	domainlic "github.com/openregulatory/licensure/internal/domain/licensing"
	domain "github.com/openregulatory/licensure/internal/domain/provider"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
	ltypes "github.com/openregulatory/licensure/pkg/types/licensing"
)

// Service defines the provider application operations.
type Service interface {
	Get(ctx context.Context, id string, asOf ltypes.Date) (*ProviderDTO, error)
	BestHomeLicense(ctx context.Context, id string, asOf ltypes.Date) (*ltypes.LicenseDTO, error)
	ListByCompact(ctx context.Context, input *ListInput) (*ListResult, error)
}

// ProviderDTO is the provider aggregate as served by the API.
type ProviderDTO struct {
	ID               string `json:"id"`
	Compact          string `json:"compact"`
	HomeJurisdiction string `json:"home_jurisdiction"`

	GivenName   string `json:"given_name"`
	MiddleName  string `json:"middle_name,omitempty"`
	FamilyName  string `json:"family_name"`
	DisplayName string `json:"display_name"`

	AsOf           ltypes.Date           `json:"as_of"`
	LicenseeStatus domain.LicenseeStatus `json:"licensee_status"`

	Licenses   []*ltypes.LicenseDTO `json:"licenses"`
	Privileges []*ltypes.LicenseDTO `json:"privileges"`
}

// ListInput pages through a compact's providers.
type ListInput struct {
	Compact  string
	Page     int
	PageSize int
}

// ListItem is a provider row in a listing; licenses are not hydrated.
type ListItem struct {
	ID               string `json:"id"`
	Compact          string `json:"compact"`
	HomeJurisdiction string `json:"home_jurisdiction"`
	GivenName        string `json:"given_name"`
	FamilyName       string `json:"family_name"`
}

// ListResult is a page of providers.
type ListResult struct {
	Providers  []*ListItem `json:"providers"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

type serviceImpl struct {
	repo     domain.Repository
	resolver domainlic.NameResolver
	logger   logging.Logger
	now      func() ltypes.Date
}

// Option customizes the service.
type Option func(*serviceImpl)

// WithClock overrides the reference-date source.
func WithClock(now func() ltypes.Date) Option {
	return func(s *serviceImpl) { s.now = now }
}

// NewService creates the provider application service.
func NewService(repo domain.Repository, resolver domainlic.NameResolver, logger logging.Logger, opts ...Option) Service {
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

func (s *serviceImpl) Get(ctx context.Context, id string, asOf ltypes.Date) (*ProviderDTO, error) {
	if id == "" {
		return nil, errors.InvalidParam("id is required")
	}
	asOf = s.asOfOrToday(asOf)

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	dto := &ProviderDTO{
		ID:               p.ID,
		Compact:          p.Compact,
		HomeJurisdiction: p.HomeJurisdiction,
		GivenName:        p.GivenName,
		MiddleName:       p.MiddleName,
		FamilyName:       p.FamilyName,
		DisplayName:      p.DisplayName(s.resolver),
		AsOf:             asOf,
		LicenseeStatus:   p.Status(asOf),
	}

	for _, lic := range p.Licenses {
		licDTO := lic.ToDTO(asOf, s.resolver)
		if lic.IsPrivilege {
			dto.Privileges = append(dto.Privileges, &licDTO)
		} else {
			dto.Licenses = append(dto.Licenses, &licDTO)
		}
	}

	return dto, nil
}

func (s *serviceImpl) BestHomeLicense(ctx context.Context, id string, asOf ltypes.Date) (*ltypes.LicenseDTO, error) {
	if id == "" {
		return nil, errors.InvalidParam("id is required")
	}
	asOf = s.asOfOrToday(asOf)

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	best := p.BestHomeLicense()
	if best == nil {
		return nil, errors.New(errors.ErrCodeNoHomeLicense, "provider has no home-jurisdiction license").
			WithDetail("provider_id=" + id)
	}

	dto := best.ToDTO(asOf, s.resolver)
	return &dto, nil
}

func (s *serviceImpl) ListByCompact(ctx context.Context, input *ListInput) (*ListResult, error) {
	if input.Compact == "" {
		return nil, errors.InvalidParam("compact is required")
	}
	page := normalizePage(input.Page, input.PageSize)
	if err := page.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}

	providers, total, err := s.repo.FindByCompact(ctx, input.Compact, page)
	if err != nil {
		return nil, err
	}

	items := make([]*ListItem, len(providers))
	for i, p := range providers {
		items[i] = &ListItem{
			ID:               p.ID,
			Compact:          p.Compact,
			HomeJurisdiction: p.HomeJurisdiction,
			GivenName:        p.GivenName,
			FamilyName:       p.FamilyName,
		}
	}

	return &ListResult{
		Providers:  items,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages(total, page.PageSize),
	}, nil
}

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
