package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	applicensing "github.com/openregulatory/licensure/internal/application/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
)

// LicenseHandler serves the license read endpoints.
type LicenseHandler struct {
	service applicensing.Service
	logger  logging.Logger
}

// NewLicenseHandler builds the handler.
func NewLicenseHandler(service applicensing.Service, log logging.Logger) *LicenseHandler {
	return &LicenseHandler{service: service, logger: log}
}

// Get returns one license with its derived status block.
//
//	GET /v1/licenses/:id?as_of=2024-06-01
func (h *LicenseHandler) Get(c *gin.Context) {
	id, ok := requireParam(c, "id")
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	dto, err := h.service.Get(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

// Timeline returns the merged event timeline for one license.
//
//	GET /v1/licenses/:id/timeline?as_of=2024-06-01
func (h *LicenseHandler) Timeline(c *gin.Context) {
	id, ok := requireParam(c, "id")
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	timeline, err := h.service.Timeline(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, timeline)
}

// ListByLicensee returns every license and privilege held by a licensee.
//
//	GET /v1/licensees/:id/licenses?as_of=2024-06-01
func (h *LicenseHandler) ListByLicensee(c *gin.Context) {
	id, ok := requireParam(c, "id")
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	dtos, err := h.service.ListByLicensee(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dtos)
}

// ListByJurisdiction pages through a compact jurisdiction's licenses.
//
//	GET /v1/licenses?compact=aslp&jurisdiction=oh&page=1&page_size=20
func (h *LicenseHandler) ListByJurisdiction(c *gin.Context) {
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)

	result, err := h.service.ListByJurisdiction(c.Request.Context(), &applicensing.ListInput{
		Compact:      c.Query("compact"),
		Jurisdiction: c.Query("jurisdiction"),
		Page:         page,
		PageSize:     pageSize,
		AsOf:         asOf,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Search runs the staff licensee search across the index.
//
//	GET /v1/search?q=smith&compact=aslp&jurisdiction=oh&license_type=aud
func (h *LicenseHandler) Search(c *gin.Context) {
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)

	result, err := h.service.Search(c.Request.Context(), &applicensing.SearchInput{
		Query:        c.Query("q"),
		Compact:      c.Query("compact"),
		Jurisdiction: c.Query("jurisdiction"),
		LicenseType:  c.Query("license_type"),
		Page:         page,
		PageSize:     pageSize,
		AsOf:         asOf,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
