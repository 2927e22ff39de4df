package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appprovider "github.com/openregulatory/licensure/internal/application/provider"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
)

// ProviderHandler serves the licensee (provider) endpoints.
type ProviderHandler struct {
	service appprovider.Service
	logger  logging.Logger
}

// NewProviderHandler builds the handler.
func NewProviderHandler(service appprovider.Service, log logging.Logger) *ProviderHandler {
	return &ProviderHandler{service: service, logger: log}
}

// Get returns the provider aggregate with licenses and privileges hydrated.
//
//	GET /v1/providers/:id?as_of=2024-06-01
func (h *ProviderHandler) Get(c *gin.Context) {
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

// BestHomeLicense returns the license that anchors the provider's compact
// standing.
//
//	GET /v1/providers/:id/home-license?as_of=2024-06-01
func (h *ProviderHandler) BestHomeLicense(c *gin.Context) {
	id, ok := requireParam(c, "id")
	if !ok {
		return
	}
	asOf, ok := parseAsOf(c)
	if !ok {
		return
	}

	dto, err := h.service.BestHomeLicense(c.Request.Context(), id, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dto)
}

// List pages through a compact's providers.
//
//	GET /v1/providers?compact=aslp&page=1&page_size=20
func (h *ProviderHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)

	result, err := h.service.ListByCompact(c.Request.Context(), &appprovider.ListInput{
		Compact:  c.Query("compact"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}
