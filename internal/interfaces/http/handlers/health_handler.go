package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
)

// componentCheckTimeout bounds each dependency probe so a hung backend
// cannot stall the readiness endpoint.
const componentCheckTimeout = 2 * time.Second

// ComponentChecker probes one backing dependency.
type ComponentChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []ComponentChecker
	logger   logging.Logger
}

// NewHealthHandler builds the handler over the given dependency probes.
func NewHealthHandler(log logging.Logger, checkers ...ComponentChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers, logger: log}
}

// Liveness reports that the process is up.  It never probes dependencies;
// a failing backend must not get the pod restarted.
//
//	GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type componentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Readiness probes every registered dependency.  Any failure yields 503 so
// the pod is pulled from rotation until the backend recovers.
//
//	GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	statuses := make([]componentStatus, 0, len(h.checkers))
	healthy := true

	for _, checker := range h.checkers {
		ctx, cancel := context.WithTimeout(c.Request.Context(), componentCheckTimeout)
		err := checker.Check(ctx)
		cancel()

		status := componentStatus{Name: checker.Name(), Status: "up"}
		if err != nil {
			healthy = false
			status.Status = "down"
			status.Error = err.Error()
			h.logger.Warn("readiness check failed",
				logging.String("component", checker.Name()), logging.Err(err))
		}
		statuses = append(statuses, status)
	}

	code := http.StatusOK
	overall := "ready"
	if !healthy {
		code = http.StatusServiceUnavailable
		overall = "not ready"
	}
	c.JSON(code, gin.H{"status": overall, "components": statuses})
}
