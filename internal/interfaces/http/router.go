package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openregulatory/licensure/internal/config"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/internal/interfaces/http/handlers"
	"github.com/openregulatory/licensure/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies needed
// to build the route tree.
type RouterConfig struct {
	LicenseHandler  *handlers.LicenseHandler
	ProviderHandler *handlers.ProviderHandler
	HealthHandler   *handlers.HealthHandler

	// MetricsHandler serves the Prometheus exposition endpoint.  Nil disables
	// the /metrics route.
	MetricsHandler http.Handler

	// RequestObserver records per-request metrics.  Nil disables collection.
	RequestObserver middleware.RequestObserver

	// RateLimiter throttles per-client request rates.  Nil disables limiting.
	RateLimiter *middleware.RateLimiter

	Server config.ServerConfig
	Logger logging.Logger
}

// NewRouter constructs the gin engine with all middleware and routes wired.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(cfg.Logger))
	engine.Use(middleware.RequestLogger(cfg.Logger))
	engine.Use(middleware.CORS())
	if cfg.Server.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.Server.MaxBodySize))
	}
	if cfg.RequestObserver != nil {
		engine.Use(middleware.Metrics(cfg.RequestObserver))
	}
	if cfg.RateLimiter != nil {
		engine.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	if cfg.HealthHandler != nil {
		engine.GET("/healthz", cfg.HealthHandler.Liveness)
		engine.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	v1 := engine.Group("/v1")
	registerLicenseRoutes(v1, cfg.LicenseHandler)
	registerProviderRoutes(v1, cfg.ProviderHandler)

	return engine
}

func registerLicenseRoutes(g *gin.RouterGroup, h *handlers.LicenseHandler) {
	if h == nil {
		return
	}
	g.GET("/licenses", h.ListByJurisdiction)
	g.GET("/licenses/:id", h.Get)
	g.GET("/licenses/:id/timeline", h.Timeline)
	g.GET("/licensees/:id/licenses", h.ListByLicensee)
	g.GET("/search", h.Search)
}

func registerProviderRoutes(g *gin.RouterGroup, h *handlers.ProviderHandler) {
	if h == nil {
		return
	}
	g.GET("/providers", h.List)
	g.GET("/providers/:id", h.Get)
	g.GET("/providers/:id/home-license", h.BestHomeLicense)
}
