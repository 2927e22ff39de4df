package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRequestID_MintsWhenAbsent(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	var seen string
	engine.GET("/", func(c *gin.Context) {
		seen = middleware.GetRequestID(c)
		c.Status(http.StatusOK)
	})

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRequestID_HonorsCallerID(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "upstream-7")
	rec := serve(engine, req)

	assert.Equal(t, "upstream-7", rec.Header().Get(middleware.RequestIDHeader))
}

func TestRecovery_Returns500Envelope(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.Recovery(logging.NewNopLogger()))
	engine.GET("/boom", func(_ *gin.Context) { panic("database handle escaped") })

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	// Panic details never reach the response body.
	assert.NotContains(t, rec.Body.String(), "database handle escaped")
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.CORS())
	called := false
	engine.OPTIONS("/v1/licenses", func(_ *gin.Context) { called = true })

	rec := serve(engine, httptest.NewRequest(http.MethodOptions, "/v1/licenses", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

type recordingObserver struct {
	method  string
	route   string
	status  int
	elapsed time.Duration
	calls   int
}

func (r *recordingObserver) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	r.method, r.route, r.status, r.elapsed = method, route, status, elapsed
	r.calls++
}

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	obs := &recordingObserver{}
	engine := gin.New()
	engine.Use(middleware.Metrics(obs))
	engine.GET("/v1/licenses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(engine, httptest.NewRequest(http.MethodGet, "/v1/licenses/lic-1", nil))

	require.Equal(t, 1, obs.calls)
	assert.Equal(t, "GET", obs.method)
	assert.Equal(t, "/v1/licenses/:id", obs.route)
	assert.Equal(t, http.StatusOK, obs.status)
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	obs := &recordingObserver{}
	engine := gin.New()
	engine.Use(middleware.Metrics(obs))

	serve(engine, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, 1, obs.calls)
	assert.Equal(t, "unmatched", obs.route)
	assert.Equal(t, http.StatusNotFound, obs.status)
}

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	engine := gin.New()
	engine.Use(middleware.RateLimit(limiter))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		rec := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Second)

	allowed, _ := limiter.Allow("10.0.0.1")
	require.True(t, allowed)
	allowed, _ = limiter.Allow("10.0.0.1")
	require.False(t, allowed)

	// A different client has its own bucket.
	allowed, _ = limiter.Allow("10.0.0.2")
	assert.True(t, allowed)
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.RequestLogger(logging.NewNopLogger()))
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	rec := serve(engine, httptest.NewRequest(http.MethodGet, "/?page=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
