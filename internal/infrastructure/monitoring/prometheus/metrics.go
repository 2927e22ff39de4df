package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default buckets per concern.  HTTP and search are interactive; ingest
// batches run longer.
var (
	httpDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	ingestDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60}
	dbDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	resultCountBuckets    = []float64{0, 1, 5, 10, 25, 50, 100, 250, 500}
)

// AppMetrics holds every metric the platform emits.
type AppMetrics struct {
	// HTTP layer.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  prometheus.Gauge

	// Ingest pipeline.
	RecordsIngestedTotal  *prometheus.CounterVec
	IngestDuration        *prometheus.HistogramVec
	RecordsDeadLettered   prometheus.Counter
	EventsPublishedTotal  *prometheus.CounterVec
	StatusTransitionsTotal *prometheus.CounterVec

	// Cache.
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Database.
	DBQueryDuration *prometheus.HistogramVec
	DBPoolAcquired  prometheus.Gauge
	DBPoolTotal     prometheus.Gauge

	// Search.
	SearchDuration    prometheus.Histogram
	SearchResultCount prometheus.Histogram
}

// NewAppMetrics builds and registers the full metric set.
func NewAppMetrics(collector *Collector) *AppMetrics {
	m := &AppMetrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_http_requests_total",
			Help: "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licensure_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "route"}),
		HTTPActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "licensure_http_active_requests",
			Help: "In-flight HTTP requests.",
		}),

		RecordsIngestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_records_ingested_total",
			Help: "Raw board records processed by schema and result.",
		}, []string{"schema", "result"}),
		IngestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licensure_ingest_duration_seconds",
			Help:    "Ingest batch latency by schema.",
			Buckets: ingestDurationBuckets,
		}, []string{"schema"}),
		RecordsDeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "licensure_records_dead_lettered_total",
			Help: "Records routed to the dead-letter topic.",
		}),
		EventsPublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_events_published_total",
			Help: "Domain events published by event type.",
		}, []string{"event_type"}),
		StatusTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "licensure_status_transitions_total",
			Help: "Observed upstream status transitions.",
		}, []string{"from", "to"}),

		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "licensure_cache_hits_total",
			Help: "Entity cache hits.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "licensure_cache_misses_total",
			Help: "Entity cache misses.",
		}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "licensure_db_query_duration_seconds",
			Help:    "Database query latency by operation.",
			Buckets: dbDurationBuckets,
		}, []string{"operation"}),
		DBPoolAcquired: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "licensure_db_pool_acquired_connections",
			Help: "Acquired connections in the postgres pool.",
		}),
		DBPoolTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "licensure_db_pool_total_connections",
			Help: "Total connections in the postgres pool.",
		}),

		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensure_search_duration_seconds",
			Help:    "Licensee search latency.",
			Buckets: httpDurationBuckets,
		}),
		SearchResultCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "licensure_search_result_count",
			Help:    "Licensee search result counts.",
			Buckets: resultCountBuckets,
		}),
	}

	collector.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.HTTPActiveRequests,
		m.RecordsIngestedTotal, m.IngestDuration, m.RecordsDeadLettered,
		m.EventsPublishedTotal, m.StatusTransitionsTotal,
		m.CacheHitsTotal, m.CacheMissesTotal,
		m.DBQueryDuration, m.DBPoolAcquired, m.DBPoolTotal,
		m.SearchDuration, m.SearchResultCount,
	)
	return m
}

// ObserveHTTPRequest records one finished HTTP request.
func (m *AppMetrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveIngest records one processed raw record.
func (m *AppMetrics) ObserveIngest(schema, result string, elapsed time.Duration) {
	m.RecordsIngestedTotal.WithLabelValues(schema, result).Inc()
	m.IngestDuration.WithLabelValues(schema).Observe(elapsed.Seconds())
}
