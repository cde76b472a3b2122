package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid, and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	cacheRequests *prometheus.CounterVec
	datasetLoads  *prometheus.CounterVec
}

// Label values
const (
	StatusSuccess = "success"
	StatusError   = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"

	BackendCache = "cache"
)

// New registers the collectors on a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(registry, registry)
}

func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		gatherer: gatherer,
		queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datasetquery_queries_total",
				Help: "Total number of executed dataset queries",
			},
			[]string{"query_type", "backend", "status"},
		),
		queryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datasetquery_query_duration_seconds",
				Help:    "Duration of dataset query execution, including cache lookups",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"query_type"},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datasetquery_cache_requests_total",
				Help: "Total number of query result cache lookups, by result",
			},
			[]string{"result"},
		),
		datasetLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datasetquery_dataset_loads_total",
				Help: "Total number of dataset loads, by selected backend",
			},
			[]string{"backend", "status"},
		),
	}
}

func (metrics *Metrics) ObserveQuery(
	queryType string,
	backend string,
	status string,
	duration time.Duration,
) {
	if metrics == nil {
		return
	}
	metrics.queries.WithLabelValues(queryType, backend, status).Inc()
	metrics.queryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

func (metrics *Metrics) ObserveCacheRequest(result string) {
	if metrics == nil {
		return
	}
	metrics.cacheRequests.WithLabelValues(result).Inc()
}

func (metrics *Metrics) ObserveDatasetLoad(backend string, status string) {
	if metrics == nil {
		return
	}
	if backend == "" {
		backend = "unknown"
	}
	metrics.datasetLoads.WithLabelValues(backend, status).Inc()
}

// Handler serves the registered metrics, for the /metrics endpoint.
func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.gatherer, promhttp.HandlerOpts{})
}
