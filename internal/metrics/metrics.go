package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	importRunsTotal     prometheus.Counter
	importRowsTotal     *prometheus.CounterVec
	importDuration      prometheus.Histogram
}

// New creates a fresh Metrics registry with HTTP and import metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "satlink",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by satlinkd",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "satlink",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by satlinkd",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	importRunsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "satlink",
		Name:      "import_runs_total",
		Help:      "Total number of CSV import commits processed",
	})

	importRowsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "satlink",
		Name:      "import_rows_total",
		Help:      "CSV import rows by outcome",
	}, []string{"outcome"})

	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "satlink",
		Name:      "import_duration_seconds",
		Help:      "Duration of CSV import commits from parse to commit",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		importRunsTotal,
		importRowsTotal,
		importDuration,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		importRunsTotal:     importRunsTotal,
		importRowsTotal:     importRowsTotal,
		importDuration:      importDuration,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncImportRun increments the import commit counter.
func (m *Metrics) IncImportRun() {
	if m == nil {
		return
	}
	m.importRunsTotal.Inc()
}

// AddImportRows counts rows by outcome (imported, duplicate, rejected).
func (m *Metrics) AddImportRows(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRowsTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveImportDuration observes one import commit duration.
func (m *Metrics) ObserveImportDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.importDuration.Observe(duration.Seconds())
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
