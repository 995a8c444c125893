package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for dataset loads and the HTTP API.
type Metrics struct {
	Loads        *prometheus.CounterVec // labels: outcome={success,fetch_error,parse_error,error}
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,shared}
	RowsLoaded   *prometheus.GaugeVec   // labels: max_rows
	LoadDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec // labels: route, status
	SSEClients   prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "croc_sightings",
			Name:      "loads_total",
			Help:      "Spreadsheet loads by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "croc_sightings",
			Name:      "cache_lookups_total",
			Help:      "Dataset memo lookups by result (hit, miss, or shared in-flight load).",
		}, []string{"result"}),
		RowsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "croc_sightings",
			Name:      "rows_loaded",
			Help:      "Sightings held in memory per row limit.",
		}, []string{"max_rows"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "croc_sightings",
			Name:      "load_duration_seconds",
			Help:      "Duration of a fetch-and-normalize cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "croc_sightings",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		SSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "croc_sightings",
			Name:      "sse_clients",
			Help:      "Open load event streams.",
		}),
	}

	prometheus.MustRegister(
		m.Loads,
		m.CacheLookups,
		m.RowsLoaded,
		m.LoadDuration,
		m.HTTPRequests,
		m.SSEClients,
	)

	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Loads:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "croc_sightings", Name: "loads_total"}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "croc_sightings", Name: "cache_lookups_total"}, []string{"result"}),
		RowsLoaded:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "croc_sightings", Name: "rows_loaded"}, []string{"max_rows"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "croc_sightings", Name: "load_duration_seconds"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "croc_sightings", Name: "http_requests_total"}, []string{"route", "status"}),
		SSEClients:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "croc_sightings", Name: "sse_clients"}),
	}
}
