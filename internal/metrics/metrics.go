// Package metrics exposes Prometheus collectors for transfer order exports.
package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "payroll_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultEmpty   = "empty"
)

var (
	registerOnce sync.Once

	exportTotal    *prometheus.CounterVec
	exportLatency  *prometheus.HistogramVec
	exportPages    *prometheus.HistogramVec
	skippedEntries *prometheus.CounterVec
	coalesced      *prometheus.CounterVec
)

// Init registers the export metrics with the default registry. db may be nil;
// when set, connection pool gauges are registered too.
func Init(db *sql.DB) {
	registerOnce.Do(func() {
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total transfer order exports by kind, format and result",
			},
			[]string{"kind", "format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Transfer order export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "format", "result"},
		)
		exportPages = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_pages",
				Help:    "Number of pages per exported transfer order",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"kind"},
		)
		skippedEntries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_skipped_entries_total",
				Help: "Total malformed entries left out of exports",
			},
			[]string{"kind"},
		)
		coalesced = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_coalesced_total",
				Help: "Total export requests served by an in-flight export",
			},
			[]string{"kind"},
		)
		prometheus.MustRegister(
			exportTotal,
			exportLatency,
			exportPages,
			skippedEntries,
			coalesced,
		)
		if db != nil {
			registerDBMetrics(db)
		}
	})
}

func registerDBMetrics(db *sql.DB) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "db_open_connections",
				Help: "Open database connections",
			},
			func() float64 { return float64(db.Stats().OpenConnections) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "db_in_use_connections",
				Help: "Database connections in use",
			},
			func() float64 { return float64(db.Stats().InUse) },
		),
	)
}

// ObserveExport records export latency and result.
func ObserveExport(kind, format, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(kind, format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(kind, format, result).Observe(duration.Seconds())
	}
}

// ObservePages records the page count of a finished export.
func ObservePages(kind string, pages int) {
	if exportPages != nil && pages > 0 {
		exportPages.WithLabelValues(kind).Observe(float64(pages))
	}
}

// AddSkipped increments the skipped entry counter by count.
func AddSkipped(kind string, count int) {
	if count <= 0 {
		return
	}
	if skippedEntries != nil {
		skippedEntries.WithLabelValues(kind).Add(float64(count))
	}
}

// IncCoalesced counts a request that shared an in-flight export.
func IncCoalesced(kind string) {
	if coalesced != nil {
		coalesced.WithLabelValues(kind).Inc()
	}
}
