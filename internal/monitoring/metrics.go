// internal/monitoring/metrics.go
package monitoring

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the Prometheus instruments for extraction runs. All
// instruments are registered on the default registry at construction.
type Metrics struct {
	pagesVisited      *prometheus.CounterVec
	pagesFailed       *prometheus.CounterVec
	recordsExtracted  *prometheus.CounterVec
	recordsDropped    *prometheus.CounterVec
	duplicatesDropped *prometheus.CounterVec
	extractionTime    *prometheus.HistogramVec
	runDuration       *prometheus.HistogramVec
	runsActive        prometheus.Gauge
	outputWrites      *prometheus.CounterVec
	outputErrors      *prometheus.CounterVec
	goroutineCount    prometheus.Gauge
	memoryUsage       prometheus.Gauge
}

// MetricsConfig configures metric registration.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// NewMetrics registers and returns the instrument set.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "datascout"
	}
	if config.Subsystem == "" {
		config.Subsystem = "extractor"
	}
	ns, sub := config.Namespace, config.Subsystem

	return &Metrics{
		pagesVisited: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "pages_visited_total",
				Help:      "Total number of pages visited",
			},
			[]string{"job", "strategy"},
		),
		pagesFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "pages_failed_total",
				Help:      "Total number of pages that failed extraction or navigation",
			},
			[]string{"job", "strategy"},
		),
		recordsExtracted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "records_extracted_total",
				Help:      "Total number of unique records extracted",
			},
			[]string{"job"},
		),
		recordsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "records_dropped_total",
				Help:      "Total number of records dropped by required-field validation",
			},
			[]string{"job"},
		),
		duplicatesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "duplicates_dropped_total",
				Help:      "Total number of duplicate records dropped",
			},
			[]string{"job"},
		),
		extractionTime: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "page_extraction_seconds",
				Help:      "Per-page extraction duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "run_duration_seconds",
				Help:      "Full run duration in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"job", "outcome"},
		),
		runsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "runs_active",
				Help:      "Number of runs currently executing",
			},
		),
		outputWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "output_writes_total",
				Help:      "Total number of successful output writes",
			},
			[]string{"job", "format"},
		),
		outputErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "output_errors_total",
				Help:      "Total number of failed output writes",
			},
			[]string{"job", "format"},
		),
		goroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),
		memoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Subsystem: sub,
				Name:      "memory_bytes",
				Help:      "Current heap allocation in bytes",
			},
		),
	}
}

// RecordPages adds a finished run's visited and failed page totals.
func (m *Metrics) RecordPages(job, strategy string, visited, failed int) {
	m.pagesVisited.WithLabelValues(job, strategy).Add(float64(visited))
	m.pagesFailed.WithLabelValues(job, strategy).Add(float64(failed))
}

// ObservePageExtraction records one page's extraction duration.
func (m *Metrics) ObservePageExtraction(job string, duration time.Duration) {
	m.extractionTime.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordItems records record counts for one page.
func (m *Metrics) RecordItems(job string, extracted, dropped, duplicates int) {
	m.recordsExtracted.WithLabelValues(job).Add(float64(extracted))
	m.recordsDropped.WithLabelValues(job).Add(float64(dropped))
	m.duplicatesDropped.WithLabelValues(job).Add(float64(duplicates))
}

// RecordRun records a completed run.
func (m *Metrics) RecordRun(job, outcome string, duration time.Duration) {
	m.runDuration.WithLabelValues(job, outcome).Observe(duration.Seconds())
}

// RunStarted and RunFinished bracket an active run.
func (m *Metrics) RunStarted()  { m.runsActive.Inc() }
func (m *Metrics) RunFinished() { m.runsActive.Dec() }

// RecordOutput records one output write attempt.
func (m *Metrics) RecordOutput(job, format string, err error) {
	if err != nil {
		m.outputErrors.WithLabelValues(job, format).Inc()
		return
	}
	m.outputWrites.WithLabelValues(job, format).Inc()
}

// UpdateSystemMetrics refreshes the process-level gauges.
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.memoryUsage.Set(float64(memStats.HeapAlloc))
	m.goroutineCount.Set(float64(runtime.NumGoroutine()))
}
