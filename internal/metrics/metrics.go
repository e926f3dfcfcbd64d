// Package metrics exposes gapscan's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gapscan/internal/domain"
)

const namespace = "gapscan"

var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAnalysisDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300}
)

// Metrics holds every instrument on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	IngestedRecordsTotal prometheus.Counter
	AnalysisRunsTotal    *prometheus.CounterVec
	AnalysisDuration     prometheus.Histogram
	CorpusRecords        prometheus.Gauge
	NoiseRecords         prometheus.Gauge
	Domains              prometheus.Gauge
	Gaps                 prometheus.Gauge
	GapThreshold         prometheus.Gauge
}

// New registers all instruments. Go and process collectors are added when runtime is true.
func New(runtime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if runtime {
		reg.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
		)
	}

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration",
			Buckets: DefaultHTTPDurationBuckets,
		}, []string{"method", "path"}),
		IngestedRecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingested_records_total", Help: "Records accepted by ingestion",
		}),
		AnalysisRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "analysis_runs_total", Help: "Analysis runs by outcome",
		}, []string{"status"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "analysis_duration_seconds", Help: "Wall time of successful analysis runs",
			Buckets: DefaultAnalysisDurationBuckets,
		}),
		CorpusRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "corpus_records", Help: "Records processed by the last analysis",
		}),
		NoiseRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "noise_records", Help: "Noise records in the last analysis",
		}),
		Domains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "domains", Help: "Domains found by the last analysis",
		}),
		Gaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "gaps", Help: "Domains flagged as gaps by the last analysis",
		}),
		GapThreshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "gap_threshold", Help: "Gap threshold of the last analysis",
		}),
	}
	reg.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
		m.IngestedRecordsTotal, m.AnalysisRunsTotal, m.AnalysisDuration,
		m.CorpusRecords, m.NoiseRecords, m.Domains, m.Gaps, m.GapThreshold,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveIngest(rows int) {
	m.IngestedRecordsTotal.Add(float64(rows))
}

// ObserveAnalysis counts a run and, when it succeeded, updates the last-run gauges.
func (m *Metrics) ObserveAnalysis(status string, elapsed time.Duration, a *domain.Analysis) {
	m.AnalysisRunsTotal.WithLabelValues(status).Inc()
	if a == nil {
		return
	}
	m.AnalysisDuration.Observe(elapsed.Seconds())
	m.CorpusRecords.Set(float64(a.TotalProcessed))
	m.NoiseRecords.Set(float64(a.NoiseCount))
	m.Domains.Set(float64(len(a.Domains)))
	m.Gaps.Set(float64(len(a.Gaps())))
	m.GapThreshold.Set(float64(a.GapThreshold))
}

func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
