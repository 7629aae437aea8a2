package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment pipeline.
type Metrics struct {
	CyclesCompleted      prometheus.Counter
	CycleFailures        prometheus.Counter
	AssessmentsPublished prometheus.Counter
	PipelineRunning      prometheus.Gauge

	CycleDuration prometheus.Histogram

	// Regional state gauges, refreshed after every assessment cycle.
	WatershedsTracked  prometheus.Gauge
	CriticalWatersheds prometheus.Gauge
	RegionalRiskScore  prometheus.Gauge

	// Collector metrics.
	CollectorErrors   *prometheus.CounterVec   // labels: source={usgs,noaa,openmeteo}
	CollectorDuration *prometheus.HistogramVec // labels: source={usgs,noaa,openmeteo}
	SiteCache         *prometheus.CounterVec   // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "cycles_completed_total",
			Help:      "Total assessment cycles completed successfully.",
		}),
		CycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "cycle_failures_total",
			Help:      "Total assessment cycles that failed entirely.",
		}),
		AssessmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "assessments_published_total",
			Help:      "Total watershed assessments written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "pipeline_running",
			Help:      "1 when the assessment loop is active, 0 when shut down.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete collect-score-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		WatershedsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "watersheds_tracked",
			Help:      "Number of watersheds with a current snapshot.",
		}),
		CriticalWatersheds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "critical_watersheds",
			Help:      "Number of watersheds at or above the critical risk score.",
		}),
		RegionalRiskScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flood_risk",
			Name:      "regional_risk_score",
			Help:      "Basin-weighted regional risk score on the 0-10 scale.",
		}),
		CollectorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "collector_errors_total",
			Help:      "Upstream data source failures by source.",
		}, []string{"source"}),
		CollectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "collector_duration_seconds",
			Help:      "Upstream data source request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		SiteCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "site_cache_total",
			Help:      "Gauge site metadata cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.CyclesCompleted,
		m.CycleFailures,
		m.AssessmentsPublished,
		m.PipelineRunning,
		m.CycleDuration,
		m.WatershedsTracked,
		m.CriticalWatersheds,
		m.RegionalRiskScore,
		m.CollectorErrors,
		m.CollectorDuration,
		m.SiteCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesCompleted:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "cycles_completed_total"}),
		CycleFailures:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "cycle_failures_total"}),
		AssessmentsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "flood_risk", Name: "assessments_published_total"}),
		PipelineRunning:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "pipeline_running"}),
		CycleDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "cycle_duration_seconds"}),
		WatershedsTracked:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "watersheds_tracked"}),
		CriticalWatersheds:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "critical_watersheds"}),
		RegionalRiskScore:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "flood_risk", Name: "regional_risk_score"}),
		CollectorErrors:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "collector_errors_total"}, []string{"source"}),
		CollectorDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "flood_risk", Name: "collector_duration_seconds"}, []string{"source"}),
		SiteCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "flood_risk", Name: "site_cache_total"}, []string{"result"}),
	}
}
