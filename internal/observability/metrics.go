package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the weather pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,failure}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge

	// Extraction metrics.
	ReadinessWait         prometheus.Histogram
	FetchErrors           prometheus.Counter
	MalformedObservations prometheus.Counter
	ObservationsLoaded    prometheus.Counter

	// Reference table and export metrics.
	LookupRows         prometheus.Gauge
	JoinedRows         prometheus.Gauge
	EmptyJoins         prometheus.Counter
	SnapshotsPublished prometheus.Counter
	PublishErrors      *prometheus.CounterVec // labels: target={latest,snapshot}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run, readiness wait included.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful publish.",
		}),
		ReadinessWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_etl",
			Name:      "readiness_wait_seconds",
			Help:      "Time spent waiting for the weather API readiness gate.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 30, 60, 300, 600},
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "fetch_errors_total",
			Help:      "Weather API requests that failed or returned a non-2xx status.",
		}),
		MalformedObservations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "malformed_observations_total",
			Help:      "Weather API responses rejected by normalization.",
		}),
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "observations_loaded_total",
			Help:      "Observation rows appended to the store.",
		}),
		LookupRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "lookup_rows",
			Help:      "Rows in the city reference table after the last reload.",
		}),
		JoinedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_etl",
			Name:      "joined_rows",
			Help:      "Rows in the last joined export.",
		}),
		EmptyJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "empty_joins_total",
			Help:      "Publishes whose join matched no rows.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "snapshots_published_total",
			Help:      "Immutable snapshots written to object storage.",
		}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_etl",
			Name:      "publish_errors_total",
			Help:      "Failed export writes by target.",
		}, []string{"target"}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.LastSuccess,
		m.ReadinessWait,
		m.FetchErrors,
		m.MalformedObservations,
		m.ObservationsLoaded,
		m.LookupRows,
		m.JoinedRows,
		m.EmptyJoins,
		m.SnapshotsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_etl", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_etl", Name: "run_duration_seconds"}),
		PipelineRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "pipeline_running"}),
		LastSuccess:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "last_success_timestamp_seconds"}),
		ReadinessWait:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_etl", Name: "readiness_wait_seconds"}),
		FetchErrors:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "fetch_errors_total"}),
		MalformedObservations: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "malformed_observations_total"}),
		ObservationsLoaded:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "observations_loaded_total"}),
		LookupRows:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "lookup_rows"}),
		JoinedRows:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_etl", Name: "joined_rows"}),
		EmptyJoins:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "empty_joins_total"}),
		SnapshotsPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_etl", Name: "snapshots_published_total"}),
		PublishErrors:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_etl", Name: "publish_errors_total"}, []string{"target"}),
	}
}
