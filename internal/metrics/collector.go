package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds Prometheus metrics for the import-analysis service
type Collector struct {
	ImportsTotal         *prometheus.CounterVec
	ImportDuration       *prometheus.HistogramVec
	FilesProcessed       *prometheus.CounterVec
	RecordsProcessed     *prometheus.CounterVec
	EntitiesResolved     prometheus.Counter
	EdgesEmitted         *prometheus.CounterVec
	HighRiskEntities     prometheus.Counter
	ExportOutcomes       *prometheus.CounterVec
	ExportDuration       prometheus.Histogram
	ActiveImports        prometheus.Gauge
	KafkaEventsConsumed  *prometheus.CounterVec
	KafkaEventsPublished *prometheus.CounterVec
}

// NewCollector creates and registers all service metrics.
func NewCollector() *Collector {
	return &Collector{
		ImportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_analysis_runs_total",
				Help: "Total number of analysis runs by final status",
			},
			[]string{"status"},
		),
		ImportDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "import_analysis_run_duration_seconds",
				Help:    "Duration of analysis runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		FilesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_analysis_files_total",
				Help: "Total number of source files processed by source type and status",
			},
			[]string{"source_type", "status"},
		),
		RecordsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_analysis_records_total",
				Help: "Total number of records ingested by source type",
			},
			[]string{"source_type"},
		),
		EntitiesResolved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "import_analysis_entities_resolved_total",
				Help: "Total number of entities produced across all runs",
			},
		),
		EdgesEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_analysis_edges_emitted_total",
				Help: "Total number of relationship edges emitted by edge type",
			},
			[]string{"edge_type"},
		),
		HighRiskEntities: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "import_analysis_high_risk_entities_total",
				Help: "Total number of entities scored at or above the high-risk threshold",
			},
		),
		ExportOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_analysis_export_items_total",
				Help: "Graph items exported to the case backend by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ExportDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "import_analysis_export_duration_seconds",
				Help:    "Duration of graph exports in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ActiveImports: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "import_analysis_active_runs",
				Help: "Number of analysis runs currently in flight",
			},
		),
		KafkaEventsConsumed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_analysis_kafka_events_consumed_total",
				Help: "Kafka events consumed by topic and status",
			},
			[]string{"topic", "status"},
		),
		KafkaEventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_analysis_kafka_events_published_total",
				Help: "Kafka events published by topic and status",
			},
			[]string{"topic", "status"},
		),
	}
}

// Timer returns a function that observes elapsed seconds when called.
func Timer(histogram prometheus.Observer) func() {
	start := time.Now()
	return func() {
		histogram.Observe(time.Since(start).Seconds())
	}
}
