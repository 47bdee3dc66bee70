// Package metrics expone los contadores Prometheus del servicio de ingesta.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsProcessed cuenta trabajos terminados por resultado final.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona_ingest",
		Name:      "jobs_processed_total",
		Help:      "Ingestion jobs processed, labeled by final outcome.",
	}, []string{"outcome"})

	// JobsRetained cuenta mensajes retenidos para reentrega.
	JobsRetained = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "persona_ingest",
		Name:      "jobs_retained_total",
		Help:      "Jobs retained in the queue for redelivery.",
	})

	// StageFailures cuenta fallos por etapa del pipeline.
	StageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona_ingest",
		Name:      "stage_failures_total",
		Help:      "Pipeline failures, labeled by the stage that failed.",
	}, []string{"stage"})

	// StoreFailures cuenta fallos de escritura por almacen del fan-out.
	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona_ingest",
		Name:      "store_failures_total",
		Help:      "Persistence failures, labeled by downstream store.",
	}, []string{"store"})

	// SkippedPasses cuenta pasadas de analisis omitidas (consentimiento o
	// fallo del adaptador).
	SkippedPasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "persona_ingest",
		Name:      "analysis_passes_skipped_total",
		Help:      "Analysis passes skipped by consent denial or adapter failure.",
	})

	// QueueDepth es la profundidad actual de la cola de ingesta.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "persona_ingest",
		Name:      "queue_depth",
		Help:      "Current number of jobs waiting in the ingestion queue.",
	})
)

// Handler devuelve el handler HTTP del endpoint /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
