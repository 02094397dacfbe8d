// Package metrics exposes the service's Prometheus instrumentation. All
// collectors live on a private registry so tests can construct independent
// Pipeline values without duplicate-registration panics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vitalmsg"

// Pipeline aggregates the conversion pipeline's counters and gauges.
type Pipeline struct {
	registry *prometheus.Registry

	// Ingested counts inbound messages accepted on the HTTP boundary,
	// labeled by message kind.
	Ingested *prometheus.CounterVec
	// Processed counts conversion attempts, labeled by outcome
	// (converted, skipped, failed).
	Processed *prometheus.CounterVec
	// Duplicates counts messages whose business identifier was seen before.
	Duplicates prometheus.Counter
	// StaleUpdates counts non-duplicate updates discarded because their
	// sender timestamp did not beat the latest logged entry for the record.
	StaleUpdates prometheus.Counter
	// Retrieved counts outgoing messages handed to a feed consumer, labeled
	// by consumer (jurisdiction, steve).
	Retrieved *prometheus.CounterVec
	// HTTPDuration records request latency by method, route pattern, and
	// status class.
	HTTPDuration *prometheus.HistogramVec
}

// NewPipeline builds the pipeline instrumentation on a fresh registry.
func NewPipeline() *Pipeline {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	p := &Pipeline{
		registry: reg,
		Ingested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_ingested_total",
			Help:      "Inbound messages accepted for processing.",
		}, []string{"kind"}),
		Processed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_processed_total",
			Help:      "Conversion attempts by outcome.",
		}, []string{"outcome"}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duplicate_messages_total",
			Help:      "Messages whose business identifier was already logged.",
		}),
		StaleUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stale_updates_total",
			Help:      "Updates acknowledged but discarded as older than the latest entry.",
		}),
		Retrieved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_retrieved_total",
			Help:      "Outgoing messages delivered to a feed consumer.",
		}, []string{"consumer"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// ObserveQueue registers a depth gauge backed by the live queue.
func (p *Pipeline) ObserveQueue(depth func() int) {
	promauto.With(p.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Work orders currently waiting in the conversion queue.",
	}, func() float64 { return float64(depth()) })
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
