package lib

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/* This file implements the telemetry surface of the node using prometheus gauges and counters */

// Metrics holds the instruments updated by the consensus engine, store, and queue
type Metrics struct {
	ChainHeight     prometheus.Gauge   // the height of the last committed block
	View            prometheus.Gauge   // the current leader rotation counter
	CommittedBlocks prometheus.Counter // total blocks committed since process start
	ViewChanges     prometheus.Counter // total leader rotations since process start
	QueueDepth      prometheus.Gauge   // pending transactions in the queue
	CommitTime      prometheus.Summary // observed append latency of the block store

	registry *prometheus.Registry
	config   MetricsConfig
	log      LoggerI
}

// NewMetrics() creates the node instruments and, if enabled, serves them over http
// each node owns its own registry so multiple nodes may live in one process
func NewMetrics(config MetricsConfig, log LoggerI) (m *Metrics) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	m = &Metrics{
		ChainHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcadia_chain_height",
			Help: "Height of the last committed block",
		}),
		View: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcadia_consensus_view",
			Help: "Current leader rotation counter within the height",
		}),
		CommittedBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "arcadia_committed_blocks_total",
			Help: "Total blocks committed since process start",
		}),
		ViewChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "arcadia_view_changes_total",
			Help: "Total leader rotations since process start",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcadia_queue_depth",
			Help: "Pending transactions in the queue",
		}),
		CommitTime: factory.NewSummary(prometheus.SummaryOpts{
			Name: "arcadia_store_append_seconds",
			Help: "Observed append latency of the block store",
		}),
		registry: registry,
		config:   config,
		log:      log,
	}
	if config.Enabled {
		go m.serve()
	}
	return
}

// UpdateConsensus() records the consensus progress after a commit or view change
func (m *Metrics) UpdateConsensus(height uint64, view uint32) {
	if m == nil {
		return
	}
	m.ChainHeight.Set(float64(height))
	m.View.Set(float64(view))
}

// SetQueueDepth() records the number of pending transactions
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// IncCommitted() counts a committed block
func (m *Metrics) IncCommitted() {
	if m == nil {
		return
	}
	m.CommittedBlocks.Inc()
}

// IncViewChanges() counts a leader rotation
func (m *Metrics) IncViewChanges() {
	if m == nil {
		return
	}
	m.ViewChanges.Inc()
}

// ObserveAppend() records a block store append duration
func (m *Metrics) ObserveAppend(start time.Time) {
	if m == nil {
		return
	}
	m.CommitTime.Observe(time.Since(start).Seconds())
}

// serve() hosts the prometheus scrape endpoint
func (m *Metrics) serve() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(m.config.PrometheusAddress, mux); err != nil {
		m.log.Errorf("metrics server failed: %s", err.Error())
	}
}
