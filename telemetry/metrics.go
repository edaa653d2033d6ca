package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "windfield"

// Metrics holds the Prometheus collectors for the overlay and its bridge.
type Metrics struct {
	FetchChunks   *prometheus.CounterVec // labels: result={ok,error}
	FetchDuration prometheus.Histogram
	CellsWritten  prometheus.Counter
	GridCells     prometheus.Gauge
	InFlight      prometheus.Gauge

	Particles    prometheus.Gauge
	FrameSeconds prometheus.Histogram

	// Bridge metrics.
	BridgeMessages *prometheus.CounterVec // labels: direction={in,out}, type
	BridgeRejected prometheus.Counter
	BridgeClients  prometheus.Gauge

	BreakerState prometheus.Gauge // 0 closed, 1 half-open, 2 open

	gatherer prometheus.Gatherer
}

// NewMetrics creates all collectors and registers them with reg. A nil reg
// gets a fresh private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		FetchChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_chunks_total",
			Help:      "Forecast chunk requests by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one forecast chunk request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CellsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_written_total",
			Help:      "Wind vectors written into the grid.",
		}),
		GridCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grid_cells",
			Help:      "Cells currently held by the wind grid.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetch_in_flight",
			Help:      "Forecast chunks awaiting a response.",
		}),
		Particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "particles",
			Help:      "Particles in the active pool.",
		}),
		FrameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_seconds",
			Help:      "Time spent in one overlay step.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066},
		}),
		BridgeMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_messages_total",
			Help:      "Bridge messages by direction and type.",
		}, []string{"direction", "type"}),
		BridgeRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_rejected_total",
			Help:      "Inbound bridge messages that failed to decode.",
		}),
		BridgeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_clients",
			Help:      "Connected bridge clients.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weather_breaker_state",
			Help:      "Forecast circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
	}

	reg.MustRegister(
		m.FetchChunks,
		m.FetchDuration,
		m.CellsWritten,
		m.GridCells,
		m.InFlight,
		m.Particles,
		m.FrameSeconds,
		m.BridgeMessages,
		m.BridgeRejected,
		m.BridgeClients,
		m.BreakerState,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler serves the registered metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveChunk records one merged forecast chunk.
func (m *Metrics) ObserveChunk(written int, seconds float64, failed bool) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.FetchChunks.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(seconds)
	m.CellsWritten.Add(float64(written))
}

// ObserveBridge counts one bridge message.
func (m *Metrics) ObserveBridge(direction, msgType string) {
	if m == nil {
		return
	}
	m.BridgeMessages.WithLabelValues(direction, msgType).Inc()
}
