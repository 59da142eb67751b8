package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics are the inspector's own metrics.
type serverMetrics struct {
	clients       prometheus.Gauge
	connections   prometheus.Counter
	framesSent    *prometheus.CounterVec
	bytesSent     prometheus.Counter
	dropped       prometheus.Counter
	replays       *prometheus.CounterVec
	historyFrames prometheus.Gauge
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	const ns, sub = "reconciler", "inspector"
	return &serverMetrics{
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "clients",
			Help: "Number of connected WebSocket clients",
		}),
		connections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "connections_total",
			Help: "Total WebSocket connections accepted",
		}),
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "frames_sent_total",
			Help: "Total frames queued to clients by frame type",
		}, []string{"type"}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "bytes_sent_total",
			Help: "Total frame bytes queued to clients",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "clients_dropped_total",
			Help: "Total clients disconnected for falling behind",
		}),
		replays: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "resyncs_total",
			Help: "Client resyncs by method (replay or snapshot)",
		}, []string{"method"}),
		historyFrames: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "history_frames",
			Help: "Frames buffered for replay",
		}),
	}
}
