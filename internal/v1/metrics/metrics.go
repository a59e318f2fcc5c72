package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the chat server.
//
// Naming convention: namespace_subsystem_name
// - namespace: chat_server (application-level grouping)
// - subsystem: connection, room, protocol (feature-level grouping)
// - name: specific metric (sessions_active, frames_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, members)
// - Counter: Cumulative events (frames processed, rejected connections)
// - Histogram: Latency distributions (dispatch time)

var (
	// ActiveConnections tracks the current number of live client sessions.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat_server",
		Subsystem: "connection",
		Name:      "sessions_active",
		Help:      "Current number of connected client sessions",
	})

	// RejectedConnections counts connections refused at the cap.
	RejectedConnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat_server",
		Subsystem: "connection",
		Name:      "rejected_total",
		Help:      "Total connections refused because the connection cap was reached",
	})

	// ActiveRooms tracks the current number of live chatrooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat_server",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of live chatrooms",
	})

	// ActiveUsers tracks the current number of identified users.
	ActiveUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat_server",
		Subsystem: "room",
		Name:      "users_active",
		Help:      "Current number of identified users",
	})

	// FramesProcessed counts dispatched frames by message type and outcome.
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat_server",
		Subsystem: "protocol",
		Name:      "frames_total",
		Help:      "Total protocol frames dispatched",
	}, []string{"message_type", "status"})

	// DispatchDuration tracks the time spent handling a single frame.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chat_server",
		Subsystem: "protocol",
		Name:      "dispatch_seconds",
		Help:      "Time spent dispatching protocol frames",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
	}, []string{"message_type"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
