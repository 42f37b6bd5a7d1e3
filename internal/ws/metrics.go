package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	activeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Number of open WebSocket connections.",
	})
	droppedMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_dropped_messages_total",
		Help: "Messages dropped because a client's send buffer was full.",
	})
)

func init() {
	prometheus.MustRegister(activeConnections, droppedMessages)
}
