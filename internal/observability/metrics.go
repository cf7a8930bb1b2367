package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	chatConnectionsActive  prometheus.Gauge
	chatMessagesTotal      prometheus.Counter
	notificationsPublished *prometheus.CounterVec
	deliveryDropsTotal     *prometheus.CounterVec
	sseClientsActive       prometheus.Gauge

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		chatConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections_active",
			Help: "Number of websocket connections currently attached to the gateway.",
		})

		chatMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages broadcast by this node.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications published, by event type.",
		}, []string{"type"})

		deliveryDropsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadcast_delivery_drops_total",
			Help: "Events dropped because a connection's send buffer was full.",
		}, []string{"scope"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_sse_clients_active",
			Help: "Number of active SSE notification subscribers.",
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(
			chatConnectionsActive,
			chatMessagesTotal,
			notificationsPublished,
			deliveryDropsTotal,
			sseClientsActive,
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
		)
	})
}

// ChatConnectionsActive exposes the live connection gauge.
func ChatConnectionsActive() prometheus.Gauge {
	RegisterMetrics()
	return chatConnectionsActive
}

// ChatMessagesTotal exposes the broadcast message counter.
func ChatMessagesTotal() prometheus.Counter {
	RegisterMetrics()
	return chatMessagesTotal
}

// NotificationsPublishedTotal exposes the notification counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// DeliveryDropsTotal exposes the per-scope delivery drop counter.
func DeliveryDropsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return deliveryDropsTotal
}

// SSEClientsActive exposes the SSE subscriber gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}
