package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "telegraph").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures Prometheus instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the request duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// Metrics holds the Prometheus instruments for one server.
// A nil *Metrics disables collection; all record methods are nil-safe.
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	activeConnections prometheus.Gauge
	connectsTotal     prometheus.Counter
	disconnectsTotal  prometheus.Counter
	messagesReceived  *prometheus.CounterVec
	messagesSent      *prometheus.CounterVec
	messagesDropped   prometheus.Counter
	broadcastsTotal   prometheus.Counter
	eventsDropped     prometheus.Counter
}

// NewMetrics creates Prometheus instrumentation for a server.
//
// Metrics collected:
//   - telegraph_http_requests_total: counter by method and status
//   - telegraph_http_request_duration_seconds: histogram by method
//   - telegraph_active_connections: gauge of open WebSocket connections
//   - telegraph_connects_total / telegraph_disconnects_total
//   - telegraph_messages_received_total / _sent_total: counter by type
//   - telegraph_messages_dropped_total: sends discarded on full buffers
//   - telegraph_broadcasts_total
//   - telegraph_observer_events_dropped_total
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := MetricsConfig{
		Namespace: "telegraph",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests served",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request handling duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),

		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_connections",
			Help:        "Number of open WebSocket connections",
			ConstLabels: config.ConstLabels,
		}),

		connectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "connects_total",
			Help:        "Total number of WebSocket connections accepted",
			ConstLabels: config.ConstLabels,
		}),

		disconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "disconnects_total",
			Help:        "Total number of WebSocket disconnections",
			ConstLabels: config.ConstLabels,
		}),

		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_received_total",
			Help:        "Total WebSocket messages received by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_sent_total",
			Help:        "Total WebSocket messages sent by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		messagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_dropped_total",
			Help:        "Total outbound messages dropped on full send buffers",
			ConstLabels: config.ConstLabels,
		}),

		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "broadcasts_total",
			Help:        "Total broadcast operations",
			ConstLabels: config.ConstLabels,
		}),

		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "observer_events_dropped_total",
			Help:        "Total observer events dropped on a full event queue",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) recordHTTPRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) recordConnect() {
	if m == nil {
		return
	}
	m.connectsTotal.Inc()
	m.activeConnections.Inc()
}

func (m *Metrics) recordDisconnect() {
	if m == nil {
		return
	}
	m.disconnectsTotal.Inc()
	m.activeConnections.Dec()
}

func (m *Metrics) recordMessageReceived(t MessageType) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) recordMessageSent(t MessageType) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) recordMessageDropped() {
	if m == nil {
		return
	}
	m.messagesDropped.Inc()
}

func (m *Metrics) recordBroadcast() {
	if m == nil {
		return
	}
	m.broadcastsTotal.Inc()
}

func (m *Metrics) recordEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
