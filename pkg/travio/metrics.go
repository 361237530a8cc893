package travio

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for client traffic.
type Metrics struct {
	Requests       *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec
	Signals        *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travio_client_requests_total",
				Help: "Total number of HTTP exchanges with the gateway",
			},
			[]string{"method", "code"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travio_client_request_duration_seconds",
				Help:    "Latency of HTTP exchanges with the gateway",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Signals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travio_client_session_signals_total",
				Help: "Session lifecycle signals published",
			},
			[]string{"signal"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travio_client_cache_lookups_total",
				Help: "Point lookups by resolving tier",
			},
			[]string{"resource", "tier"},
		),
	}
}

// ObserveRequest records one exchange. Exchanges without a response are
// counted under code "network".
func (m *Metrics) ObserveRequest(method string, statusCode int, err error, latency time.Duration) {
	code := strconv.Itoa(statusCode)
	if statusCode == 0 && err != nil {
		code = "network"
	}

	m.Requests.WithLabelValues(method, code).Inc()

	if latency > 0 {
		m.RequestLatency.WithLabelValues(method).Observe(latency.Seconds())
	}
}

// ObserveLookup records which tier resolved a point lookup
// ("memory", "durable", "network" or "miss").
func (m *Metrics) ObserveLookup(resource, tier string) {
	m.CacheLookups.WithLabelValues(resource, tier).Inc()
}

// WatchSignals counts every signal published on bus until the returned
// subscription is removed.
func (m *Metrics) WatchSignals(bus *Signals) *Subscription {
	return bus.Subscribe(func(kind SignalKind) {
		m.Signals.WithLabelValues(kind.String()).Inc()
	})
}

// Instrument installs the request metrics interceptors on chain.
func (m *Metrics) Instrument(chain *InterceptorChain) {
	chain.AddRequestInterceptor(MetricsRequestInterceptor())
	chain.AddResponseInterceptor(MetricsResponseInterceptor(m))
}
