package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of the realtime engine. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	connections  prometheus.Gauge
	broadcasts   *prometheus.CounterVec
	dropped      prometheus.Counter
	cacheResults *prometheus.CounterVec
	events       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dealroom",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Currently registered websocket connections.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealroom",
			Subsystem: "ws",
			Name:      "broadcasts_total",
			Help:      "Outbound events fanned out, by event type.",
		}, []string{"event"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dealroom",
			Subsystem: "ws",
			Name:      "dropped_clients_total",
			Help:      "Connections dropped because their send buffer was full.",
		}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealroom",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache name and result (hit, miss, error).",
		}, []string{"cache", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealroom",
			Subsystem: "ws",
			Name:      "inbound_events_total",
			Help:      "Inbound client events by type and outcome.",
		}, []string{"event", "outcome"}),
	}

	reg.MustRegister(m.connections, m.broadcasts, m.dropped, m.cacheResults, m.events)
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) Broadcast(event string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(event).Inc()
}

func (m *Metrics) ClientDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) CacheHit(cache string) {
	m.cacheResult(cache, "hit")
}

func (m *Metrics) CacheMiss(cache string) {
	m.cacheResult(cache, "miss")
}

func (m *Metrics) CacheError(cache string) {
	m.cacheResult(cache, "error")
}

func (m *Metrics) cacheResult(cache, result string) {
	if m == nil {
		return
	}
	m.cacheResults.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) InboundEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, outcome).Inc()
}
