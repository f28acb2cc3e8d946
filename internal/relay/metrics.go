package relay

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/piyushdolas8/skillswap/shared/wire"
)

// otherEvent labels relayed events outside the session event set, keeping
// the event label bounded.
const otherEvent = "other"

// Metrics are the relay's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Connections   *prometheus.GaugeVec
	ActiveTopics  prometheus.Gauge
	Relayed       *prometheus.CounterVec
	Dropped       prometheus.Counter
	Rejected      *prometheus.CounterVec
	UploadedBytes prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process wide collectors, registering them on first
// use.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Connections: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "skillswap_relay_connections",
				Help: "Current number of subscribed participants by transport",
			}, []string{"transport"}),
			ActiveTopics: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "skillswap_relay_active_topics",
				Help: "Current number of topics with at least one participant",
			}),
			Relayed: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "skillswap_relay_messages_total",
				Help: "Total number of session messages relayed by event",
			}, []string{"event"}),
			Dropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "skillswap_relay_dropped_total",
				Help: "Total number of messages dropped on full send queues",
			}),
			Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "skillswap_relay_rejected_total",
				Help: "Total number of rejected subscriptions by reason",
			}, []string{"reason"}),
			UploadedBytes: promauto.NewCounter(prometheus.CounterOpts{
				Name: "skillswap_relay_uploaded_bytes_total",
				Help: "Total number of bytes accepted by the file endpoint",
			}),
		}
	})
	return metricsInstance
}

func (m *Metrics) connected(transport string) {
	if m == nil || m.Connections == nil {
		return
	}
	m.Connections.WithLabelValues(transport).Inc()
}

func (m *Metrics) disconnected(transport string) {
	if m == nil || m.Connections == nil {
		return
	}
	m.Connections.WithLabelValues(transport).Dec()
}

func (m *Metrics) topics(n int) {
	if m == nil || m.ActiveTopics == nil {
		return
	}
	m.ActiveTopics.Set(float64(n))
}

func (m *Metrics) relayed(event wire.Event) {
	if m == nil || m.Relayed == nil {
		return
	}
	label := otherEvent
	if event.Known() {
		label = string(event)
	}
	m.Relayed.WithLabelValues(label).Inc()
}

func (m *Metrics) dropped() {
	if m == nil || m.Dropped == nil {
		return
	}
	m.Dropped.Inc()
}

func (m *Metrics) rejected(reason string) {
	if m == nil || m.Rejected == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) uploaded(n int) {
	if m == nil || m.UploadedBytes == nil {
		return
	}
	m.UploadedBytes.Add(float64(n))
}
