// Package metrics provides Prometheus metrics for simulated links.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mock_link"

// Drop reasons.
const (
	DropUnknownSender = "unknown_sender"
	DropDisabled      = "disabled"
)

// Send failure reasons.
const (
	SendDisabled  = "disabled"
	SendTransport = "transport"
)

// Metrics contains the counters of one listener.
type Metrics struct {
	PacketsReceived  prometheus.Counter
	PacketsDelivered prometheus.Counter
	PacketsDropped   *prometheus.CounterVec
	BytesReceived    prometheus.Counter
	ReceiveErrors    prometheus.Counter
	HandlerPanics    prometheus.Counter

	PacketsSent prometheus.Counter
	BytesSent   prometheus.Counter
	SendErrors  *prometheus.CounterVec
}

// New creates metrics registered to reg.
// A nil reg leaves the collectors unregistered, so any number of
// listeners can live in one process.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total datagrams read from the listener socket",
		}),
		PacketsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_delivered_total",
			Help:      "Total packets handed to an interface handler",
		}),
		PacketsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Total packets dropped by reason",
		}, []string{"reason"}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total payload bytes read from the listener socket",
		}),
		ReceiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_errors_total",
			Help:      "Total failed socket reads",
		}),
		HandlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Total panics recovered from receive handlers",
		}),
		PacketsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Total packets written by interfaces",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total payload bytes written by interfaces",
		}),
		SendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Total failed sends by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) RecordReceived(n int) {
	m.PacketsReceived.Inc()
	m.BytesReceived.Add(float64(n))
}

func (m *Metrics) RecordDelivered() { m.PacketsDelivered.Inc() }

func (m *Metrics) RecordDropped(reason string) {
	m.PacketsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordReceiveError() { m.ReceiveErrors.Inc() }
func (m *Metrics) RecordHandlerPanic() { m.HandlerPanics.Inc() }

func (m *Metrics) RecordSent(n int) {
	m.PacketsSent.Inc()
	m.BytesSent.Add(float64(n))
}

func (m *Metrics) RecordSendError(reason string) {
	m.SendErrors.WithLabelValues(reason).Inc()
}
