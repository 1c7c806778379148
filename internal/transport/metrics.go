package transport

import (
	"github.com/blukai/gangnet/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "gangnet"

// Metrics counts traffic of one or more transports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter
	decodeErrors   prometheus.Counter
	disconnects    *prometheus.CounterVec
}

// NewMetrics registers the transport metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_sent_total",
			Help:      "Frames written, by message kind.",
		}, []string{"kind"}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_received_total",
			Help:      "Frames read, by message kind.",
		}, []string{"kind"}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payload_bytes_sent_total",
			Help:      "Payload bytes written, kind byte included.",
		}),
		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payload_bytes_received_total",
			Help:      "Payload bytes read, kind byte included.",
		}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_errors_total",
			Help:      "Frames that could not be decoded.",
		}),
		disconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "disconnects_total",
			Help:      "Disconnects, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) frameSent(kind protocol.Kind, size int) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(kind.String()).Inc()
	m.bytesSent.Add(float64(1 + size))
}

func (m *Metrics) frameReceived(kind protocol.Kind, size int) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind.String()).Inc()
	m.bytesReceived.Add(float64(1 + size))
}

func (m *Metrics) decodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

// Disconnected counts a disconnect with the given reason.
func (m *Metrics) Disconnected(reason string) {
	if m == nil {
		return
	}
	m.disconnects.WithLabelValues(reason).Inc()
}
