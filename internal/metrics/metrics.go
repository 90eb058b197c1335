// Package metrics holds the Prometheus collectors of the message store.
//
// Collectors are created on an injected registerer so tests and embedding
// programs each get their own set. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ampcare"

// Label values.
const (
	ResultOK    = "ok"
	ResultError = "error"

	ActionShown     = "shown"
	ActionCoalesced = "coalesced"
	ActionWithdrawn = "withdrawn"
	ActionDismissed = "dismissed"
)

type Metrics struct {
	StoreWrites        *prometheus.CounterVec
	DecodeFailures     prometheus.Counter
	Discovered         prometheus.Counter
	StoreMessages      prometheus.Gauge
	AttachmentsStaged  *prometheus.CounterVec
	AttachmentsRemoved *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg creates unregistered
// collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StoreWrites: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_writes_total",
				Help:      "Message documents written by this client",
			},
			[]string{"result"}, // ok or error
		),
		DecodeFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_decode_failures_total",
				Help:      "Message documents that could not be decoded",
			},
		),
		Discovered: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_discovered_total",
				Help:      "Message documents that appeared through external sync",
			},
		),
		StoreMessages: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_messages",
				Help:      "Messages currently held in memory",
			},
		),
		AttachmentsStaged: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attachments_staged_total",
				Help:      "Attachments copied or moved into an assets folder",
			},
			[]string{"mode"}, // copy or move
		),
		AttachmentsRemoved: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attachments_removed_total",
				Help:      "Discarded attachment files deleted after a write",
			},
			[]string{"result"},
		),
		Notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notification surface actions",
			},
			[]string{"action"},
		),
	}
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

func (m *Metrics) ObserveWrite(err error) {
	if m == nil {
		return
	}
	m.StoreWrites.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveDecodeFailure() {
	if m == nil {
		return
	}
	m.DecodeFailures.Inc()
}

func (m *Metrics) ObserveDiscovered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Discovered.Add(float64(n))
}

func (m *Metrics) SetMessages(n int) {
	if m == nil {
		return
	}
	m.StoreMessages.Set(float64(n))
}

func (m *Metrics) ObserveStaged(mode string) {
	if m == nil {
		return
	}
	m.AttachmentsStaged.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveRemoved(err error) {
	if m == nil {
		return
	}
	m.AttachmentsRemoved.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveNotification(action string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(action).Inc()
}
