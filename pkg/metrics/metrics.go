// Package metrics registers the engine's Prometheus collectors (spec
// §8's runtime-visibility surface, expanded in SPEC_FULL §3). Mounted
// the same way the teacher mounts promhttp: a bare handler on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

var (
	ConnectionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventwire",
		Name:      "connections_accepted_total",
		Help:      "TCP connections accepted by the listener.",
	})
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventwire",
		Name:      "connections_active",
		Help:      "Currently open connections.",
	})
	FramesDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventwire",
		Name:      "frames_decoded_total",
		Help:      "Frames successfully decoded, by event name.",
	}, []string{"event"})
	FramesCorrupt = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventwire",
		Name:      "frames_corrupt_total",
		Help:      "Frames dropped for being malformed.",
	})
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "eventwire",
		Name:      "queue_depth",
		Help:      "Current depth of each per-event consumer queue.",
	}, []string{"event"})
	QueueDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventwire",
		Name:      "queue_dropped_total",
		Help:      "Events dropped because their queue was at capacity.",
	}, []string{"event"})
	ConsumerWakeups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventwire",
		Name:      "consumer_wakeups_total",
		Help:      "Times a consumer worker woke to drain its queue.",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsAccepted,
		ConnectionsActive,
		FramesDecoded,
		FramesCorrupt,
		QueueDepth,
		QueueDropped,
		ConsumerWakeups,
	)
}

// Handler exposes the registry the way the teacher mounts it at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
