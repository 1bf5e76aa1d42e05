// Package metrics holds the bridge's single process-wide prometheus
// registry, the one deliberate exception to "no singletons" (spec §9):
// a metrics registry is inherently process-global infrastructure, and
// the Bridge Orchestrator receives it by injection rather than
// reaching for a package-level default. Adapted from the
// prometheus/client_golang usage pattern in
// fanonxr-Lexiq-AI/apps/voice-gateway, the pack repo that actually
// wires a metrics registry end to end.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the collectors the Bridge Orchestrator updates
// during a call.
type Registry struct {
	Registerer prometheus.Registerer

	QueueDepth          *prometheus.GaugeVec
	QueueDropped        *prometheus.CounterVec
	RateLimitRejections *prometheus.CounterVec
	ReconnectAttempts   *prometheus.CounterVec
	ActiveCalls         prometheus.Gauge
}

// New builds and registers all collectors against a fresh registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Registerer: reg,
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voicebridge_audio_queue_depth",
			Help: "Current depth of the upstream audio output queue, per call.",
		}, []string{"conversation_id"}),
		QueueDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_audio_queue_dropped_total",
			Help: "Audio chunks dropped because the output queue was full.",
		}, []string{"conversation_id"}),
		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_rate_limit_rejections_total",
			Help: "Outbound events rejected by the sliding-window rate limiter.",
		}, []string{"conversation_id"}),
		ReconnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_reconnect_attempts_total",
			Help: "Upstream reconnect attempts, labeled by outcome.",
		}, []string{"outcome"}),
		ActiveCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voicebridge_active_calls",
			Help: "Number of calls currently bridged.",
		}),
	}

	reg.MustRegister(r.QueueDepth, r.QueueDropped, r.RateLimitRejections, r.ReconnectAttempts, r.ActiveCalls)
	return r
}

// AsGatherer exposes the registry for an HTTP /metrics handler.
func (r *Registry) AsGatherer() prometheus.Gatherer {
	return r.Registerer.(*prometheus.Registry)
}
